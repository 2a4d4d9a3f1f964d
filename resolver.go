package dnsresolver

import (
	"context"
	"math"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/singleflight"

	"github.com/dnsexplain/dnstrace/cache"
)

// Resolver performs iterative DNS resolution starting from the root
// nameservers, following referrals and CNAME chains, and records a
// step-by-step trace of every nameserver contacted.
type Resolver struct {
	stepCap int

	client *dns.Client
	cache  *cache.Cache[cacheKey, cacheEntry]
	logger *Logger

	sf singleflight.Group

	// testRoots and testPort let the in-process test harness redirect the
	// resolver at a fake root zone on a non-privileged port instead of the
	// real internet on port 53. Unset in production use.
	testRoots []string
	testPort  string
}

func (r *Resolver) port() string {
	if r.testPort != "" {
		return r.testPort
	}
	return "53"
}

// New returns a ready-to-use Resolver. Zero-valued Options fields fall back
// to their documented defaults.
func New(opts Options) *Resolver {
	opts = opts.withDefaults()

	return &Resolver{
		stepCap: opts.StepCap,
		client:  &dns.Client{Timeout: opts.Timeout},
		cache:   cache.New[cacheKey, cacheEntry](opts.CacheCapacity),
		logger:  opts.Logger,
	}
}

// ClearCache empties the resolver's TTL cache.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

// Resolve drives the iterative resolution of (name, recordType), optionally
// consulting and populating the TTL cache, and returns the full Result
// (query echo, summary, trace, CNAME chain).
func (r *Resolver) Resolve(ctx context.Context, name, recordType string, useCache bool) (Result, error) {
	return r.resolve(ctx, name, recordType, useCache, true)
}

// resolve is Resolve's implementation. allowFallback gates whether a
// referral lacking glue may fall back to a nested, bounded lookup of the NS
// host's own address records. Nested lookups pass allowFallback=false so
// that recursion can never go more than one level deep.
func (r *Resolver) resolve(ctx context.Context, name, recordType string, useCache, allowFallback bool) (Result, error) {
	rtype, typeStr, ok := parseRecordType(recordType)
	if !ok {
		return Result{}, ErrUnsupportedRecordType
	}

	qname := absolute(name)
	key := cacheKey{name: strings.ToLower(qname), rtype: typeStr}

	cacheMode := "off"
	if useCache {
		cacheMode = "on"
	}

	if useCache {
		if ce, found := r.cache.Get(key); found {
			return r.cacheHitResult(qname, typeStr, cacheMode, ce), nil
		}
	}

	start := time.Now()

	current := qname
	nsIPs := []string{r.pickRoot()}
	var trace []Hop
	var cnameChain []string
	var finalRRSets []RRSet
	steps := 0

stepLoop:
	for steps < r.stepCap {
		var resp *dns.Msg
		var rttMs float64
		var server string
		var xferErr error

		for {
			server = nsIPs[0]

			m := new(dns.Msg)
			m.SetQuestion(current, rtype)
			m.RecursionDesired = false
			m.SetEdns0(4096, false)

			respMsg, rtt, err := r.client.ExchangeContext(ctx, m, net.JoinHostPort(server, r.port()))
			if err == nil {
				resp = respMsg
				rttMs = msRound2(rtt)
				break
			}

			if len(nsIPs) > 1 {
				nsIPs = nsIPs[1:]
				continue
			}

			xferErr = err
			nsIPs = []string{r.pickRoot()}
			break
		}

		steps++

		if xferErr != nil {
			hop := Hop{
				Step:     steps,
				Server:   server,
				Role:     "ns",
				Question: Question{Name: current, Type: typeStr},
				Error:    xferErr.Error(),
			}
			trace = append(trace, hop)
			r.logHop(hop)
			continue stepLoop
		}

		hop := r.buildHop(steps, server, current, typeStr, resp, rttMs)
		trace = append(trace, hop)
		r.logHop(hop)

		if resp.Rcode == dns.RcodeNameError {
			break stepLoop
		}

		if len(resp.Answer) > 0 {
			if hasType(resp.Answer, rtype) {
				finalRRSets = hop.Answer
				break stepLoop
			}

			if target, ok := firstCNAMETarget(resp.Answer); ok {
				cnameChain = append(cnameChain, trimTrailingDot(target))
				current = absolute(target)
				nsIPs = []string{r.pickRoot()}
				continue stepLoop
			}

			// Neither a terminal answer nor a CNAME: fall through to
			// referral handling using this same response's authority and
			// additional sections.
		}

		ips := r.resolveReferral(ctx, resp, allowFallback)
		if len(ips) == 0 {
			break stepLoop
		}
		nsIPs = ips
	}

	totalMs := msRound2(time.Since(start))
	finalIPs := extractFinalIPs(finalRRSets)

	if useCache && len(finalRRSets) > 0 {
		if minTTL := minTTLOf(finalRRSets); minTTL > 0 {
			r.cache.Set(key, cacheEntry{
				answer:     finalRRSets,
				finalIPs:   finalIPs,
				cnameChain: cnameChain,
				ms:         totalMs,
			}, time.Duration(minTTL)*time.Second)
		}
	}

	return Result{
		Query:      Query{Name: qname, Type: typeStr, Cache: cacheMode},
		Summary:    Summary{FinalIPs: finalIPs, TotalMillis: totalMs, Hops: len(trace), CacheSavedMs: 0},
		Trace:      trace,
		CNAMEChain: cnameChain,
	}, nil
}

func (r *Resolver) cacheHitResult(qname, typeStr, cacheMode string, ce cacheEntry) Result {
	zero := 0.0
	hop := Hop{
		Step:       1,
		Server:     "cache",
		Role:       "cache",
		Question:   Question{Name: qname, Type: typeStr},
		Answer:     ce.answer,
		Additional: []RRSet{},
		Authority:  []RRSet{},
		RTTMillis:  &zero,
		Cached:     true,
	}
	r.logHop(hop)

	return Result{
		Query:      Query{Name: qname, Type: typeStr, Cache: cacheMode},
		Summary:    Summary{FinalIPs: ce.finalIPs, TotalMillis: 0, Hops: 1, CacheSavedMs: ce.ms},
		Trace:      []Hop{hop},
		CNAMEChain: ce.cnameChain,
	}
}

func (r *Resolver) buildHop(step int, server, qname, typeStr string, resp *dns.Msg, rttMs float64) Hop {
	rtt := rttMs
	return Hop{
		Step:       step,
		Server:     server,
		Role:       "ns",
		Question:   Question{Name: qname, Type: typeStr},
		Answer:     rrsetsFromSection(resp.Answer),
		Authority:  rrsetsFromSection(resp.Ns),
		Additional: rrsetsFromSection(resp.Extra),
		RTTMillis:  &rtt,
	}
}

func (r *Resolver) logHop(h Hop) {
	r.logger.logHop(h)
}

func parseRecordType(s string) (rtype uint16, typeStr string, ok bool) {
	switch strings.ToUpper(s) {
	case "A":
		return dns.TypeA, "A", true
	case "AAAA":
		return dns.TypeAAAA, "AAAA", true
	case "CNAME":
		return dns.TypeCNAME, "CNAME", true
	default:
		return 0, "", false
	}
}

func hasType(rrs []dns.RR, rtype uint16) bool {
	for _, rr := range rrs {
		if rr.Header().Rrtype == rtype {
			return true
		}
	}
	return false
}

func firstCNAMETarget(rrs []dns.RR) (string, bool) {
	for _, rr := range rrs {
		if c, ok := rr.(*dns.CNAME); ok {
			return c.Target, true
		}
	}
	return "", false
}

func extractFinalIPs(rrsets []RRSet) []string {
	var ips []string
	for _, set := range rrsets {
		if set.Rdtype != "A" && set.Rdtype != "AAAA" {
			continue
		}
		for _, rec := range set.Records {
			fields := strings.Fields(rec.Value)
			if len(fields) == 0 {
				continue
			}
			ips = append(ips, fields[0])
		}
	}
	return ips
}

func minTTLOf(rrsets []RRSet) uint32 {
	var lowest uint32
	first := true
	for _, s := range rrsets {
		if first || s.TTL < lowest {
			lowest = s.TTL
			first = false
		}
	}
	return lowest
}

func msRound2(d time.Duration) float64 {
	ms := float64(d.Nanoseconds()) / 1e6
	return math.Round(ms*100) / 100
}
