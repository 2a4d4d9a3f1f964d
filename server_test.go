package dnsresolver

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
)

// testServer is an in-process authoritative nameserver for a single zone,
// backed by an RFC 1035 zonefile, listening on addr:5354/udp. It serves
// A, AAAA, CNAME, and NS data and attaches A/AAAA glue to NS answers.
type testServer struct {
	dns.Server
}

// newTestServer parses zone (RFC 1035 zonefile text) and starts a server
// listening on addr:5354/udp, shut down automatically when the test ends.
func newTestServer(t *testing.T, addr, zone string) *testServer {
	t.Helper()

	db := map[uint16]map[string][]dns.RR{}

	zp := dns.NewZoneParser(strings.NewReader(strings.TrimSpace(zone)+"\n"), ".", addr+".zone")
	zp.SetIncludeAllowed(false)

	for {
		rr, ok := zp.Next()
		if !ok {
			break
		}
		hdr := rr.Header()
		if db[hdr.Rrtype] == nil {
			db[hdr.Rrtype] = map[string][]dns.RR{}
		}
		db[hdr.Rrtype][hdr.Name] = append(db[hdr.Rrtype][hdr.Name], rr)
	}
	if err := zp.Err(); err != nil {
		t.Fatalf("parsing test zone: %v", err)
	}

	ln, err := net.ListenPacket("udp", addr+":5354")
	if err != nil {
		t.Fatalf("listening on %s:5354/udp: %v", addr, err)
	}

	srv := &testServer{
		Server: dns.Server{
			PacketConn: ln,
			Handler:    zoneHandler(db),
		},
	}

	stopping := make(chan struct{})
	t.Cleanup(func() {
		close(stopping)
		srv.Shutdown()
	})

	go func() {
		if err := srv.ActivateAndServe(); err != nil {
			select {
			case <-stopping:
			default:
				t.Errorf("name server on %s: %v", addr, err)
			}
		}
	}()

	return srv
}

// nameAndSuffixes returns name itself followed by each of its parent zone
// names, up to and including the root ".".
func nameAndSuffixes(name string) []string {
	name = dns.CanonicalName(name)
	if name == "." {
		return []string{"."}
	}

	labels := dns.SplitDomainName(name)
	out := make([]string, 0, len(labels)+1)
	for i := 0; i <= len(labels); i++ {
		out = append(out, dns.Fqdn(strings.Join(labels[i:], ".")))
	}
	return out
}

func glueFor(db map[uint16]map[string][]dns.RR, ns []dns.RR) []dns.RR {
	var extra []dns.RR
	for _, rr := range ns {
		n, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		extra = append(extra, db[dns.TypeA][n.Ns]...)
		extra = append(extra, db[dns.TypeAAAA][n.Ns]...)
	}
	return extra
}

// zoneHandler serves a single server's authoritative data, following
// delegations (NS records at or above the query name) when no direct answer
// exists, the way a real nameserver replies with a referral instead of
// NXDOMAIN for a name it isn't authoritative for.
func zoneHandler(db map[uint16]map[string][]dns.RR) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)

		if len(req.Question) != 1 {
			m.SetRcode(req, dns.RcodeFormatError)
			w.WriteMsg(m)
			return
		}

		q := req.Question[0]
		m.SetRcode(req, dns.RcodeSuccess)
		m.Authoritative = true

		if answer := db[q.Qtype][q.Name]; len(answer) > 0 {
			m.Answer = answer
			if q.Qtype == dns.TypeNS {
				m.Extra = glueFor(db, answer)
			}
			w.WriteMsg(m)
			return
		}

		if q.Qtype != dns.TypeCNAME {
			if cname := db[dns.TypeCNAME][q.Name]; len(cname) > 0 {
				m.Answer = cname
				w.WriteMsg(m)
				return
			}
		}

		for _, suffix := range nameAndSuffixes(q.Name) {
			ns := db[dns.TypeNS][suffix]
			if len(ns) == 0 {
				continue
			}
			m.Ns = ns
			m.Extra = glueFor(db, ns)
			w.WriteMsg(m)
			return
		}

		m.SetRcode(req, dns.RcodeNameError)
		w.WriteMsg(m)
	})
}

// newResolverForLab returns a Resolver wired to use rootAddr (on 5354/udp) as
// its only root server candidate.
func newResolverForLab(rootAddr string) *Resolver {
	r := New(Options{Timeout: DefaultTimeout, CacheCapacity: DefaultCacheCapacity, StepCap: DefaultStepCap})
	r.testRoots = []string{rootAddr}
	r.testPort = "5354"
	return r
}
