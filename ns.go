package dnsresolver

import (
	"context"
	"strings"

	"github.com/miekg/dns"
)

// resolveReferral extracts the next set of candidate nameserver IPs from a
// referral response: for every NS hostname in the authority section, glue
// from the additional section is preferred; a hostname with no glue falls
// back to a nested lookup when allowFallback is set. IPs are deduplicated
// preserving first-seen order: authority NS order, then glue/fallback order
// within each hostname.
func (r *Resolver) resolveReferral(ctx context.Context, resp *dns.Msg, allowFallback bool) []string {
	var hosts []string
	seenHost := map[string]bool{}
	for _, rr := range resp.Ns {
		ns, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		host := strings.ToLower(trimTrailingDot(ns.Ns))
		if seenHost[host] {
			continue
		}
		seenHost[host] = true
		hosts = append(hosts, host)
	}

	glue := map[string][]string{}
	for _, rr := range resp.Extra {
		hdr := rr.Header()
		if hdr.Rrtype != dns.TypeA && hdr.Rrtype != dns.TypeAAAA {
			continue
		}
		host := strings.ToLower(trimTrailingDot(hdr.Name))
		glue[host] = append(glue[host], rrValue(rr))
	}

	var ips []string
	seenIP := map[string]bool{}
	add := func(ip string) {
		if seenIP[ip] {
			return
		}
		seenIP[ip] = true
		ips = append(ips, ip)
	}

	for _, host := range hosts {
		if addrs, ok := glue[host]; ok && len(addrs) > 0 {
			for _, ip := range addrs {
				add(ip)
			}
			continue
		}

		if !allowFallback {
			continue
		}

		for _, ip := range r.lookupNSHost(ctx, host) {
			add(ip)
		}
	}

	return ips
}

// lookupNSHost resolves host's A then AAAA records via a nested, bounded
// call into the resolver itself, standing in for the "system recursive
// resolver" of the original design. Concurrent lookups of the same
// (host, type) pair are coalesced. Failure to resolve either type is
// swallowed: the host simply contributes no IPs.
func (r *Resolver) lookupNSHost(ctx context.Context, host string) []string {
	var ips []string
	for _, typeStr := range []string{"A", "AAAA"} {
		v, err, _ := r.sf.Do(typeStr+":"+host, func() (any, error) {
			res, resolveErr := r.resolve(ctx, host, typeStr, true, false)
			if resolveErr != nil {
				return nil, resolveErr
			}
			return res.Summary.FinalIPs, nil
		})
		if err != nil {
			continue
		}
		if addrs, ok := v.([]string); ok {
			ips = append(ips, addrs...)
		}
	}
	return ips
}
