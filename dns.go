package dnsresolver

import (
	"strings"

	"github.com/miekg/dns"
)

// rrValue returns the type-specific text representation of rr, i.e. its
// string form with the header (name, class, ttl, type) stripped off.
func rrValue(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}

// trimTrailingDot strips a single trailing root-label dot, leaving the root
// name "." itself untouched.
func trimTrailingDot(s string) string {
	if s == "." {
		return s
	}
	return strings.TrimSuffix(s, ".")
}

// absolute returns name in fully-qualified (trailing-dot) form.
func absolute(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// rrsetsFromSection groups rr by (name, type) preserving first-seen order
// and serializes each group into an RRSet.
func rrsetsFromSection(rrs []dns.RR) []RRSet {
	type key struct {
		name  string
		rtype uint16
	}

	var order []key
	byKey := map[key]*RRSet{}

	for _, rr := range rrs {
		hdr := rr.Header()
		k := key{name: hdr.Name, rtype: hdr.Rrtype}

		set, ok := byKey[k]
		if !ok {
			set = &RRSet{
				Name:   hdr.Name,
				Rdtype: dns.TypeToString[hdr.Rrtype],
				TTL:    hdr.Ttl,
			}
			byKey[k] = set
			order = append(order, k)
		} else if hdr.Ttl < set.TTL {
			set.TTL = hdr.Ttl
		}

		set.Records = append(set.Records, Record{Value: rrValue(rr)})
	}

	out := make([]RRSet, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}
