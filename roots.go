package dnsresolver

import "math/rand/v2"

// rootServers is the compiled-in list of the 13 IPv4 addresses for the DNS
// root nameservers, A-root through M-root.
var rootServers = []string{
	"198.41.0.4",     // a.root-servers.net
	"199.9.14.201",   // b.root-servers.net
	"192.33.4.12",    // c.root-servers.net
	"199.7.91.13",    // d.root-servers.net
	"192.203.230.10", // e.root-servers.net
	"192.5.5.241",    // f.root-servers.net
	"192.112.36.4",   // g.root-servers.net
	"198.97.190.53",  // h.root-servers.net
	"192.36.148.17",  // i.root-servers.net
	"192.58.128.30",  // j.root-servers.net
	"193.0.14.129",   // k.root-servers.net
	"199.7.83.42",    // l.root-servers.net
	"202.12.27.33",   // m.root-servers.net
}

// pickRoot returns a uniformly random root server IP.
func pickRoot() string {
	return rootServers[rand.IntN(len(rootServers))]
}

// pickRoot returns a uniformly random root server IP from r.testRoots when
// set (used by the in-process test harness to point the resolver at a fake
// root zone instead of the real internet), falling back to the compiled-in
// root server table otherwise.
func (r *Resolver) pickRoot() string {
	if len(r.testRoots) > 0 {
		return r.testRoots[rand.IntN(len(r.testRoots))]
	}
	return pickRoot()
}
