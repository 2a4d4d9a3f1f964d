// Command dnstrace performs a single iterative DNS resolution and prints the
// final IPs, or with -v the full JSON result including the trace.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	dnsresolver "github.com/dnsexplain/dnstrace"
)

func main() {
	var (
		name     = flag.String("name", "", "domain name to resolve")
		rtype    = flag.String("type", "A", "record type: A, AAAA, or CNAME")
		useCache = flag.Bool("cache", false, "consult and populate the TTL cache")
		verbose  = flag.Bool("v", false, "print the full JSON trace instead of just the final IPs")
		timeout  = flag.Duration("timeout", dnsresolver.DefaultTimeout, "per-UDP-exchange timeout")
	)
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: dnstrace -name <domain> [-type A|AAAA|CNAME] [-cache] [-v]")
		os.Exit(2)
	}

	logger := dnsresolver.NewLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	r := dnsresolver.New(dnsresolver.Options{Timeout: *timeout, Logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := r.Resolve(ctx, *name, *rtype, *useCache)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *verbose {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(os.Stderr, "error encoding result:", err)
			os.Exit(1)
		}
		return
	}

	if len(result.Summary.FinalIPs) == 0 {
		fmt.Println("no answer")
		return
	}
	for _, ip := range result.Summary.FinalIPs {
		fmt.Println(ip)
	}
}
