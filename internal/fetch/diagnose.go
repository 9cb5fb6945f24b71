package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DNS classes reported by CheckDNS.
const (
	DNSResolves    = "RESOLVES"
	DNSNoAddress   = "NO_A_RECORD"
	DNSNotFound    = "NXDOMAIN"
	DNSUnreachable = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"
)

const dnsLookupBudget = 3 * time.Second

// DNSStatus explains whether the source host resolves. It is used to tell
// "the site is down" apart from "our resolver is broken" after a failed
// navigation.
type DNSStatus struct {
	Host          string
	IPs           []net.IP
	Nameservers   []string
	Class         string
	ResolverError string
}

// CheckDNS classifies host using the OS resolver.
func CheckDNS(ctx context.Context, host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") {
		s.Class = DNSInvalidName
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, dnsLookupBudget)
	defer cancel()
	r := &net.Resolver{}

	ips, err := r.LookupIP(ctx, "ip", s.Host)
	switch {
	case err == nil && len(ips) > 0:
		s.IPs = ips
		s.Class = DNSResolves
		return s
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) && de.IsNotFound {
			s.Class = DNSNotFound
		} else {
			s.Class = DNSUnreachable
		}
	default:
		s.Class = DNSNotFound
	}

	// A zone with nameservers but no address records is misconfigured, not missing.
	if ns, err := r.LookupNS(ctx, s.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNotFound {
			s.Class = DNSNoAddress
		}
	}
	return s
}

// Reachability is a plain HTTP GET of the source page, without rendering.
type Reachability struct {
	StatusCode int
	Status     string
	Latency    time.Duration
	Err        error
}

func (r Reachability) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 400
}

// CheckHTTP fetches rawURL once with client.
func CheckHTTP(ctx context.Context, client *http.Client, rawURL string) Reachability {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Reachability{Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Reachability{Err: err, Latency: time.Since(start)}
	}
	defer resp.Body.Close()
	return Reachability{StatusCode: resp.StatusCode, Status: resp.Status, Latency: time.Since(start)}
}

// HostOf returns the hostname in rawURL, or rawURL itself if it has none.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
