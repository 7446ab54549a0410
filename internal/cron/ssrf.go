package cron

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHostSuffixes rejects obviously-internal hostnames before a DNS
// lookup is even attempted.
var blockedHostSuffixes = []string{".local", ".localhost", ".internal"}

// validateWebhookURL rejects anything but http/https, then resolves the
// host and rejects loopback, link-local, and private address ranges — a
// webhook target controlled by a job's author must not be able to reach
// the host's internal network.
func validateWebhookURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook url")
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid webhook url")
	}

	lower := strings.ToLower(host)
	for _, suffix := range blockedHostSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return nil, fmt.Errorf("webhook target is not reachable: internal hostname")
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := rejectUnsafeIP(ip); err != nil {
			return nil, err
		}
		return u, nil
	}

	var resolver net.Resolver
	ips, err := resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("webhook target did not resolve: %w", err)
	}
	for _, ip := range ips {
		if err := rejectUnsafeIP(ip); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func rejectUnsafeIP(ip net.IP) error {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || isPrivate(ip) {
		return fmt.Errorf("webhook target is not reachable: private/internal address")
	}
	return nil
}

var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10", // carrier-grade NAT
	"fc00::/7",      // unique local IPv6
)

func isPrivate(ip net.IP) bool {
	for _, b := range privateBlocks {
		if b.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
