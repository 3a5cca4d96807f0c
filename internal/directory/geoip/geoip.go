// Package geoip resolves client IPs to coarse regions from a static CIDR table.
package geoip

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

type rule struct {
	prefix netip.Prefix
	region string
}

// StaticResolver matches the most specific configured prefix.
type StaticResolver struct {
	rules []rule
}

// ParseTable parses "cidr=region" pairs separated by ';'. An empty table is valid
// and resolves nothing.
func ParseTable(raw string) (*StaticResolver, error) {
	r := &StaticResolver{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cidr, region, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(region) == "" {
			return nil, fmt.Errorf("invalid geoip rule %q: want cidr=region", part)
		}
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("invalid geoip prefix %q: %w", cidr, err)
		}
		r.rules = append(r.rules, rule{prefix: prefix.Masked(), region: strings.TrimSpace(region)})
	}
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].prefix.Bits() > r.rules[j].prefix.Bits()
	})
	return r, nil
}

// ResolveRegion returns the region for ip, or false when no rule matches or
// the address cannot be parsed.
func (r *StaticResolver) ResolveRegion(_ context.Context, ip string) (string, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", false
	}
	addr = addr.Unmap()
	for _, rl := range r.rules {
		if rl.prefix.Contains(addr) {
			return rl.region, true
		}
	}
	return "", false
}
