package geoip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	t.Run("empty table resolves nothing", func(t *testing.T) {
		r, err := ParseTable("")
		require.NoError(t, err)
		_, ok := r.ResolveRegion(context.Background(), "203.0.113.5")
		assert.False(t, ok)
	})

	t.Run("rejects malformed rules", func(t *testing.T) {
		_, err := ParseTable("203.0.113.0/24")
		assert.Error(t, err)
		_, err = ParseTable("not-a-cidr=us-west")
		assert.Error(t, err)
		_, err = ParseTable("203.0.113.0/24=")
		assert.Error(t, err)
	})
}

func TestResolveRegion(t *testing.T) {
	r, err := ParseTable("203.0.0.0/8=apac; 203.0.113.0/24=us-west ;2001:db8::/32=eu-central")
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name   string
		ip     string
		region string
		ok     bool
	}{
		{name: "most specific prefix wins", ip: "203.0.113.7", region: "us-west", ok: true},
		{name: "broader prefix", ip: "203.1.2.3", region: "apac", ok: true},
		{name: "ipv6", ip: "2001:db8::1", region: "eu-central", ok: true},
		{name: "ipv4-mapped ipv6", ip: "::ffff:203.0.113.7", region: "us-west", ok: true},
		{name: "no match", ip: "198.51.100.1", ok: false},
		{name: "unparseable", ip: "garbage", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, ok := r.ResolveRegion(ctx, tt.ip)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.region, region)
		})
	}
}
