package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/suite"

	"placeclaim/pkg/requestcontext"
)

type MetadataSuite struct {
	suite.Suite
}

func TestMetadataSuite(t *testing.T) {
	suite.Run(t, new(MetadataSuite))
}

func (s *MetadataSuite) resolve(cfg Config, remoteAddr string, headers map[string]string) (string, string) {
	var ip, ua string
	h := NewMiddleware(cfg).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return ip, ua
}

func (s *MetadataSuite) TestClientIP() {
	trusted := Config{TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}}

	s.Run("uses remote addr without proxies", func() {
		ip, ua := s.resolve(Config{}, "203.0.113.9:5123", map[string]string{
			"X-Forwarded-For": "198.51.100.1",
			"User-Agent":      "curl/8.0",
		})
		s.Equal("203.0.113.9", ip)
		s.Equal("curl/8.0", ua)
	})

	s.Run("trusts first XFF hop from trusted proxy", func() {
		ip, _ := s.resolve(trusted, "10.1.2.3:443", map[string]string{
			"X-Forwarded-For": "198.51.100.1, 10.1.2.3",
		})
		s.Equal("198.51.100.1", ip)
	})

	s.Run("ignores malformed XFF", func() {
		ip, _ := s.resolve(trusted, "10.1.2.3:443", map[string]string{
			"X-Forwarded-For": "not-an-ip",
		})
		s.Equal("10.1.2.3", ip)
	})

	s.Run("handles bracketed ipv6", func() {
		ip, _ := s.resolve(Config{}, "[2001:db8::1]:8080", nil)
		s.Equal("2001:db8::1", ip)
	})
}

func (s *MetadataSuite) TestParseTrustedProxies() {
	prefixes, err := ParseTrustedProxies("10.0.0.0/8, ,192.168.0.0/16")
	s.Require().NoError(err)
	s.Len(prefixes, 2)

	_, err = ParseTrustedProxies("nope")
	s.Error(err)
}
