package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	r.Header.Add("X-Forwarded-For", "1.1.1.1, 203.0.113.9")

	assert.Equal(t, "10.0.0.5", Resolver{}.ClientIP(r))
	assert.Equal(t, "203.0.113.9", Resolver{TrustedHops: 1}.ClientIP(r))
	assert.Equal(t, "1.1.1.1", Resolver{TrustedHops: 2}.ClientIP(r))
	assert.Equal(t, "10.0.0.5", Resolver{TrustedHops: 3}.ClientIP(r))
}

func TestClientIP_IgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	r.Header.Set("X-Forwarded-For", "not-an-ip")

	assert.Equal(t, "10.0.0.5", Resolver{TrustedHops: 1}.ClientIP(r))
}

func TestRealClientIP_UsesDefault(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:80"
	assert.Equal(t, "192.0.2.1", RealClientIP(r))
}
