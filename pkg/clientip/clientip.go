package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Resolver extracts the client address used for rate limiting and logs.
type Resolver struct {
	// TrustedHops is the number of reverse proxies in front of the app that
	// append to X-Forwarded-For. Zero means the peer address is used as is.
	TrustedHops int
}

// Default is used by RealClientIP. Configured once at startup.
var Default = Resolver{}

// RealClientIP resolves the request with the Default resolver.
func RealClientIP(r *http.Request) string {
	return Default.ClientIP(r)
}

// ClientIP returns the peer IP, or the X-Forwarded-For entry added by the
// outermost trusted proxy. Entries further left are client controlled and
// never used.
func (res Resolver) ClientIP(r *http.Request) string {
	peer := hostOnly(r.RemoteAddr)
	if res.TrustedHops <= 0 {
		return peer
	}
	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	i := len(hops) - res.TrustedHops
	if i < 0 || net.ParseIP(hostOnly(hops[i])) == nil {
		return peer
	}
	return hostOnly(hops[i])
}

func hostOnly(addr string) string {
	addr = strings.TrimSpace(addr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
