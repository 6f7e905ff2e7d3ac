package router

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/shandysiswandi/passgate/internal/pkg/config"
)

// trustedProxies is the set of peers allowed to report the client address
// through forwarding headers.
type trustedProxies []netip.Prefix

// newTrustedProxies reads app.server.trusted_proxies, a comma separated list
// of addresses or CIDR ranges. Invalid entries are skipped with a warning.
func newTrustedProxies(cfg config.Config) trustedProxies {
	if cfg == nil {
		return nil
	}

	var out trustedProxies
	for _, entry := range cfg.GetArray("app.server.trusted_proxies") {
		if p, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
			continue
		}
		slog.Warn("ignoring invalid trusted proxy", "entry", entry)
	}
	return out
}

func (tp trustedProxies) contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range tp {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func middlewareIP(tp trustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := tp.realIP(r); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// realIP returns the socket address unless the peer is a trusted proxy, in
// which case True-Client-IP, X-Real-IP and the first X-Forwarded-For hop are
// consulted in that order.
func (tp trustedProxies) realIP(r *http.Request) string {
	peer := clientIP(r)
	if !tp.contains(peer) {
		return peer
	}

	candidates := []string{
		r.Header.Get("True-Client-IP"),
		r.Header.Get("X-Real-IP"),
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, first)
	}

	for _, c := range candidates {
		if c = strings.TrimSpace(c); net.ParseIP(c) != nil {
			return c
		}
	}

	return peer
}

// clientIP strips the port from RemoteAddr if there is one.
func clientIP(r *http.Request) string {
	if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || net.ParseIP(host) == nil {
		return ""
	}
	return host
}
