package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyHeaders are read in order when requests come through cloudflared or
// another trusted proxy.
var proxyHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// HostOnly strips the port from "host:port", "[v6]:port" or returns s as is.
func HostOnly(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientIP is the address the access log, the rate limiter and the CIDR
// allow-list all key on. Proxy headers are only honored with trustProxy, and
// a header value that is not an IP is skipped.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, name := range proxyHeaders {
			if addr, ok := headerAddr(r.Header.Get(name)); ok {
				return addr.String()
			}
		}
	}
	return HostOnly(r.RemoteAddr)
}

// headerAddr parses the left-most entry of a proxy header.
func headerAddr(v string) (netip.Addr, bool) {
	first, _, _ := strings.Cut(v, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(HostOnly(first))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// AddrSet is an allow-list of prefixes. A bare address is a full-length prefix.
type AddrSet struct {
	prefixes []netip.Prefix
}

// ParseAddrSet reads entries like "10.0.0.0/8" or "192.168.1.10". Blank
// entries are skipped, anything else that does not parse comes back in rejected.
func ParseAddrSet(list []string) (set *AddrSet, rejected []string) {
	set = &AddrSet{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			set.prefixes = append(set.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			a = a.Unmap()
			set.prefixes = append(set.prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		rejected = append(rejected, s)
	}
	return set, rejected
}

func (s *AddrSet) Len() int { return len(s.prefixes) }

func (s *AddrSet) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
