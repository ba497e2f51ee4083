// Package security guards outbound webhook traffic.
//
// The Discord webhook URL is operator configuration, but it is still a URL
// the relay will POST to on every event. GuardedClient refuses to connect to
// loopback, private, link-local (including the cloud metadata endpoint) and
// other non-routable ranges. The check runs in the dialer's Control hook, so
// it sees the address actually being connected to after DNS resolution and
// on every redirect hop.
package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a connection targets a blocked range.
var ErrBlockedAddress = errors.New("egress: connection to blocked address")

// ErrTooManyRedirects is returned when the redirect limit is exceeded.
var ErrTooManyRedirects = errors.New("egress: too many redirects")

// ErrInsecureURL is returned by CheckWebhookURL for non-HTTPS URLs.
var ErrInsecureURL = errors.New("egress: webhook url must use https")

// BlockedPrefixes are never dialed by a guarded client.
var BlockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),    // loopback
	netip.MustParsePrefix("10.0.0.0/8"),     // private
	netip.MustParsePrefix("172.16.0.0/12"),  // private
	netip.MustParsePrefix("192.168.0.0/16"), // private
	netip.MustParsePrefix("169.254.0.0/16"), // link-local, instance metadata
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("224.0.0.0/4"), // multicast
	netip.MustParsePrefix("240.0.0.0/4"), // reserved
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("::1/128"),
}

// IsBlocked reports whether addr falls in any blocked prefix. IPv4-mapped
// IPv6 addresses are unmapped first.
func IsBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range BlockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// control rejects blocked destinations before the socket connects.
func control(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", ErrBlockedAddress, address)
	}
	if IsBlocked(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

// NewGuardedClient returns an http.Client whose transport refuses blocked
// destinations and follows at most maxRedirects redirects. Per-request
// timeouts are left to the caller's context.
func NewGuardedClient(maxRedirects int) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   control,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, maxRedirects)
			}
			return nil
		},
	}
}

// CheckWebhookURL performs the static checks: absolute https URL with a
// host, and no literal IP in a blocked range.
func CheckWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("egress: invalid webhook url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return ErrInsecureURL
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("egress: webhook url has no host")
	}
	if addr, err := netip.ParseAddr(host); err == nil && IsBlocked(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}
