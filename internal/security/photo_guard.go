// Package security provides the application's security features.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// PhotoURLGuardService defines URL vetting for user-supplied photo links.
// Profile photo URLs and report photo URLs pass through it before they
// are stored or forwarded to the reporting backend.
type PhotoURLGuardService interface {
	// NewSafeClient creates an HTTP client with SSRF protection.
	// The safeurl library blocks requests to private, loopback,
	// link-local, and metadata IP ranges, and validates resolved
	// addresses at the dialer level to cover DNS rebinding.
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL performs a static safety check on a URL.
	// It validates scheme, host, and IP address and returns an
	// error for unsafe URLs.
	ValidateURL(rawURL string) error
}

// allowedSchemes lists the URL schemes accepted for photo links.
var allowedSchemes = []string{"https"}

// blockedNetworks lists the network ranges rejected for photo links.
// Parsed once at package initialization and consulted by ValidateURL.
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// Private addresses (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// Loopback (RFC 1122)
		"127.0.0.0/8",
		// Link-local (RFC 3927), includes the cloud metadata IP 169.254.169.254
		"169.254.0.0/16",
		// Current network
		"0.0.0.0/8",
		// IPv6 loopback
		"::1/128",
		// IPv6 link-local
		"fe80::/10",
		// IPv6 unique local
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// photoURLGuard implements PhotoURLGuardService.
type photoURLGuard struct{}

// NewPhotoURLGuard creates a new PhotoURLGuardService instance.
func NewPhotoURLGuard() *photoURLGuard {
	return &photoURLGuard{}
}

// NewSafeClient creates an HTTP client with SSRF protection.
// safeurl validates the resolved IP address in the dialer's Control
// hook, so DNS rebinding is also covered.
func (g *photoURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateURL performs a static safety check on a URL.
// The check runs before any network activity; DNS rebinding is handled
// by the dialer validation in clients from NewSafeClient.
func (g *photoURLGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Scheme check: https only for stored photo links
	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	// Host check: reject empty hosts
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	// Literal IP: match against blocked ranges
	ip := net.ParseIP(host)
	if ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	// Hostname: reject localhost and friends
	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// isAllowedScheme reports whether the URL scheme is in the allow list.
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP reports whether the IP falls in a blocked network range.
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// blockedHostnames lists hostnames rejected outright.
var blockedHostnames = []string{
	"localhost",
}

// isBlockedHostname reports whether the hostname is blocked.
func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return true
		}
	}
	return false
}
