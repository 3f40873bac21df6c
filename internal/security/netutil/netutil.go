package netutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

var ErrBlockedDestination = errors.New("destination resolves to private/reserved address")

var privateNets = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"0.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

// IsPrivateIP returns true if the IP is in a private, loopback, link-local or reserved range
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, network := range privateNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// CheckURL rejects non-http(s) URLs and hosts that resolve into private
// ranges. Loopback is allowed when allowLoopback is set, for local testing.
func CheckURL(raw string, allowLoopback bool) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("must use HTTP or HTTPS")
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}

	blocked := func(ip net.IP) bool {
		return IsPrivateIP(ip) && !(allowLoopback && ip.IsLoopback())
	}
	if ip := net.ParseIP(host); ip != nil {
		if blocked(ip) {
			return nil, ErrBlockedDestination
		}
		return u, nil
	}
	if addrs, err := net.LookupIP(host); err == nil {
		for _, a := range addrs {
			if blocked(a) {
				return nil, ErrBlockedDestination
			}
		}
	}
	return u, nil
}
