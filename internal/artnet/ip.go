package artnet

import (
	"fmt"
	"net"
	"strings"
)

const (
	// defaultAddressRange specifies the network CIDR an art-net network usually has.
	defaultAddressRange = "2.0.0.0/8"
)

// FindArtNetIP finds the matching interface with an IP address inside addressRange.
func FindArtNetIP(addressRange string) (net.IP, error) {
	if addressRange == "" {
		addressRange = defaultAddressRange
	}
	_, cidrNet, err := net.ParseCIDR(addressRange)
	if err != nil {
		return nil, fmt.Errorf("invalid art-net network %q: %w", addressRange, err)
	}
	address, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting ips: %w", err)
	}

	for _, addr := range address {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP

		if strings.Contains(ip.String(), ":") {
			continue
		}

		if cidrNet.Contains(ip) {
			return ip, nil
		}
	}

	return nil, nil
}

// listenAddress returns listen, with the host replaced by the interface IP inside network if set.
func listenAddress(listen, network string) (string, error) {
	if network == "" {
		return listen, nil
	}
	_, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	ip, err := FindArtNetIP(network)
	if err != nil {
		return "", err
	}
	if len(ip) == 0 {
		return "", fmt.Errorf("failed to find the art-net IP in %s: No interface found", network)
	}
	return net.JoinHostPort(ip.String(), port), nil
}
