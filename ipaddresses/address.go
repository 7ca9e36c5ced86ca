package ipaddresses

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAddress is wrapped by errors about malformed dotted-quad IPv4 addresses.
var ErrInvalidAddress = errors.New("invalid IP address")

// ErrInvalidCIDR is wrapped by errors about malformed IPv4 CIDR blocks.
var ErrInvalidCIDR = errors.New("invalid CIDR notation")

// ParseIPAddress converts a dotted-quad IPv4 address to its 32-bit value. Each octet must be 1 to 3
// decimal digits, so signs, spaces and hex are rejected.
func ParseIPAddress(ipAddr string) (ip uint32, err error) {
	octets := strings.Split(ipAddr, ".")
	if len(octets) != 4 {
		err = fmt.Errorf("%w: %q", ErrInvalidAddress, ipAddr)
		return
	}

	for _, octet := range octets {
		if len(octet) == 0 || len(octet) > 3 || strings.Trim(octet, "0123456789") != "" {
			err = fmt.Errorf("%w: %q", ErrInvalidAddress, ipAddr)
			return
		}

		b, _ := strconv.Atoi(octet)
		if b > 255 {
			err = fmt.Errorf("%w: %q", ErrInvalidAddress, ipAddr)
			return
		}

		ip = ip<<8 | uint32(b)
	}

	return
}

// ParseCIDR converts "a.b.c.d/n" to the network prefix and mask. Host bits set in the address are cleared.
func ParseCIDR(cidr string) (prefix uint32, mask uint32, err error) {
	ipAddr, suffix, found := strings.Cut(cidr, "/")
	if !found {
		err = fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		return
	}

	ip, perr := ParseIPAddress(ipAddr)
	if perr != nil {
		err = fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		return
	}

	bits, perr := strconv.Atoi(suffix)
	if perr != nil || bits < 0 || bits > 32 || strings.Trim(suffix, "0123456789") != "" {
		err = fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		return
	}

	// A uint32 shifted by 32 is 0, the mask of a /0.
	mask = uint32(0xffffffff) << uint32(32-bits)
	prefix = ip & mask
	return
}

// CIDRBounds returns the first and last address of a CIDR block, both inclusive.
func CIDRBounds(cidr string) (low uint32, high uint32, err error) {
	prefix, mask, err := ParseCIDR(cidr)
	if err != nil {
		return
	}

	low = prefix
	high = prefix | ^mask
	return
}

// HostAddress returns the address part of an IP set descriptor, "1.2.3.4" for "1.2.3.4/32".
// A bare address is returned as is.
func HostAddress(cidr string) (ipAddr string, err error) {
	ipAddr, suffix, found := strings.Cut(cidr, "/")
	if found && strings.Contains(suffix, "/") {
		err = fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		return
	}

	if _, perr := ParseIPAddress(ipAddr); perr != nil {
		ipAddr, err = "", fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
	}
	return
}

// SingleHostCIDR returns the "/32" descriptor of one address, in canonical form.
func SingleHostCIDR(ipAddr string) (cidr string, err error) {
	ip, err := ParseIPAddress(ipAddr)
	if err != nil {
		return
	}

	cidr = ToOctets(ip) + "/32"
	return
}

// ToOctets formats a 32-bit value as a dotted-quad address.
func ToOctets(ip uint32) string {
	var sb strings.Builder
	for shift := 24; shift >= 0; shift -= 8 {
		if shift != 24 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(int(ip >> uint(shift) & 0xff)))
	}
	return sb.String()
}
