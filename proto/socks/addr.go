package socks

import (
	"fmt"
	"net"
	"strings"

	"github.com/arkime-go/sesscore/bsb"
)

const (
	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04
)

// addr is a decoded SOCKS5 address: a host string (dotted IPv4,
// bracket-free IPv6, or a lowercased domain name) plus a port.
type addr struct {
	host string
	port uint16
}

// decodeAddr reads an ATYP-tagged address starting at data[0], per the
// SOCKS5 address encoding used by both CONNECT requests and replies.
// It returns the address and how many bytes were consumed, or ok=false
// if data doesn't yet hold a complete address.
func decodeAddr(data []byte) (addr, int, bool) {
	b := bsb.New(data)

	var a addr
	switch b.ImportU8() {
	case atypIPv4:
		a.host = net.IP(b.ImportPtr(4)).String()
	case atypIPv6:
		a.host = net.IP(b.ImportPtr(16)).String()
	case atypDomain:
		n := int(b.ImportU8())
		a.host = strings.ToLower(string(b.ImportPtr(n)))
	default:
		return addr{}, 0, false
	}
	a.port = b.ImportU16()

	if b.IsError() {
		return addr{}, 0, false
	}
	return a, b.Length(), true
}

func (a addr) String() string { return fmt.Sprintf("%s:%d", a.host, a.port) }
