// Package netutil has helpers for network addresses.
package netutil

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// Host returns the host of net.Addr.
func Host(addr net.Addr) string {
	host, _, _ := splitHostPort(addr.String())
	return host
}

// HostPort returns the split host and port of a net.Addr.
func HostPort(addr net.Addr) (host string, port uint16) {
	host, port, _ = splitHostPort(addr.String())
	return
}

// NewAddr creates a new net.Addr without format validation.
func NewAddr(addr, network string) net.Addr {
	return &address{addr: addr, network: network}
}

// SanitizeIP returns the plain ip of addr as it is forwarded to backend servers.
// IPv6 zones and brackets are removed.
func SanitizeIP(addr net.Addr) string {
	host := Host(addr)
	if i := strings.IndexByte(host, '%'); i != -1 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func splitHostPort(addr string) (host string, port uint16, err error) {
	portInt := 0
	portStr := ""
	host, portStr, err = net.SplitHostPort(addr)
	if err == nil {
		portInt, err = strconv.Atoi(portStr)
	} else if isMissingPortErr(err) {
		host = addr
		err = nil
	}
	return host, uint16(portInt), err
}

type address struct{ network, addr string }

func (c *address) Network() string { return c.network }
func (c *address) String() string  { return c.addr }

var _ net.Addr = (*address)(nil)

func isMissingPortErr(err error) bool {
	var addrErr *net.AddrError
	return err != nil && errors.As(err, &addrErr) && addrErr.Err == "missing port in address"
}
