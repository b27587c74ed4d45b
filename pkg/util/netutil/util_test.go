package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPort(t *testing.T) {
	host, port := HostPort(NewAddr("play.example.com:25566", "tcp"))
	assert.Equal(t, "play.example.com", host)
	assert.Equal(t, uint16(25566), port)

	host, port = HostPort(NewAddr("localhost", "tcp"))
	assert.Equal(t, "localhost", host)
	assert.Zero(t, port)

	assert.Equal(t, "10.0.0.1", Host(&net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1234}))
}

func TestNewAddr(t *testing.T) {
	addr := NewAddr("host:123", "tcp")
	require.Equal(t, "host:123", addr.String())
	require.Equal(t, "tcp", addr.Network())
}

func TestSplitHostPort_isMissingPortErr(t *testing.T) {
	_, _, err := net.SplitHostPort("host-without-port")
	require.True(t, isMissingPortErr(err))
}

func TestSanitizeIP(t *testing.T) {
	require.Equal(t, "127.0.0.1", SanitizeIP(&address{addr: "127.0.0.1:25565"}))
	require.Equal(t, "fe80::1", SanitizeIP(&address{addr: "[fe80::1%eth0]:25565"}))
}
