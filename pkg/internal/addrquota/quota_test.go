package addrquota

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuota_Blocked(t *testing.T) {
	q := NewQuota(0.001, 2, 16)
	a := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1000}
	b := &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 2000} // same range
	c := &net.TCPAddr{IP: net.ParseIP("10.0.1.7"), Port: 2000}

	require.False(t, q.Blocked(a))
	require.False(t, q.Blocked(b))
	assert.True(t, q.Blocked(a))
	assert.False(t, q.Blocked(c))
}

func TestQuota_Nil(t *testing.T) {
	var q *Quota
	assert.False(t, q.Blocked(&net.TCPAddr{IP: net.ParseIP("127.0.0.1")}))
}

func TestIPKey(t *testing.T) {
	assert.Equal(t, "192.168.1.0", ipKey(&net.TCPAddr{IP: net.ParseIP("192.168.1.77"), Port: 5}))
	assert.Equal(t, "", ipKey(nil))
}
