package pcapsrc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickInterfaceSkipsLoopbackAndDown(t *testing.T) {
	ifaces := []Interface{
		{Name: "lo", Up: true, Loop: true},
		{Name: "eth0", Up: false},
		{Name: "wlan0", Up: true},
	}

	got, err := pickInterface(ifaces)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", got.Name)
}

func TestPickInterfaceNone(t *testing.T) {
	_, err := pickInterface([]Interface{{Name: "lo", Up: true, Loop: true}})
	assert.ErrorIs(t, err, ErrNoInterface)
}

func TestFirstIPv4(t *testing.T) {
	_, v6, err := net.ParseCIDR("fe80::1/64")
	require.NoError(t, err)
	_, v4, err := net.ParseCIDR("192.168.1.0/24")
	require.NoError(t, err)

	ip, ipnet, ok := firstIPv4([]net.Addr{v6, v4})
	require.True(t, ok)
	assert.Equal(t, net.IPv4(192, 168, 1, 0).To4(), ip)
	assert.Equal(t, v4, ipnet)

	_, _, ok = firstIPv4([]net.Addr{v6})
	assert.False(t, ok)
}
