package utils

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + time.Minute + time.Second, "2h 1m 1s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeDuration(tt.in))
		})
	}
}

func TestJoinCommand(t *testing.T) {
	assert.Equal(t, "shroud join calm-otter-lamp", JoinCommand("calm-otter-lamp"))
}

func TestBehindTunnel(t *testing.T) {
	addr := func(s string) []netip.Addr { return []netip.Addr{netip.MustParseAddr(s)} }

	tests := []struct {
		name   string
		ifaces []netIface
		want   bool
	}{
		{"plain lan", []netIface{{Name: "eth0", Up: true, Addrs: addr("192.168.1.20")}}, false},
		{"wireguard", []netIface{{Name: "wg0", Up: true}}, true},
		{"openvpn", []netIface{{Name: "tun0", Up: true}}, true},
		{"warp", []netIface{{Name: "CloudflareWARP", Up: true}}, true},
		{"cgnat address", []netIface{{Name: "eth0", Up: true, Addrs: addr("100.100.1.1")}}, true},
		{"cgnat mapped v6", []netIface{{Name: "eth0", Up: true, Addrs: addr("::ffff:100.64.0.1")}}, true},
		{"just outside cgnat", []netIface{{Name: "eth0", Up: true, Addrs: addr("100.128.0.1")}}, false},
		{"tunnel down", []netIface{{Name: "wg0", Up: false}}, false},
		{"none", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, behindTunnel(tt.ifaces))
		})
	}
}
