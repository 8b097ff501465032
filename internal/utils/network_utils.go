package utils

import (
	"net"
	"net/netip"
	"strings"
)

// Interface name fragments of VPN and tunnel adapters (OpenVPN, TAP,
// WireGuard, PPP, Cloudflare WARP).
var tunnelMarkers = []string{"tun", "tap", "wg", "ppp", "warp"}

// Carrier-grade NAT range, also used by WARP and Tailscale.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// netIface is the part of a network interface the relay heuristic looks at.
type netIface struct {
	Name  string
	Up    bool
	Addrs []netip.Addr
}

// ShouldForceRelay reports whether this host looks like it sits behind a
// VPN or CGNAT, where direct peer connections rarely succeed.
func ShouldForceRelay() bool {
	ifaces, err := localIfaces()
	if err != nil {
		return false
	}
	return behindTunnel(ifaces)
}

func behindTunnel(ifaces []netIface) bool {
	for _, iface := range ifaces {
		if !iface.Up {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, marker := range tunnelMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}

		for _, addr := range iface.Addrs {
			if cgnat.Contains(addr.Unmap()) {
				return true
			}
		}
	}
	return false
}

// localIfaces lists interfaces that are up and not loopback.
func localIfaces() ([]netIface, error) {
	netIfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []netIface
	for _, ni := range netIfaces {
		if ni.Flags&net.FlagLoopback != 0 {
			continue
		}
		iface := netIface{Name: ni.Name, Up: ni.Flags&net.FlagUp != 0}

		addrs, err := ni.Addrs()
		if err == nil {
			for _, a := range addrs {
				var ip net.IP
				switch v := a.(type) {
				case *net.IPNet:
					ip = v.IP
				case *net.IPAddr:
					ip = v.IP
				}
				if addr, ok := netip.AddrFromSlice(ip); ok {
					iface.Addrs = append(iface.Addrs, addr)
				}
			}
		}
		out = append(out, iface)
	}
	return out, nil
}
