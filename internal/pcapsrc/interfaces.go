package pcapsrc

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoInterface is returned when no usable capture interface exists.
var ErrNoInterface = errors.New("no up, non-loopback interface with an IPv4 address")

// Interface is a capture candidate with its first IPv4 network.
type Interface struct {
	Name string
	IP   net.IP
	Net  *net.IPNet
	Up   bool
	Loop bool
}

// ListInterfaces returns every interface that carries an IPv4 address.
func ListInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("could not list interfaces: %w", err)
	}

	var out []Interface
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		ip, ipnet, ok := firstIPv4(addrs)
		if !ok {
			continue
		}
		out = append(out, Interface{
			Name: iface.Name,
			IP:   ip,
			Net:  ipnet,
			Up:   iface.Flags&net.FlagUp != 0,
			Loop: iface.Flags&net.FlagLoopback != 0,
		})
	}
	return out, nil
}

// DefaultInterface picks the first interface that is up, not loopback and has IPv4.
func DefaultInterface() (Interface, error) {
	ifaces, err := ListInterfaces()
	if err != nil {
		return Interface{}, err
	}
	return pickInterface(ifaces)
}

func pickInterface(ifaces []Interface) (Interface, error) {
	for _, iface := range ifaces {
		if iface.Up && !iface.Loop {
			return iface, nil
		}
	}
	return Interface{}, ErrNoInterface
}

func firstIPv4(addrs []net.Addr) (net.IP, *net.IPNet, bool) {
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4, ipnet, true
			}
		}
	}
	return nil, nil, false
}
