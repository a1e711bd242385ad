package sntp

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

// AddressResolver resolves a hostname into an IPv4 address.
type AddressResolver interface {
	LookupIPv4(ctx context.Context, host string) (net.IP, error)
}

// NetResolver implements AddressResolver using a net.Resolver.
type NetResolver struct {
	Resolver *net.Resolver
}

// LookupIPv4 returns the first IPv4 address of the given host.
func (r NetResolver) LookupIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, errors.Errorf("%s is not an ipv4 address", host)
	}

	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}

	ips, err := res.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, errors.Wrap(err, "lookup ip error")
	}

	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}

	return nil, errors.Errorf("no ipv4 address found for %s", host)
}
