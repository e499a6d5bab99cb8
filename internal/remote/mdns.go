package remote

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	SSHService = "_ssh._tcp"

	DefaultDiscoveryTimeout = 3 * time.Second
)

// Host is a host advertising a service on the local link.
type Host struct {
	Instance  string // advertised name, e.g. "raspberrypi02"
	Hostname  string // DNS name, e.g. "raspberrypi02.local."
	Addresses []net.IP
	Port      int
}

// Discover browses the local link for service until ctx is done. Results are
// deduplicated by host name and port and sorted by host name.
func Discover(ctx context.Context, service string) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(map[string]Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}

				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)

				found[fmt.Sprintf("%s|%d", e.HostName, e.Port)] = Host{
					Instance:  strings.ReplaceAll(e.Instance, `\ `, " "),
					Hostname:  e.HostName,
					Addresses: addrs,
					Port:      e.Port,
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	if err = resolver.Browse(ctx, service, "local.", entries); err != nil {
		return nil, fmt.Errorf("browse error: %w", err)
	}

	<-done

	hosts := make([]Host, 0, len(found))
	for _, h := range found {
		hosts = append(hosts, h)
	}
	slices.SortFunc(hosts, func(a, b Host) int {
		return strings.Compare(a.Hostname, b.Hostname)
	})

	return hosts, nil
}

// MDNSResolver resolves ".local" names by browsing for SSH services, for
// hosts where the system resolver has no mDNS support.
type MDNSResolver struct {
	Timeout time.Duration
}

func (r MDNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hosts, err := Discover(ctx, SSHService)
	if err != nil {
		return "", err
	}

	if addr, ok := lookup(hosts, host); ok {
		return addr, nil
	}
	return "", fmt.Errorf("host %s not found on the local link", host)
}

// lookup prefers IPv4 addresses of the host whose name matches.
func lookup(hosts []Host, host string) (string, bool) {
	name := strings.ToLower(strings.TrimSuffix(host, "."))

	for _, h := range hosts {
		if strings.ToLower(strings.TrimSuffix(h.Hostname, ".")) != name || len(h.Addresses) == 0 {
			continue
		}
		for _, ip := range h.Addresses {
			if ip.To4() != nil {
				return ip.String(), true
			}
		}
		return h.Addresses[0].String(), true
	}

	return "", false
}
