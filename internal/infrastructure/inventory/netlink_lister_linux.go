//go:build linux

package inventory

import (
	"context"
	"net"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// NetlinkLister implements LinkLister using github.com/vishvananda/netlink.
type NetlinkLister struct {
	logger *logrus.Logger
}

// NewLinkLister returns the platform LinkLister
func NewLinkLister(logger *logrus.Logger) interfaces.LinkLister {
	return &NetlinkLister{logger: logger}
}

func (l *NetlinkLister) Links(ctx context.Context) ([]entities.LinkInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}

	out := make([]entities.LinkInfo, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil {
			continue
		}

		info := entities.LinkInfo{
			Name:       attrs.Name,
			IsUp:       isUp(attrs),
			IsLoopback: attrs.Flags&net.FlagLoopback != 0,
		}
		if attrs.Statistics != nil {
			info.SentBytes = attrs.Statistics.TxBytes
			info.RecvBytes = attrs.Statistics.RxBytes
			info.HasCounters = true
		}
		info.Addresses = l.addresses(link)

		out = append(out, info)
	}

	return out, nil
}

// isUp treats OperUnknown links with IFF_UP as up (loopback and some tunnels never report OperUp).
func isUp(attrs *netlink.LinkAttrs) bool {
	if attrs.OperState == netlink.OperUp {
		return true
	}
	return attrs.OperState == netlink.OperUnknown && attrs.Flags&net.FlagUp != 0
}

func (l *NetlinkLister) addresses(link netlink.Link) []entities.AddressInfo {
	name := link.Attrs().Name
	gateway := l.defaultGateway(link)

	var out []entities.AddressInfo
	for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
		addrs, err := netlink.AddrList(link, family)
		if err != nil {
			l.logger.WithError(err).WithField("interface", name).Debug("Failed to list addresses")
			continue
		}
		for _, a := range addrs {
			if a.IPNet == nil {
				continue
			}
			entry := entities.AddressInfo{
				Family:  entities.FamilyIPv6,
				Address: a.IP.String(),
				Netmask: net.IP(a.Mask).String(),
			}
			if family == unix.AF_INET {
				entry.Family = entities.FamilyIPv4
				entry.Gateway = gateway
			}
			out = append(out, entry)
		}
	}
	return out
}

func (l *NetlinkLister) defaultGateway(link netlink.Link) string {
	routes, err := netlink.RouteList(link, unix.AF_INET)
	if err != nil {
		l.logger.WithError(err).WithField("interface", link.Attrs().Name).Debug("Failed to list routes")
		return ""
	}
	for _, route := range routes {
		if isDefaultDst(route.Dst) && route.Gw != nil {
			return route.Gw.String()
		}
	}
	return ""
}

func isDefaultDst(dst *net.IPNet) bool {
	if dst == nil {
		return true
	}
	ones, _ := dst.Mask.Size()
	return ones == 0 && dst.IP.IsUnspecified()
}
