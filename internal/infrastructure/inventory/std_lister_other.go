//go:build !linux

package inventory

import (
	"context"
	"net"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/sirupsen/logrus"
)

// StdLister implements LinkLister with net.Interfaces for links and addresses
// and gopsutil per-NIC IO counters for byte counts. On windows the counters
// come from the IP helper API and carry the same friendly names netsh uses.
// Gateways are resolved by the backend.
type StdLister struct {
	logger     *logrus.Logger
	ioCounters func(ctx context.Context, pernic bool) ([]gnet.IOCountersStat, error)
}

// NewLinkLister returns the platform LinkLister
func NewLinkLister(logger *logrus.Logger) interfaces.LinkLister {
	return &StdLister{logger: logger, ioCounters: gnet.IOCountersWithContext}
}

func (l *StdLister) Links(ctx context.Context) ([]entities.LinkInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]entities.LinkInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		info := entities.LinkInfo{
			Name:       iface.Name,
			IsUp:       iface.Flags&net.FlagUp != 0,
			IsLoopback: iface.Flags&net.FlagLoopback != 0,
		}

		addrs, err := iface.Addrs()
		if err != nil {
			l.logger.WithError(err).WithField("interface", iface.Name).Debug("Failed to list addresses")
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			entry := entities.AddressInfo{
				Family:  entities.FamilyIPv6,
				Address: ipNet.IP.String(),
				Netmask: net.IP(ipNet.Mask).String(),
			}
			if ipNet.IP.To4() != nil {
				entry.Family = entities.FamilyIPv4
			}
			info.Addresses = append(info.Addresses, entry)
		}

		out = append(out, info)
	}

	// 카운터 조회 실패는 열거 실패가 아님. 해당 주기의 카운터는 (0,0)으로 보고됨
	stats, err := l.ioCounters(ctx, true)
	if err != nil {
		l.logger.WithError(err).Debug("Failed to read interface IO counters")
		return out, nil
	}
	applyCounters(out, stats)

	return out, nil
}
