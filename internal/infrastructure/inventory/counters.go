package inventory

import (
	"multinic-bond/internal/domain/entities"

	gnet "github.com/shirou/gopsutil/v4/net"
)

// applyCounters fills byte counters from per-NIC IO statistics, matched by
// interface name. Links without a matching entry keep HasCounters=false.
func applyCounters(links []entities.LinkInfo, stats []gnet.IOCountersStat) {
	byName := make(map[string]gnet.IOCountersStat, len(stats))
	for _, s := range stats {
		byName[s.Name] = s
	}
	for i := range links {
		s, ok := byName[links[i].Name]
		if !ok {
			continue
		}
		links[i].SentBytes = s.BytesSent
		links[i].RecvBytes = s.BytesRecv
		links[i].HasCounters = true
	}
}
