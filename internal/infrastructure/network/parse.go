package network

import (
	"net"
	"strconv"
	"strings"
)

// 모든 텍스트 파싱은 이 파일에 모여 있어 구조화된 API로 교체하기 쉽습니다.

// splitLabeled splits "Key   : value" into its trimmed key and value.
func splitLabeled(line string) (string, string, bool) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

func matchesLabel(key string, labels []string) bool {
	for _, label := range labels {
		if strings.EqualFold(key, label) {
			return true
		}
	}
	return false
}

// parseLabeledInt returns the integer value of the first line whose key is one of labels.
func parseLabeledInt(output string, labels []string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := splitLabeled(line)
		if !ok || !matchesLabel(key, labels) {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// parseLabeledIPv4 returns the first IPv4 address found on a line whose key is one of labels.
// netsh prints additional gateways on continuation lines without a key, which are ignored.
func parseLabeledIPv4(output string, labels []string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := splitLabeled(line)
		if !ok || !matchesLabel(key, labels) {
			continue
		}
		for _, field := range strings.Fields(value) {
			if ip := net.ParseIP(field); ip != nil && ip.To4() != nil {
				return ip.String(), true
			}
		}
	}
	return "", false
}

func hasToken(value string, tokens []string) bool {
	for _, token := range tokens {
		if strings.EqualFold(value, token) {
			return true
		}
	}
	return false
}

// parseNetshIndex parses `netsh interface ipv4 show interfaces`:
//
//	Idx     Met         MTU          State                Name
//	---  ----------  ----------  ------------  ---------------------------
//	 12          25        1500  connected     Ethernet 2
func parseNetshIndex(output, name string, tokens []string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if !hasToken(fields[3], tokens) {
			continue
		}
		if strings.Join(fields[4:], " ") == name {
			return idx, true
		}
	}
	return 0, false
}

// parseIPLinkIndex parses `ip -o link show`:
//
//	2: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc mq state UP mode DEFAULT group default qlen 1000
func parseIPLinkIndex(output, name string, tokens []string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(fields[0], ":"))
		if err != nil {
			continue
		}
		linkName := strings.TrimSuffix(fields[1], ":")
		// veth 등은 "eth0@if5" 형식으로 출력됨
		if at := strings.Index(linkName, "@"); at >= 0 {
			linkName = linkName[:at]
		}
		if linkName != name {
			continue
		}
		state := valueAfter(fields, "state")
		if hasToken(state, tokens) {
			return idx, true
		}
	}
	return 0, false
}

// defaultRoute is one line of `ip -4 route show default dev X`.
type defaultRoute struct {
	Gateway string
	Metric  int
}

// parseDefaultRoute parses the first default route line.
// A route without a metric token has metric 0.
func parseDefaultRoute(output string) (defaultRoute, bool) {
	routes := parseDefaultRoutes(output)
	if len(routes) == 0 {
		return defaultRoute{}, false
	}
	return routes[0], true
}

// parseDefaultRoutes parses every default route line in output order.
func parseDefaultRoutes(output string) []defaultRoute {
	var routes []defaultRoute
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		route := defaultRoute{Gateway: valueAfter(fields, "via")}
		if m := valueAfter(fields, "metric"); m != "" {
			n, err := strconv.Atoi(m)
			if err != nil {
				continue
			}
			route.Metric = n
		}
		routes = append(routes, route)
	}
	return routes
}

func valueAfter(fields []string, key string) string {
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == key {
			return fields[i+1]
		}
	}
	return ""
}
