package network

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const rcvbufKey = "net.ipv4.tcp_moderate_rcvbuf"

// IPRouteAdapter는 iproute2와 sysctl로 Linux 네트워크를 설정합니다.
// Linux에는 인터페이스 메트릭이 없으므로 해당 장치의 IPv4 기본 경로 메트릭을 인터페이스 메트릭으로 취급합니다.
type IPRouteAdapter struct {
	commandExecutor interfaces.CommandExecutor
	timeout         time.Duration
	enabledTokens   []string
	logger          *logrus.Logger

	mu sync.Mutex
	// 자동 튜닝을 켜기 직전의 tcp_moderate_rcvbuf 값
	savedRcvbuf string
}

// NewIPRouteAdapter는 새로운 IPRouteAdapter를 생성합니다.
func NewIPRouteAdapter(
	executor interfaces.CommandExecutor,
	timeout time.Duration,
	enabledTokens []string,
	logger *logrus.Logger,
) *IPRouteAdapter {
	return &IPRouteAdapter{
		commandExecutor: executor,
		timeout:         timeout,
		enabledTokens:   enabledTokens,
		logger:          logger,
	}
}

// Name은 백엔드 이름을 반환합니다
func (a *IPRouteAdapter) Name() string {
	return "iproute"
}

func (a *IPRouteAdapter) run(ctx context.Context, command string, args ...string) ([]byte, error) {
	return a.commandExecutor.ExecuteWithTimeout(ctx, a.timeout, command, args...)
}

// SetAutotuning은 TCP 수신 버퍼 자동 조정을 켜거나 끕니다.
// 끌 때는 켜기 직전에 읽어 둔 값으로 되돌립니다. 커널 기본값이 1이므로 무조건 0을 쓰지 않습니다.
// 읽어 둔 값이 없으면 이 프로세스가 켠 적이 없으므로 변경하지 않습니다.
func (a *IPRouteAdapter) SetAutotuning(ctx context.Context, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if enabled {
		if a.savedRcvbuf == "" {
			output, err := a.run(ctx, "sysctl", "-n", rcvbufKey)
			if err != nil {
				return err
			}
			a.savedRcvbuf = strings.TrimSpace(string(output))
		}
		_, err := a.run(ctx, "sysctl", "-w", rcvbufKey+"=1")
		return err
	}

	if a.savedRcvbuf == "" {
		a.logger.Debug("Receive buffer autotuning was not changed by this agent, leaving it as is")
		return nil
	}
	if _, err := a.run(ctx, "sysctl", "-w", rcvbufKey+"="+a.savedRcvbuf); err != nil {
		return err
	}
	a.savedRcvbuf = ""
	return nil
}

// SetTCPTemplate은 Linux에 대응 개념이 없어 기록만 남깁니다
func (a *IPRouteAdapter) SetTCPTemplate(ctx context.Context, name string, template entities.TCPTemplate) error {
	a.logger.WithFields(logrus.Fields{
		"interface": name,
		"template":  template,
	}).Debug("Per-interface TCP templates are not supported on linux, skipping")
	return nil
}

// SetMetric은 장치의 기본 경로를 새 메트릭으로 교체합니다. 기본 경로가 없는 장치는 변경하지 않습니다.
// 교체는 새 경로 추가 후 이전 경로 삭제의 두 명령이므로, 첫 삭제가 실패하면 추가한 경로를 다시 지웁니다.
// 이전 실패로 남은 다른 메트릭의 기본 경로도 함께 정리됩니다.
func (a *IPRouteAdapter) SetMetric(ctx context.Context, name string, metric int) error {
	output, err := a.run(ctx, "ip", "-4", "route", "show", "default", "dev", name)
	if err != nil {
		return err
	}

	routes := parseDefaultRoutes(string(output))
	if len(routes) == 0 {
		a.logger.WithField("interface", name).Debug("No default route on device, metric unchanged")
		return nil
	}

	gateway := routes[0].Gateway
	present := false
	var stale []defaultRoute
	for _, r := range routes {
		if r.Metric == metric {
			present = true
			continue
		}
		stale = append(stale, r)
	}
	if len(stale) == 0 {
		return nil
	}

	added := false
	if !present {
		if _, err := a.run(ctx, "ip", routeArgs("replace", gateway, name, metric)...); err != nil {
			return err
		}
		added = true
	}

	for i, r := range stale {
		_, err := a.run(ctx, "ip", routeArgs("del", r.Gateway, name, r.Metric)...)
		if err == nil {
			continue
		}
		if added && i == 0 {
			if _, undoErr := a.run(ctx, "ip", routeArgs("del", gateway, name, metric)...); undoErr != nil {
				a.logger.WithError(undoErr).WithFields(logrus.Fields{
					"interface": name,
					"metric":    metric,
				}).Error("Failed to remove route added for metric change")
			}
		}
		return err
	}
	return nil
}

// AddDefaultRoute는 게이트웨이를 통한 기본 경로를 설치합니다. Linux에서는 장치 이름이 인덱스를 대신합니다
func (a *IPRouteAdapter) AddDefaultRoute(ctx context.Context, name string, gateway string, index int, metric int) error {
	a.logger.WithFields(logrus.Fields{
		"interface": name,
		"gateway":   gateway,
		"index":     index,
	}).Debug("Adding default route")

	_, err := a.run(ctx, "ip", routeArgs("replace", gateway, name, metric)...)
	return err
}

// CurrentMetric은 장치 기본 경로의 메트릭을 반환합니다. 기본 경로가 없으면 알 수 없음입니다
func (a *IPRouteAdapter) CurrentMetric(ctx context.Context, name string) (int, bool) {
	output, err := a.run(ctx, "ip", "-4", "route", "show", "default", "dev", name)
	if err != nil {
		a.logger.WithError(err).WithField("interface", name).Debug("Failed to read default route")
		return 0, false
	}
	route, found := parseDefaultRoute(string(output))
	if !found {
		return 0, false
	}
	return route.Metric, true
}

// InterfaceIndex는 `ip -o link show` 출력에서 활성 상태인 장치의 인덱스를 찾습니다
func (a *IPRouteAdapter) InterfaceIndex(ctx context.Context, name string) (int, bool) {
	output, err := a.run(ctx, "ip", "-o", "link", "show")
	if err != nil {
		a.logger.WithError(err).WithField("interface", name).Debug("Failed to list links")
		return 0, false
	}
	return parseIPLinkIndex(string(output), name, a.enabledTokens)
}

func routeArgs(verb, gateway, dev string, metric int) []string {
	args := []string{"-4", "route", verb, "default"}
	if gateway != "" {
		args = append(args, "via", gateway)
	}
	return append(args, "dev", dev, "metric", strconv.Itoa(metric))
}
