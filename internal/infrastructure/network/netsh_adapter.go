package network

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// NetshAdapter는 netsh와 route 명령으로 Windows 네트워크를 설정합니다.
// 명령은 셸을 거치지 않고 인자 배열로 전달되므로 인터페이스 이름에 공백이 있어도 안전합니다.
type NetshAdapter struct {
	commandExecutor interfaces.CommandExecutor
	timeout         time.Duration
	enabledTokens   []string
	logger          *logrus.Logger
}

// NewNetshAdapter는 새로운 NetshAdapter를 생성합니다.
func NewNetshAdapter(
	executor interfaces.CommandExecutor,
	timeout time.Duration,
	enabledTokens []string,
	logger *logrus.Logger,
) *NetshAdapter {
	return &NetshAdapter{
		commandExecutor: executor,
		timeout:         timeout,
		enabledTokens:   enabledTokens,
		logger:          logger,
	}
}

// Name은 백엔드 이름을 반환합니다
func (a *NetshAdapter) Name() string {
	return "netsh"
}

func (a *NetshAdapter) run(ctx context.Context, command string, args ...string) ([]byte, error) {
	return a.commandExecutor.ExecuteWithTimeout(ctx, a.timeout, command, args...)
}

// SetAutotuning은 전역 TCP 수신 창 자동 튜닝을 설정합니다
func (a *NetshAdapter) SetAutotuning(ctx context.Context, enabled bool) error {
	level := "disabled"
	if enabled {
		level = "normal"
	}
	_, err := a.run(ctx, "netsh", "int", "tcp", "set", "global", "autotuninglevel="+level)
	return err
}

// SetTCPTemplate은 인터페이스의 supplemental TCP 템플릿을 설정합니다
func (a *NetshAdapter) SetTCPTemplate(ctx context.Context, name string, template entities.TCPTemplate) error {
	_, err := a.run(ctx, "netsh", "int", "tcp", "set", "supplemental",
		"template="+string(template), "interface="+name)
	return err
}

// SetMetric은 인터페이스의 IPv4 메트릭을 설정합니다
func (a *NetshAdapter) SetMetric(ctx context.Context, name string, metric int) error {
	_, err := a.run(ctx, "netsh", "interface", "ipv4", "set", "interface",
		"interface="+name, "metric="+strconv.Itoa(metric))
	return err
}

// AddDefaultRoute는 route 명령으로 기본 경로를 추가합니다
func (a *NetshAdapter) AddDefaultRoute(ctx context.Context, name string, gateway string, index int, metric int) error {
	a.logger.WithFields(logrus.Fields{
		"interface": name,
		"gateway":   gateway,
		"index":     index,
	}).Debug("Adding default route")

	_, err := a.run(ctx, "route", "add",
		constants.DefaultRouteDestination, "mask", constants.DefaultRouteMask, gateway,
		"if", strconv.Itoa(index), "metric", strconv.Itoa(metric))
	return err
}

// CurrentMetric은 `netsh interface ipv4 show interface X` 출력에서 메트릭을 읽습니다
func (a *NetshAdapter) CurrentMetric(ctx context.Context, name string) (int, bool) {
	output, err := a.run(ctx, "netsh", "interface", "ipv4", "show", "interface", name)
	if err != nil {
		a.logger.WithError(err).WithField("interface", name).Debug("Failed to read interface metric")
		return 0, false
	}
	return parseLabeledInt(string(output), constants.MetricLabels)
}

// InterfaceIndex는 인터페이스 목록에서 활성 상태 토큰과 일치하는 줄의 인덱스를 찾습니다
func (a *NetshAdapter) InterfaceIndex(ctx context.Context, name string) (int, bool) {
	output, err := a.run(ctx, "netsh", "interface", "ipv4", "show", "interfaces")
	if err != nil {
		a.logger.WithError(err).WithField("interface", name).Debug("Failed to list interfaces")
		return 0, false
	}
	return parseNetshIndex(string(output), name, a.enabledTokens)
}

// LookupGateway는 주소 목록에 게이트웨이가 없을 때 netsh 설정 출력에서 기본 게이트웨이를 읽습니다
func (a *NetshAdapter) LookupGateway(ctx context.Context, name string) (string, bool) {
	output, err := a.run(ctx, "netsh", "interface", "ipv4", "show", "config", fmt.Sprintf("name=%s", name))
	if err != nil {
		a.logger.WithError(err).WithField("interface", name).Debug("Failed to read interface config")
		return "", false
	}
	return parseLabeledIPv4(string(output), constants.GatewayLabels)
}
