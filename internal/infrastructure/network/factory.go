package network

import (
	"fmt"
	"strings"
	"time"

	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// 백엔드 이름
const (
	BackendAuto    = "auto"
	BackendNetsh   = "netsh"
	BackendIPRoute = "iproute"
)

// NetworkManagerFactory is a factory that creates the network backend for the host
type NetworkManagerFactory struct {
	osDetector      interfaces.OSDetector
	commandExecutor interfaces.CommandExecutor
	timeout         time.Duration
	enabledTokens   []string
	logger          *logrus.Logger
}

// NewNetworkManagerFactory creates a new NetworkManagerFactory
func NewNetworkManagerFactory(
	osDetector interfaces.OSDetector,
	executor interfaces.CommandExecutor,
	timeout time.Duration,
	enabledTokens []string,
	logger *logrus.Logger,
) *NetworkManagerFactory {
	return &NetworkManagerFactory{
		osDetector:      osDetector,
		commandExecutor: executor,
		timeout:         timeout,
		enabledTokens:   enabledTokens,
		logger:          logger,
	}
}

// CreateNetworkBackend creates the backend named by backend, or the one matching the OS for "auto"
func (f *NetworkManagerFactory) CreateNetworkBackend(backend string) (interfaces.NetworkBackend, error) {
	name := strings.ToLower(strings.TrimSpace(backend))
	if name == "" || name == BackendAuto {
		osType, err := f.osDetector.DetectOS()
		if err != nil {
			return nil, errors.NewSystemError("failed to detect OS", err)
		}
		f.logger.WithField("os_type", osType).Debug("OS type detected")

		switch osType {
		case interfaces.OSTypeWindows:
			name = BackendNetsh
		case interfaces.OSTypeLinux:
			name = BackendIPRoute
		default:
			return nil, errors.NewSystemError(fmt.Sprintf("unsupported OS type: %s", osType), nil)
		}
	}

	switch name {
	case BackendNetsh:
		return NewNetshAdapter(f.commandExecutor, f.timeout, f.enabledTokens, f.logger), nil
	case BackendIPRoute:
		return NewIPRouteAdapter(f.commandExecutor, f.timeout, f.enabledTokens, f.logger), nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown network backend: %q", backend), nil)
	}
}
