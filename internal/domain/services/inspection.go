package services

import (
	"context"

	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// InspectionService는 메트릭/게이트웨이/인덱스 조회를 한곳에 모읍니다.
// 텍스트 파싱은 백엔드의 NetworkInspector 뒤에 격리되어 있습니다.
type InspectionService struct {
	inventory interfaces.InterfaceInventory
	inspector interfaces.NetworkInspector
	logger    *logrus.Logger
}

// NewInspectionService는 새로운 InspectionService를 생성합니다
func NewInspectionService(inventory interfaces.InterfaceInventory, inspector interfaces.NetworkInspector, logger *logrus.Logger) *InspectionService {
	return &InspectionService{
		inventory: inventory,
		inspector: inspector,
		logger:    logger,
	}
}

// CurrentMetric은 인터페이스 메트릭을 반환합니다. 알 수 없으면 ok가 false이며 복원 대상에서 제외됩니다
func (s *InspectionService) CurrentMetric(ctx context.Context, name string) (int, bool) {
	return s.inspector.CurrentMetric(ctx, name)
}

// InterfaceIndex는 OS 인터페이스 인덱스를 반환합니다
func (s *InspectionService) InterfaceIndex(ctx context.Context, name string) (int, bool) {
	return s.inspector.InterfaceIndex(ctx, name)
}

// DefaultGateway는 netmask가 0.0.0.0이 아닌 IPv4 주소 항목의 게이트웨이를 반환합니다
func (s *InspectionService) DefaultGateway(ctx context.Context, name string) (string, bool) {
	addrs, err := s.inventory.Addresses(ctx, name)
	if err != nil {
		s.logger.WithError(err).WithField("interface", name).Debug("Failed to read interface addresses")
		return "", false
	}

	qualifying := false
	for _, addr := range addrs {
		if !addr.HasQualifyingIPv4() {
			continue
		}
		qualifying = true
		if addr.Gateway != "" {
			return addr.Gateway, true
		}
	}

	if !qualifying {
		return "", false
	}

	// 주소 목록에 게이트웨이 정보가 없는 플랫폼은 백엔드에 직접 질의
	if lookup, ok := s.inspector.(interfaces.GatewayLookup); ok {
		return lookup.LookupGateway(ctx, name)
	}
	return "", false
}
