package interfaces

import (
	"context"

	"multinic-bond/internal/domain/entities"
)

// LinkLister는 OS별 인터페이스 열거를 담당하는 외부 협력자입니다
type LinkLister interface {
	// Links는 (name, isUp, sent, recv, addresses) 목록을 반환합니다
	Links(ctx context.Context) ([]entities.LinkInfo, error)
}

// InterfaceInventory는 활성 인터페이스와 카운터를 노출합니다
type InterfaceInventory interface {
	// ListActive는 up 상태이면서 가상/루프백이 아닌 인터페이스를 순서대로 반환합니다
	ListActive(ctx context.Context) ([]entities.Interface, error)

	// Counters는 인터페이스의 송수신 바이트를 반환합니다. 카운터가 없으면 (0,0)입니다
	Counters(ctx context.Context, name string) (sent uint64, recv uint64, err error)

	// Addresses는 인터페이스의 주소 목록을 반환합니다
	Addresses(ctx context.Context, name string) ([]entities.AddressInfo, error)
}

// InventoryObserver는 인벤토리 새로고침 결과를 전달받습니다
type InventoryObserver interface {
	Refresh(ifaces []entities.Interface)
}

// NetworkInspector는 OS의 텍스트 출력을 파싱해 현재 상태를 조회합니다
type NetworkInspector interface {
	// CurrentMetric은 인터페이스 메트릭을 반환합니다. 알 수 없으면 ok가 false입니다
	CurrentMetric(ctx context.Context, name string) (metric int, ok bool)

	// InterfaceIndex는 OS 인터페이스 인덱스를 반환합니다. 일치하는 줄이 없으면 ok가 false입니다
	InterfaceIndex(ctx context.Context, name string) (index int, ok bool)
}

// GatewayLookup은 주소 목록에 게이트웨이가 없을 때 OS에 직접 질의하는 선택적 기능입니다
type GatewayLookup interface {
	LookupGateway(ctx context.Context, name string) (gateway string, ok bool)
}

// NetworkConfigurer는 설정 명령을 한 번씩 실행합니다 (자동 재시도 없음)
type NetworkConfigurer interface {
	// SetAutotuning은 전역 TCP 자동 튜닝을 켜거나 끕니다
	SetAutotuning(ctx context.Context, enabled bool) error

	// SetTCPTemplate은 인터페이스별 TCP 템플릿을 적용합니다
	SetTCPTemplate(ctx context.Context, name string, template entities.TCPTemplate) error

	// SetMetric은 인터페이스 메트릭을 설정합니다
	SetMetric(ctx context.Context, name string, metric int) error

	// AddDefaultRoute는 0.0.0.0/0 경로를 게이트웨이/인덱스로 설치합니다
	AddDefaultRoute(ctx context.Context, name string, gateway string, index int, metric int) error
}

// NetworkBackend는 하나의 OS 백엔드가 제공하는 설정/조회 기능 묶음입니다
type NetworkBackend interface {
	NetworkConfigurer
	NetworkInspector
	Name() string
}
