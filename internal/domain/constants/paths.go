package constants

import "time"

// 메트릭 센티널 값 (설정 불가)
const (
	// MetricPreferred는 가장 우선되는 경로를 의미합니다
	MetricPreferred = 1
	// MetricDeprioritized는 후순위 경로를 의미합니다
	MetricDeprioritized = 1000
	// DefaultRouteMetric은 단일 활성 모드에서 설치하는 기본 경로의 메트릭입니다
	DefaultRouteMetric = 1
)

// 기본 경로 상수
const (
	DefaultRouteDestination = "0.0.0.0"
	DefaultRouteMask        = "0.0.0.0"
)

// 시스템 경로 상수들
const (
	// 스냅샷 저널 디렉토리
	DefaultJournalDir = "/var/lib/multinic-bond/snapshots"

	// 저널 파일 권한
	JournalFilePermission = 0644
)

// 타임아웃과 주기
const (
	DefaultCommandTimeout = 5 * time.Second
	DefaultSampleInterval = 1 * time.Second
)

// 기본값 상수들
var (
	// DefaultExcludedPrefixes는 가상/루프백 인터페이스 이름 접두사입니다 (대소문자 무시).
	// "lo"는 "Local Area Connection"까지 가리므로 접두사가 아닌 LoopbackNames로 정확히 비교합니다
	DefaultExcludedPrefixes = []string{"virtual", "loopback", "veth", "docker", "br-", "virbr", "vnet", "tun", "tap"}

	// LoopbackNames는 이름 전체가 일치할 때만 제외하는 루프백 장치 이름입니다
	LoopbackNames = []string{"lo"}

	// DefaultEnabledTokens는 인터페이스 목록에서 "사용 가능" 상태를 나타내는 로캘별 토큰입니다
	DefaultEnabledTokens = []string{"Enabled", "Connected", "已启用", "启用", "已连接", "Aktiviert", "Verbunden", "Activé", "Connecté", "UP"}

	// MetricLabels는 netsh 출력에서 메트릭 줄을 식별하는 로캘별 라벨입니다
	MetricLabels = []string{"Metric", "跃点数", "Metrik", "Métrique"}

	// GatewayLabels는 netsh 출력에서 기본 게이트웨이 줄을 식별하는 로캘별 라벨입니다
	GatewayLabels = []string{"Default Gateway", "默认网关", "Standardgateway", "Passerelle par défaut"}
)
