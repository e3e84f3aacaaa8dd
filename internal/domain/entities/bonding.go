package entities

import (
	"fmt"
	"strings"
	"time"
)

// BondingMode는 트래픽 집중 방식입니다
type BondingMode string

const (
	// ModeBonded는 선택된 인터페이스들에 동일한 낮은 메트릭을 부여해 부하를 분산합니다
	ModeBonded BondingMode = "bonded"
	// ModeSingleActive는 하나의 인터페이스만 우선시하고 나머지는 후순위로 둡니다
	ModeSingleActive BondingMode = "single-active"
)

// ParseBondingMode는 문자열을 BondingMode로 변환합니다
func ParseBondingMode(s string) (BondingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bonded", "bond", "load-balance":
		return ModeBonded, nil
	case "single-active", "single", "single_active":
		return ModeSingleActive, nil
	default:
		return "", fmt.Errorf("unknown bonding mode: %q", s)
	}
}

// Valid는 알려진 모드인지 확인합니다
func (m BondingMode) Valid() bool {
	return m == ModeBonded || m == ModeSingleActive
}

// TransactionState는 설정 트랜잭션의 프로세스 단일 상태입니다
type TransactionState string

const (
	StateIdle        TransactionState = "idle"
	StateApplying    TransactionState = "applying"
	StateActive      TransactionState = "active"
	StateRollingBack TransactionState = "rolling_back"
)

// TCPTemplate은 인터페이스별 TCP 튜닝 템플릿입니다
type TCPTemplate string

const (
	TemplateInternet TCPTemplate = "internet"
	TemplateDisabled TCPTemplate = "disabled"
)

// TransactionRecord는 apply/stop 한 번의 이력입니다
type TransactionRecord struct {
	Operation  string      `json:"operation"`
	Mode       BondingMode `json:"mode,omitempty"`
	Interfaces []string    `json:"interfaces,omitempty"`
	Result     string      `json:"result"`
	Error      string      `json:"error,omitempty"`
	SnapshotID string      `json:"snapshot_id,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

const (
	ResultSuccess           = "success"
	ResultFailed            = "failed"
	ResultRestoreIncomplete = "restore_incomplete"
)
