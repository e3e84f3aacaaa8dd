package interfaces

import (
	"context"

	"multinic-bond/internal/domain/entities"
)

// SnapshotStore는 트랜잭션 직전 메트릭 스냅샷을 보관합니다
type SnapshotStore interface {
	// Capture는 기존 스냅샷 전체를 새 매핑으로 덮어씁니다
	Capture(entries []entities.MetricEntry) *entities.ConfigurationSnapshot

	// Get은 현재 스냅샷을 반환합니다. 없으면 ok가 false입니다
	Get() (*entities.ConfigurationSnapshot, bool)

	// Clear는 복원 성공 후 스냅샷을 폐기합니다
	Clear()
}

// SnapshotJournal은 캡처된 스냅샷을 운영자 진단용으로 기록합니다.
// 자동 복원에는 사용되지 않습니다.
type SnapshotJournal interface {
	Record(ctx context.Context, snap *entities.ConfigurationSnapshot, mode entities.BondingMode, selection []string) error
	Latest(ctx context.Context) ([]byte, error)
}

// TransactionHistoryRepository는 apply/stop 이력을 저장합니다
type TransactionHistoryRepository interface {
	RecordTransaction(ctx context.Context, record entities.TransactionRecord) error

	// RecentTransactions는 최근 이력을 최신순으로 반환합니다
	RecentTransactions(ctx context.Context, limit int) ([]entities.TransactionRecord, error)
}
