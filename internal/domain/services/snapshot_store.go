package services

import (
	"fmt"
	"sync"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/interfaces"
)

// MemorySnapshotStore는 프로세스 메모리에만 스냅샷을 보관합니다.
// 프로세스가 재시작되면 복원 근거가 사라집니다.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	clock   interfaces.Clock
	seq     int
	current *entities.ConfigurationSnapshot
}

// NewMemorySnapshotStore는 새로운 MemorySnapshotStore를 생성합니다
func NewMemorySnapshotStore(clock interfaces.Clock) *MemorySnapshotStore {
	return &MemorySnapshotStore{clock: clock}
}

// Capture는 기존 스냅샷을 버리고 새 스냅샷으로 교체합니다 (병합 없음)
func (s *MemorySnapshotStore) Capture(entries []entities.MetricEntry) *entities.ConfigurationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := s.clock.Now()
	id := fmt.Sprintf("%s-%d", now.UTC().Format("20060102T150405"), s.seq)
	s.current = entities.NewConfigurationSnapshot(id, now, entries)
	return s.current
}

// Get은 현재 스냅샷을 반환합니다
func (s *MemorySnapshotStore) Get() (*entities.ConfigurationSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

// Clear는 스냅샷을 폐기합니다
func (s *MemorySnapshotStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
