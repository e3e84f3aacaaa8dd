package entities

import "time"

// MetricEntry는 스냅샷의 인터페이스별 메트릭 값입니다.
// Known이 false면 캡처 시점에 메트릭을 알 수 없었으므로 복원하지 않습니다.
type MetricEntry struct {
	Name   string `yaml:"name" json:"name"`
	Metric int    `yaml:"metric" json:"metric"`
	Known  bool   `yaml:"known" json:"known"`
}

// ConfigurationSnapshot은 트랜잭션 시작 직전에 캡처된 메트릭 값입니다.
// 생성 이후에는 변경할 수 없으며 롤백/복원의 유일한 근거입니다.
type ConfigurationSnapshot struct {
	id         string
	capturedAt time.Time
	entries    []MetricEntry
}

// NewConfigurationSnapshot은 entries의 복사본으로 스냅샷을 생성합니다
func NewConfigurationSnapshot(id string, capturedAt time.Time, entries []MetricEntry) *ConfigurationSnapshot {
	return &ConfigurationSnapshot{
		id:         id,
		capturedAt: capturedAt,
		entries:    append([]MetricEntry(nil), entries...),
	}
}

// ID는 스냅샷 식별자를 반환합니다
func (s *ConfigurationSnapshot) ID() string {
	return s.id
}

// CapturedAt은 캡처 시각을 반환합니다
func (s *ConfigurationSnapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// Entries는 캡처 순서대로 항목의 복사본을 반환합니다
func (s *ConfigurationSnapshot) Entries() []MetricEntry {
	return append([]MetricEntry(nil), s.entries...)
}

// Metric은 인터페이스의 캡처된 메트릭을 반환합니다. 알 수 없으면 ok가 false입니다
func (s *ConfigurationSnapshot) Metric(name string) (int, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e.Metric, e.Known
		}
	}
	return 0, false
}

// Covers는 인터페이스가 스냅샷에 포함되어 있는지 확인합니다
func (s *ConfigurationSnapshot) Covers(name string) bool {
	for _, e := range s.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Len은 항목 수를 반환합니다
func (s *ConfigurationSnapshot) Len() int {
	return len(s.entries)
}
