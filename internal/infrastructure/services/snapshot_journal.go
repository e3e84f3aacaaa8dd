package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	journalPrefix = "snapshot_"
	journalExt    = ".yaml"

	// DefaultJournalRetention은 보관할 최대 기록 수입니다
	DefaultJournalRetention = 50
)

// JournalRecord는 YAML로 기록되는 스냅샷 한 건입니다
type JournalRecord struct {
	ID         string                 `yaml:"id" json:"id"`
	CapturedAt time.Time              `yaml:"captured_at" json:"captured_at"`
	Mode       entities.BondingMode   `yaml:"mode" json:"mode"`
	Selection  []string               `yaml:"selection" json:"selection"`
	Entries    []entities.MetricEntry `yaml:"entries" json:"entries"`
}

// SnapshotJournal은 캡처된 스냅샷을 운영자가 수동 복구할 수 있도록 파일로 남깁니다.
// 자동 복원에는 읽히지 않습니다.
type SnapshotJournal struct {
	fileSystem interfaces.FileSystem
	logger     *logrus.Logger
	dir        string
	retention  int
}

// NewSnapshotJournal은 새로운 SnapshotJournal을 생성합니다
func NewSnapshotJournal(
	fs interfaces.FileSystem,
	logger *logrus.Logger,
	dir string,
	retention int,
) *SnapshotJournal {
	if retention <= 0 {
		retention = DefaultJournalRetention
	}
	return &SnapshotJournal{
		fileSystem: fs,
		logger:     logger,
		dir:        dir,
		retention:  retention,
	}
}

// Record는 스냅샷을 타임스탬프가 붙은 YAML 파일로 기록합니다
func (j *SnapshotJournal) Record(ctx context.Context, snap *entities.ConfigurationSnapshot, mode entities.BondingMode, selection []string) error {
	if err := j.fileSystem.MkdirAll(j.dir, 0755); err != nil {
		return errors.NewSystemError("저널 디렉토리 생성 실패", err)
	}

	record := JournalRecord{
		ID:         snap.ID(),
		CapturedAt: snap.CapturedAt(),
		Mode:       mode,
		Selection:  selection,
		Entries:    snap.Entries(),
	}
	data, err := yaml.Marshal(&record)
	if err != nil {
		return errors.NewSystemError("스냅샷 직렬화 실패", err)
	}

	// 예: snapshot_20240501T120000.000000000_20240501T120000-1.yaml
	name := fmt.Sprintf("%s%s_%s%s", journalPrefix,
		snap.CapturedAt().UTC().Format("20060102T150405.000000000"), snap.ID(), journalExt)
	path := filepath.Join(j.dir, name)

	if err := j.fileSystem.WriteFile(path, data, constants.JournalFilePermission); err != nil {
		return errors.NewSystemError("스냅샷 기록 실패", err)
	}

	j.logger.WithFields(logrus.Fields{
		"snapshot_id": snap.ID(),
		"path":        path,
	}).Info("Snapshot journaled")

	j.prune()
	return nil
}

// Latest는 가장 최근 기록의 원본 YAML을 반환합니다
func (j *SnapshotJournal) Latest(ctx context.Context) ([]byte, error) {
	files, err := j.records()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.NewNotFoundError("기록된 스냅샷이 없음")
	}

	data, err := j.fileSystem.ReadFile(filepath.Join(j.dir, files[len(files)-1]))
	if err != nil {
		return nil, errors.NewSystemError("스냅샷 기록 읽기 실패", err)
	}
	return data, nil
}

// ParseRecord는 저널 파일 내용을 JournalRecord로 변환합니다
func ParseRecord(data []byte) (*JournalRecord, error) {
	var record JournalRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, errors.NewValidationError("잘못된 스냅샷 기록", err)
	}
	return &record, nil
}

// records는 시간순으로 정렬된 기록 파일 이름을 반환합니다
func (j *SnapshotJournal) records() ([]string, error) {
	if !j.fileSystem.Exists(j.dir) {
		return nil, nil
	}

	files, err := j.fileSystem.ListFiles(j.dir)
	if err != nil {
		return nil, errors.NewSystemError("저널 디렉토리 읽기 실패", err)
	}

	var out []string
	for _, file := range files {
		if strings.HasPrefix(file, journalPrefix) && strings.HasSuffix(file, journalExt) {
			out = append(out, file)
		}
	}
	// ListFiles는 이름순 정렬, 이름에 타임스탬프가 있으므로 시간순
	return out, nil
}

func (j *SnapshotJournal) prune() {
	files, err := j.records()
	if err != nil || len(files) <= j.retention {
		return
	}
	for _, file := range files[:len(files)-j.retention] {
		if err := j.fileSystem.Remove(filepath.Join(j.dir, file)); err != nil {
			j.logger.WithError(err).WithField("file", file).Warn("Failed to prune journal record")
		}
	}
}
