package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/domain/errors"
	"multinic-bond/internal/infrastructure/metrics"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

const createTransactionsTable = `
	CREATE TABLE IF NOT EXISTS bonding_transactions (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		operation   VARCHAR(16)  NOT NULL,
		mode        VARCHAR(32)  NOT NULL DEFAULT '',
		interfaces  TEXT         NOT NULL,
		result      VARCHAR(32)  NOT NULL,
		error_text  TEXT         NULL,
		snapshot_id VARCHAR(64)  NOT NULL DEFAULT '',
		started_at  DATETIME(6)  NOT NULL,
		finished_at DATETIME(6)  NOT NULL,
		INDEX idx_started_at (started_at)
	)
`

// MySQLHistoryRepository는 apply/stop 이력을 MySQL에 저장합니다
type MySQLHistoryRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewMySQLHistoryRepository는 새로운 MySQLHistoryRepository를 생성합니다
func NewMySQLHistoryRepository(db *sql.DB, logger *logrus.Logger) *MySQLHistoryRepository {
	return &MySQLHistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema는 이력 테이블이 없으면 생성합니다
func (r *MySQLHistoryRepository) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx, createTransactionsTable)
	metrics.RecordDBQuery("create_table", time.Since(start).Seconds())
	if err != nil {
		return errors.NewSystemError("이력 테이블 생성 실패", err)
	}
	return nil
}

// RecordTransaction은 트랜잭션 한 건을 저장합니다
func (r *MySQLHistoryRepository) RecordTransaction(ctx context.Context, record entities.TransactionRecord) error {
	query := `
		INSERT INTO bonding_transactions
			(operation, mode, interfaces, result, error_text, snapshot_id, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errText sql.NullString
	if record.Error != "" {
		errText = sql.NullString{String: record.Error, Valid: true}
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		record.Operation,
		string(record.Mode),
		strings.Join(record.Interfaces, ","),
		record.Result,
		errText,
		record.SnapshotID,
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
	)
	metrics.RecordDBQuery("insert_transaction", time.Since(start).Seconds())
	if err != nil {
		return errors.NewSystemError("이력 저장 실패", err)
	}

	r.logger.WithFields(logrus.Fields{
		"operation": record.Operation,
		"result":    record.Result,
	}).Debug("트랜잭션 이력 저장 완료")
	return nil
}

// RecentTransactions는 최근 이력을 최신순으로 조회합니다
func (r *MySQLHistoryRepository) RecentTransactions(ctx context.Context, limit int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT operation, mode, interfaces, result, error_text, snapshot_id, started_at, finished_at
		FROM bonding_transactions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, limit)
	metrics.RecordDBQuery("select_transactions", time.Since(start).Seconds())
	if err != nil {
		return nil, errors.NewSystemError("이력 조회 실패", err)
	}
	defer rows.Close()

	var records []entities.TransactionRecord
	for rows.Next() {
		var rec entities.TransactionRecord
		var mode, ifaces string
		var errText sql.NullString

		if err := rows.Scan(&rec.Operation, &mode, &ifaces, &rec.Result, &errText,
			&rec.SnapshotID, &rec.StartedAt, &rec.FinishedAt); err != nil {
			r.logger.WithError(err).Error("행 스캔 실패")
			continue
		}

		rec.Mode = entities.BondingMode(mode)
		if ifaces != "" {
			rec.Interfaces = strings.Split(ifaces, ",")
		}
		if errText.Valid {
			rec.Error = errText.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewSystemError("이력 조회 실패", err)
	}

	return records, nil
}

// NoopHistoryRepository는 이력 저장이 비활성화되었을 때 사용됩니다
type NoopHistoryRepository struct{}

// RecordTransaction은 아무것도 저장하지 않습니다
func (NoopHistoryRepository) RecordTransaction(context.Context, entities.TransactionRecord) error {
	return nil
}

// RecentTransactions는 항상 빈 목록을 반환합니다
func (NoopHistoryRepository) RecentTransactions(context.Context, int) ([]entities.TransactionRecord, error) {
	return []entities.TransactionRecord{}, nil
}
