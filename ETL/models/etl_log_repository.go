package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const auditColumns = `
	id, run_id, job_name, start_time, end_time, status,
	products_changed, customers_changed, facts_loaded, snapshots_written,
	COALESCE(error_message, '')`

// SQLAuditRepository реализация AuditRepository для хранилища на database/sql
type SQLAuditRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLAuditRepository создает новый экземпляр SQLAuditRepository
func NewSQLAuditRepository(db *sql.DB, dialect Dialect, now func() time.Time) *SQLAuditRepository {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SQLAuditRepository{
		db:      db,
		dialect: dialect,
		now:     now,
	}
}

// CreateAuditTable создает таблицу журнала запусков, если она не существует
func (r *SQLAuditRepository) CreateAuditTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id %s,
		run_id %s NOT NULL,
		job_name %s NOT NULL,
		start_time %s NOT NULL,
		end_time %s NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'Running',
		products_changed INT NOT NULL DEFAULT 0,
		customers_changed INT NOT NULL DEFAULT 0,
		facts_loaded INT NOT NULL DEFAULT 0,
		snapshots_written INT NOT NULL DEFAULT 0,
		error_message TEXT,
		execution_time_seconds DOUBLE
	)`, r.dialect.PrimaryKey(), r.dialect.Key(), r.dialect.Key(), r.dialect.Timestamp(), r.dialect.Timestamp())

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return NewStoreError("создание таблицы etl_run_log", err)
	}
	return nil
}

// BeginRun создает запись о запуске со статусом Running.
// Запись сохраняется сразу, чтобы падение посреди запуска оставило след.
func (r *SQLAuditRepository) BeginRun(ctx context.Context, jobName string) (RunHandle, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return RunHandle{}, fmt.Errorf("ошибка генерации идентификатора запуска: %w", err)
	}

	startTime := r.now()
	result, err := r.db.ExecContext(ctx, `
	INSERT INTO etl_run_log (run_id, job_name, start_time, status)
	VALUES (?, ?, ?, ?)
	`, runID.String(), jobName, startTime, RunStatusRunning)
	if err != nil {
		return RunHandle{}, NewStoreError("создание записи о запуске", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return RunHandle{}, NewStoreError("получение ID записи о запуске", err)
	}

	return RunHandle{
		ID:        id,
		RunID:     runID.String(),
		JobName:   jobName,
		StartTime: startTime,
	}, nil
}

// CompleteRun завершает запуск с итоговым статусом Success или Failure
func (r *SQLAuditRepository) CompleteRun(ctx context.Context, handle RunHandle, status RunStatus, errorMessage string, counters RunCounters) error {
	if status != RunStatusSuccess && status != RunStatusFailure {
		return &InvalidStateError{RunID: handle.ID, Status: status, Reason: "итоговый статус должен быть Success или Failure"}
	}

	endTime := r.now()
	executionTime := endTime.Sub(handle.StartTime).Seconds()

	var errMsg sql.NullString
	if errorMessage != "" {
		errMsg = sql.NullString{String: errorMessage, Valid: true}
	}

	// Условие на статус делает проверку и обновление одной операцией
	result, err := r.db.ExecContext(ctx, `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		error_message = ?,
		products_changed = ?,
		customers_changed = ?,
		facts_loaded = ?,
		snapshots_written = ?,
		execution_time_seconds = ?
	WHERE id = ? AND status = ?
	`,
		endTime,
		status,
		errMsg,
		counters.ProductsChanged,
		counters.CustomersChanged,
		counters.FactsLoaded,
		counters.SnapshotsWritten,
		executionTime,
		handle.ID,
		RunStatusRunning,
	)
	if err != nil {
		return NewStoreError("обновление записи о запуске", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("обновление записи о запуске", err)
	}
	if affected == 1 {
		return nil
	}

	var current RunStatus
	err = r.db.QueryRowContext(ctx, "SELECT status FROM etl_run_log WHERE id = ?", handle.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return &InvalidStateError{RunID: handle.ID, Reason: "запуск не найден"}
	}
	if err != nil {
		return NewStoreError("чтение статуса запуска", err)
	}
	return &InvalidStateError{RunID: handle.ID, Status: current, Reason: "запуск уже завершен"}
}

// LastSuccessfulBoundary возвращает время окончания последнего успешного запуска задания.
// nil означает, что успешных запусков еще не было.
func (r *SQLAuditRepository) LastSuccessfulBoundary(ctx context.Context, jobName string) (*time.Time, error) {
	var endTime sql.NullTime
	err := r.db.QueryRowContext(ctx, `
	SELECT end_time
	FROM etl_run_log
	WHERE job_name = ? AND status = ?
	ORDER BY end_time DESC, id DESC
	LIMIT 1
	`, jobName, RunStatusSuccess).Scan(&endTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStoreError("получение границы последнего успешного запуска", err)
	}
	if !endTime.Valid {
		return nil, &ConsistencyError{Reason: "успешный запуск без времени окончания"}
	}

	boundary := endTime.Time.UTC()
	return &boundary, nil
}

// RecentRuns возвращает запуски задания за последние days дней, новые первыми
func (r *SQLAuditRepository) RecentRuns(ctx context.Context, jobName string, days int) ([]AuditRecord, error) {
	since := r.now().AddDate(0, 0, -days)

	rows, err := r.db.QueryContext(ctx, `
	SELECT `+auditColumns+`
	FROM etl_run_log
	WHERE job_name = ? AND start_time >= ?
	ORDER BY start_time DESC, id DESC
	`, jobName, since)
	if err != nil {
		return nil, NewStoreError("получение статистики запусков", err)
	}
	defer rows.Close()

	var logs []AuditRecord
	for rows.Next() {
		rec, err := scanAuditRecord(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *rec)
	}

	if err = rows.Err(); err != nil {
		return nil, NewStoreError("итерация по записям о запусках", err)
	}

	return logs, nil
}

// StateMonitor получает информацию о текущем состоянии задания
func (r *SQLAuditRepository) StateMonitor(ctx context.Context, jobName string) (*ETLStateMonitor, error) {
	monitor := &ETLStateMonitor{JobName: jobName}

	var err error
	if monitor.LastSuccessfulRun, err = r.latestByStatus(ctx, jobName, RunStatusSuccess); err != nil {
		return nil, err
	}
	if monitor.LastFailedRun, err = r.latestByStatus(ctx, jobName, RunStatusFailure); err != nil {
		return nil, err
	}
	if monitor.CurrentRun, err = r.latestByStatus(ctx, jobName, RunStatusRunning); err != nil {
		return nil, err
	}

	var (
		totalSuccess, totalFailed sql.NullInt64
		avgExecutionTime          sql.NullFloat64
		totalItems                sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, `
	SELECT
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		AVG(CASE WHEN status = ? THEN execution_time_seconds ELSE NULL END),
		SUM(CASE WHEN status = ? THEN products_changed + customers_changed + facts_loaded + snapshots_written ELSE 0 END)
	FROM etl_run_log
	WHERE job_name = ?
	`, RunStatusSuccess, RunStatusFailure, RunStatusSuccess, RunStatusSuccess, jobName).
		Scan(&totalSuccess, &totalFailed, &avgExecutionTime, &totalItems)
	if err != nil {
		return nil, NewStoreError("получение сводной статистики запусков", err)
	}

	monitor.TotalSuccessfulRuns = int(totalSuccess.Int64)
	monitor.TotalFailedRuns = int(totalFailed.Int64)
	monitor.AvgExecutionTimeSeconds = avgExecutionTime.Float64
	monitor.TotalItemsProcessed = int(totalItems.Int64)

	return monitor, nil
}

// latestByStatus возвращает последнюю начатую запись задания с указанным статусом
func (r *SQLAuditRepository) latestByStatus(ctx context.Context, jobName string, status RunStatus) (*AuditRecord, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT `+auditColumns+`
	FROM etl_run_log
	WHERE job_name = ? AND status = ?
	ORDER BY start_time DESC, id DESC
	LIMIT 1
	`, jobName, status)

	rec, err := scanAuditRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditRecord(row rowScanner) (*AuditRecord, error) {
	var (
		rec     AuditRecord
		endTime sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.RunID, &rec.JobName, &rec.StartTime, &endTime, &rec.Status,
		&rec.ProductsChanged, &rec.CustomersChanged, &rec.FactsLoaded, &rec.SnapshotsWritten,
		&rec.ErrorMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, NewStoreError("чтение записи о запуске", err)
	}

	rec.StartTime = rec.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		rec.EndTime = &t
	}
	return &rec, nil
}
