package models

import (
	"context"
	"time"
)

// RunStatus - статус запуска ETL
type RunStatus string

const (
	RunStatusRunning RunStatus = "Running"
	RunStatusSuccess RunStatus = "Success"
	RunStatusFailure RunStatus = "Failure"
)

// RunCounters содержит счетчики обработанных записей за запуск
type RunCounters struct {
	ProductsChanged  int `json:"products_changed"`
	CustomersChanged int `json:"customers_changed"`
	FactsLoaded      int `json:"facts_loaded"`
	SnapshotsWritten int `json:"snapshots_written"`
}

// Total возвращает общее количество обработанных записей
func (c RunCounters) Total() int {
	return c.ProductsChanged + c.CustomersChanged + c.FactsLoaded + c.SnapshotsWritten
}

// AuditRecord представляет запись о запуске ETL процесса. Только добавляется;
// граница последнего успешного запуска вычисляется запросом к этим записям.
type AuditRecord struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	JobName      string     `json:"job_name"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Status       RunStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RunCounters
}

// Duration возвращает длительность завершенного запуска
func (r AuditRecord) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// RunHandle идентифицирует начатый запуск
type RunHandle struct {
	ID        int64
	RunID     string
	JobName   string
	StartTime time.Time
}

// AuditRepository представляет репозиторий для работы с журналом запусков
type AuditRepository interface {
	// BeginRun создает запись со статусом Running и сразу сохраняет ее
	BeginRun(ctx context.Context, jobName string) (RunHandle, error)

	// CompleteRun завершает запуск; InvalidStateError, если запуск не в статусе Running
	CompleteRun(ctx context.Context, handle RunHandle, status RunStatus, errorMessage string, counters RunCounters) error

	// LastSuccessfulBoundary возвращает end_time последнего успешного запуска или nil
	LastSuccessfulBoundary(ctx context.Context, jobName string) (*time.Time, error)

	// RecentRuns возвращает запуски задания, начатые за последние days дней
	RecentRuns(ctx context.Context, jobName string, days int) ([]AuditRecord, error)

	// StateMonitor возвращает сводку состояния задания
	StateMonitor(ctx context.Context, jobName string) (*ETLStateMonitor, error)
}

// ETLStateMonitor предоставляет информацию о текущем состоянии ETL процесса
type ETLStateMonitor struct {
	JobName                 string       `json:"job_name"`
	LastSuccessfulRun       *AuditRecord `json:"last_successful_run"`
	LastFailedRun           *AuditRecord `json:"last_failed_run,omitempty"`
	CurrentRun              *AuditRecord `json:"current_run,omitempty"`
	TotalSuccessfulRuns     int          `json:"total_successful_runs"`
	TotalFailedRuns         int          `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64      `json:"avg_execution_time_seconds"`
	TotalItemsProcessed     int          `json:"total_items_processed"`
}
