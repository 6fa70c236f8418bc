package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// ApplyDimension применяет результат сверки одной транзакцией: сначала
// закрываются старые версии, затем вставляются новые. После фиксации новым
// версиям в res проставляются суррогатные ключи.
func ApplyDimension[A any](ctx context.Context, db *sql.DB, logger *utils.ETLLogger, table models.DimensionTable[A], res *models.ReconciliationResult[A]) error {
	if res == nil || res.IsEmpty() {
		logger.Debug("Нет изменений для измерения %s", table.Entity)
		return nil
	}

	startTime := time.Now()
	logger.Info("Начало загрузки измерения %s (закрыть: %d, добавить: %d)", table.Entity, len(res.Expired), len(res.Inserted))

	columns := append([]string{table.KeyColumn}, table.Columns...)
	columns = append(columns, table.MetricColumn, "is_active", "start_date", "end_date", "last_updated")
	insertQuery := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Table, strings.Join(columns, ", "), placeholders(len(columns)))

	// Условие на is_active гарантирует, что закрывается именно активная версия
	expireQuery := fmt.Sprintf(`
		UPDATE %s
		SET is_active = 0, end_date = ?, last_updated = ?
		WHERE surrogate_key = ? AND is_active = 1
	`, table.Table)

	keys := make([]int64, len(res.Inserted))

	err := inTx(ctx, db, "загрузка "+table.Table, func(tx *sql.Tx) error {
		expireStmt, err := tx.PrepareContext(ctx, expireQuery)
		if err != nil {
			return models.NewStoreError("подготовка закрытия версий "+table.Table, err)
		}
		defer expireStmt.Close()

		for _, rec := range res.Expired {
			result, err := expireStmt.ExecContext(ctx, rec.EndDate, rec.LastUpdated, rec.SurrogateKey)
			if err != nil {
				return models.NewStoreError("закрытие версии "+table.Table, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return models.NewStoreError("закрытие версии "+table.Table, err)
			}
			if affected != 1 {
				return &models.ConsistencyError{
					Entity:     table.Entity,
					NaturalKey: rec.NaturalKey,
					Reason:     fmt.Sprintf("версия %d уже закрыта или не найдена", rec.SurrogateKey),
				}
			}
		}

		insertStmt, err := tx.PrepareContext(ctx, insertQuery)
		if err != nil {
			return models.NewStoreError("подготовка вставки версий "+table.Table, err)
		}
		defer insertStmt.Close()

		for i, rec := range res.Inserted {
			args := append([]any{rec.NaturalKey}, table.Args(rec.Attributes)...)
			args = append(args, rec.DerivedMetric, rec.IsActive, rec.StartDate, rec.EndDate, rec.LastUpdated)

			result, err := insertStmt.ExecContext(ctx, args...)
			if err != nil {
				return models.NewStoreError("вставка версии "+table.Table, err)
			}
			if keys[i], err = result.LastInsertId(); err != nil {
				return models.NewStoreError("получение суррогатного ключа "+table.Table, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Ошибка при загрузке измерения %s: %v", table.Entity, err)
		return err
	}

	for i := range res.Inserted {
		res.Inserted[i].SurrogateKey = keys[i]
	}

	logger.Info("Загрузка измерения %s завершена. Изменений: %d. Длительность: %v", table.Entity, res.Changes(), time.Since(startTime))
	return nil
}

// UpdateDerivedMetrics записывает новые значения производной метрики одной
// транзакцией. Закрытые версии не изменяются.
func UpdateDerivedMetrics[A any](ctx context.Context, db *sql.DB, logger *utils.ETLLogger, table models.DimensionTable[A], updates []models.DerivedMetricUpdate) (int, error) {
	if len(updates) == 0 {
		logger.Debug("Производная метрика %s не изменилась", table.MetricColumn)
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = ?
		WHERE surrogate_key = ? AND is_active = 1
	`, table.Table, table.MetricColumn)

	err := inTx(ctx, db, "обновление "+table.MetricColumn, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return models.NewStoreError("подготовка обновления "+table.MetricColumn, err)
		}
		defer stmt.Close()

		for _, u := range updates {
			result, err := stmt.ExecContext(ctx, u.Value, u.SurrogateKey)
			if err != nil {
				return models.NewStoreError("обновление "+table.MetricColumn, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return models.NewStoreError("обновление "+table.MetricColumn, err)
			}
			if affected != 1 {
				return &models.ConsistencyError{
					Entity:     table.Entity,
					NaturalKey: u.NaturalKey,
					Reason:     fmt.Sprintf("активная версия %d не найдена", u.SurrogateKey),
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Ошибка при обновлении %s: %v", table.MetricColumn, err)
		return 0, err
	}

	logger.Debug("Обновлено %s: %d записей", table.MetricColumn, len(updates))
	return len(updates), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
