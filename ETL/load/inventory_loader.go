package load

import (
	"context"
	"database/sql"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// LoadInventory добавляет снимки остатков одной транзакцией. Ряд только
// продлевается: попытка записать существующий (товар, дата) нарушает
// первичный ключ и откатывает весь пакет.
func LoadInventory(ctx context.Context, db *sql.DB, logger *utils.ETLLogger, snapshots []models.InventorySnapshot, createdAt time.Time) (int, error) {
	if len(snapshots) == 0 {
		logger.Debug("Нет снимков остатков для загрузки")
		return 0, nil
	}

	startTime := time.Now()
	logger.Info("Начало загрузки снимков остатков (всего: %d)", len(snapshots))

	err := inTx(ctx, db, "загрузка inventory_snapshot", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO inventory_snapshot (product_id, snapshot_date, boh, eoh, quantity_sold, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return models.NewStoreError("подготовка вставки inventory_snapshot", err)
		}
		defer stmt.Close()

		for _, snap := range snapshots {
			_, err := stmt.ExecContext(ctx,
				snap.ProductID,
				snap.SnapshotDate.UTC().Format(models.DateLayout),
				snap.BOH,
				snap.EOH,
				snap.QuantitySold,
				createdAt.UTC(),
			)
			if err != nil {
				return models.NewStoreError("вставка снимка "+snap.ProductID+" "+snap.SnapshotDate.Format(models.DateLayout), err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Ошибка при загрузке снимков остатков: %v", err)
		return 0, err
	}

	logger.Info("Загрузка снимков остатков завершена. Загружено записей: %d. Длительность: %v", len(snapshots), time.Since(startTime))
	return len(snapshots), nil
}
