package load

import (
	"context"
	"database/sql"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// LoadSalesFacts добавляет факты продаж и в той же транзакции удаляет
// использованные строки stg_sales, чтобы пакет был загружен ровно один раз.
// Дедупликация и проверка ссылок на измерения не выполняются.
func LoadSalesFacts(ctx context.Context, db *sql.DB, logger *utils.ETLLogger, facts []models.SalesFact, consumed []int64) (int, error) {
	if len(facts) == 0 && len(consumed) == 0 {
		logger.Debug("Нет фактов продаж для загрузки")
		return 0, nil
	}

	startTime := time.Now()
	logger.Info("Начало загрузки фактов продаж (всего: %d)", len(facts))

	ids := make([]int64, len(facts))

	err := inTx(ctx, db, "загрузка sales_fact", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_fact (
				transaction_id, product_id, customer_id, product_key, customer_key,
				quantity, unit_price, total_amount, transaction_date, loaded_at, source_file
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return models.NewStoreError("подготовка вставки sales_fact", err)
		}
		defer stmt.Close()

		for i, fact := range facts {
			result, err := stmt.ExecContext(ctx,
				fact.TransactionID,
				fact.ProductID,
				fact.CustomerID,
				fact.ProductKey,
				fact.CustomerKey,
				fact.Quantity,
				fact.UnitPrice,
				fact.TotalAmount,
				fact.TransactionDate,
				fact.LoadedAt,
				fact.SourceFile,
			)
			if err != nil {
				return models.NewStoreError("вставка факта "+fact.TransactionID, err)
			}
			if ids[i], err = result.LastInsertId(); err != nil {
				return models.NewStoreError("получение ID факта", err)
			}

			if (i+1)%1000 == 0 {
				logger.Debug("Загружено %d из %d фактов...", i+1, len(facts))
			}
		}

		if len(consumed) == 0 {
			return nil
		}

		del, err := tx.PrepareContext(ctx, "DELETE FROM stg_sales WHERE staging_id = ?")
		if err != nil {
			return models.NewStoreError("подготовка очистки stg_sales", err)
		}
		defer del.Close()

		for _, id := range consumed {
			if _, err := del.ExecContext(ctx, id); err != nil {
				return models.NewStoreError("очистка stg_sales", err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Ошибка при загрузке фактов продаж: %v", err)
		return 0, err
	}

	for i := range facts {
		facts[i].ID = ids[i]
	}

	logger.Info("Загрузка фактов продаж завершена. Загружено записей: %d. Длительность: %v", len(facts), time.Since(startTime))
	return len(facts), nil
}
