package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// ReplaceStaged заменяет полный снимок сущности в staging-таблице.
// Используется внешней загрузкой файлов и тестами.
func ReplaceStaged[A any](ctx context.Context, db *sql.DB, table models.DimensionTable[A], rows []models.StagedEntity[A]) error {
	columns := append([]string{table.KeyColumn}, table.Columns...)
	columns = append(columns, "source_updated_at", "source_file", "loaded_at")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.StagingTable, strings.Join(columns, ", "), placeholders(len(columns)))

	return inTx(ctx, db, "замена "+table.StagingTable, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table.StagingTable); err != nil {
			return models.NewStoreError("очистка "+table.StagingTable, err)
		}

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return models.NewStoreError("подготовка вставки "+table.StagingTable, err)
		}
		defer stmt.Close()

		for _, row := range rows {
			args := append([]any{row.NaturalKey}, table.Args(row.Attributes)...)
			args = append(args, row.SourceUpdatedAt, row.Provenance.SourceFile, row.Provenance.LoadedAt.UTC())
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return models.NewStoreError("вставка "+table.StagingTable, err)
			}
		}
		return nil
	})
}

// AppendStagedSales добавляет строки продаж в stg_sales
func AppendStagedSales(ctx context.Context, db *sql.DB, sales []models.StagedSale) error {
	return inTx(ctx, db, "добавление stg_sales", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stg_sales (
				transaction_id, product_id, customer_id, quantity, unit_price,
				exchange_rate, transaction_date, source_file, loaded_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return models.NewStoreError("подготовка вставки stg_sales", err)
		}
		defer stmt.Close()

		for _, s := range sales {
			var rate any
			if !s.ExchangeRate.IsZero() {
				rate = s.ExchangeRate
			}
			if _, err := stmt.ExecContext(ctx,
				s.TransactionID, s.ProductID, s.CustomerID, s.Quantity, s.UnitPrice,
				rate, s.TransactionDate.UTC(), s.Provenance.SourceFile, s.Provenance.LoadedAt.UTC(),
			); err != nil {
				return models.NewStoreError("вставка stg_sales", err)
			}
		}
		return nil
	})
}
