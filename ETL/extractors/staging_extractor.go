package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// StagedEntities читает полный снимок сущности из staging-таблицы в порядке загрузки
func StagedEntities[A any](ctx context.Context, q Queryer, table models.DimensionTable[A]) ([]models.StagedEntity[A], error) {
	query := fmt.Sprintf(`
		SELECT staging_id, %s, %s, source_updated_at, COALESCE(source_file, ''), loaded_at
		FROM %s
		ORDER BY staging_id
	`, table.KeyColumn, strings.Join(table.Columns, ", "), table.StagingTable)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStoreError("чтение "+table.StagingTable, err)
	}
	defer rows.Close()

	var staged []models.StagedEntity[A]
	for rows.Next() {
		var (
			row       models.StagedEntity[A]
			updatedAt sql.NullTime
		)
		attrs := table.Dest(&row.Attributes)
		columns := make([]*nullColumn, len(attrs))

		dest := []any{&row.StagingID, &row.NaturalKey}
		for i, a := range attrs {
			columns[i] = &nullColumn{dest: a}
			dest = append(dest, columns[i])
		}
		dest = append(dest, &updatedAt, &row.Provenance.SourceFile, &row.Provenance.LoadedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, models.NewStoreError("обработка строки "+table.StagingTable, err)
		}
		for i, c := range columns {
			if c.isNull {
				row.NullColumns = append(row.NullColumns, table.Columns[i])
			}
		}
		if updatedAt.Valid {
			t := updatedAt.Time.UTC()
			row.SourceUpdatedAt = &t
		}
		row.Provenance.LoadedAt = row.Provenance.LoadedAt.UTC()
		staged = append(staged, row)
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по "+table.StagingTable, err)
	}

	return staged, nil
}

// StagedSales читает строки продаж из staging-таблицы
func StagedSales(ctx context.Context, q Queryer) ([]models.StagedSale, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT staging_id, transaction_id, product_id, customer_id, quantity,
			unit_price, exchange_rate, transaction_date, COALESCE(source_file, ''), loaded_at
		FROM stg_sales
		ORDER BY staging_id
	`)
	if err != nil {
		return nil, models.NewStoreError("чтение stg_sales", err)
	}
	defer rows.Close()

	var sales []models.StagedSale
	for rows.Next() {
		var (
			sale models.StagedSale
			rate decimal.NullDecimal
		)
		if err := rows.Scan(
			&sale.StagingID, &sale.TransactionID, &sale.ProductID, &sale.CustomerID, &sale.Quantity,
			&sale.UnitPrice, &rate, &sale.TransactionDate, &sale.Provenance.SourceFile, &sale.Provenance.LoadedAt,
		); err != nil {
			return nil, models.NewStoreError("обработка строки stg_sales", err)
		}

		sale.ExchangeRate = decimal.NewFromInt(1)
		if rate.Valid {
			sale.ExchangeRate = rate.Decimal
		}
		sale.TransactionDate = sale.TransactionDate.UTC()
		sale.Provenance.LoadedAt = sale.Provenance.LoadedAt.UTC()
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по stg_sales", err)
	}

	return sales, nil
}

// nullColumn принимает NULL из staging-колонки атрибута: значение остается
// нулевым, а факт NULL запоминается для проверки при сверке
type nullColumn struct {
	dest   any
	isNull bool
}

func (c *nullColumn) Scan(src any) error {
	if src == nil {
		c.isNull = true
		return nil
	}

	switch d := c.dest.(type) {
	case sql.Scanner:
		return d.Scan(src)
	case *string:
		switch v := src.(type) {
		case string:
			*d = v
		case []byte:
			*d = string(v)
		default:
			*d = fmt.Sprint(v)
		}
		return nil
	}
	return fmt.Errorf("неподдерживаемый тип атрибута %T", c.dest)
}
