package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// ActiveDimension читает активные версии измерения. Несколько активных версий
// одного натурального ключа означают повреждение хранилища: возвращается
// ConsistencyError, и запуск должен быть остановлен.
func ActiveDimension[A any](ctx context.Context, q Queryer, table models.DimensionTable[A]) ([]models.DimensionRecord[A], error) {
	query := fmt.Sprintf(`
		SELECT surrogate_key, %s, %s, %s, is_active, start_date, end_date, last_updated
		FROM %s
		WHERE is_active = 1
		ORDER BY %s, surrogate_key
	`, table.KeyColumn, strings.Join(table.Columns, ", "), table.MetricColumn, table.Table, table.KeyColumn)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, models.NewStoreError("чтение "+table.Table, err)
	}
	defer rows.Close()

	var records []models.DimensionRecord[A]
	perKey := make(map[string]int)
	for rows.Next() {
		var (
			rec     models.DimensionRecord[A]
			endDate sql.NullTime
		)
		dest := []any{&rec.SurrogateKey, &rec.NaturalKey}
		dest = append(dest, table.Dest(&rec.Attributes)...)
		dest = append(dest, &rec.DerivedMetric, &rec.IsActive, &rec.StartDate, &endDate, &rec.LastUpdated)

		if err := rows.Scan(dest...); err != nil {
			return nil, models.NewStoreError("обработка строки "+table.Table, err)
		}
		rec.StartDate = rec.StartDate.UTC()
		rec.LastUpdated = rec.LastUpdated.UTC()
		if endDate.Valid {
			t := endDate.Time.UTC()
			rec.EndDate = &t
		}

		perKey[rec.NaturalKey]++
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по "+table.Table, err)
	}

	for key, n := range perKey {
		if n > 1 {
			return nil, &models.ConsistencyError{Entity: table.Entity, NaturalKey: key, ActiveCount: n}
		}
	}

	return records, nil
}

// ActiveKeys возвращает суррогатные ключи активных версий по натуральному ключу
func ActiveKeys[A any](records []models.DimensionRecord[A]) map[string]int64 {
	keys := make(map[string]int64, len(records))
	for _, rec := range records {
		keys[rec.NaturalKey] = rec.SurrogateKey
	}
	return keys
}

// SalesSince возвращает продажи из таблицы фактов с датой строго после границы.
// nil-граница означает первый запуск: возвращается вся история.
func SalesSince(ctx context.Context, q Queryer, boundary *time.Time) ([]models.SaleEvent, error) {
	query := `
		SELECT product_id, quantity, transaction_date
		FROM sales_fact
		WHERE transaction_date > ?
		ORDER BY transaction_date, fact_id
	`
	params := []any{}
	if boundary != nil {
		params = append(params, boundary.UTC())
	} else {
		query = `
			SELECT product_id, quantity, transaction_date
			FROM sales_fact
			ORDER BY transaction_date, fact_id
		`
	}

	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, models.NewStoreError("чтение продаж из sales_fact", err)
	}
	defer rows.Close()

	var sales []models.SaleEvent
	for rows.Next() {
		var sale models.SaleEvent
		if err := rows.Scan(&sale.ProductID, &sale.Quantity, &sale.TransactionDate); err != nil {
			return nil, models.NewStoreError("обработка строки sales_fact", err)
		}
		sale.TransactionDate = sale.TransactionDate.UTC()
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по sales_fact", err)
	}

	return sales, nil
}

// PriorSnapshots возвращает сохраненные снимки остатков, от которых продолжается
// цепочка: все снимки начиная с дня перед границей и последний снимок каждого товара.
func PriorSnapshots(ctx context.Context, q Queryer, boundary *time.Time) ([]models.InventorySnapshot, error) {
	const columns = "s.product_id, s.snapshot_date, s.boh, s.eoh, s.quantity_sold"

	windowQuery := `SELECT ` + columns + ` FROM inventory_snapshot s`
	var params []any
	if boundary != nil {
		windowQuery += ` WHERE s.snapshot_date >= ?`
		params = append(params, utils.TruncateToDay(*boundary).AddDate(0, 0, -1).Format(models.DateLayout))
	}

	window, err := querySnapshots(ctx, q, windowQuery, params...)
	if err != nil {
		return nil, err
	}
	if boundary == nil {
		return window, nil
	}

	latest, err := querySnapshots(ctx, q, `
		SELECT `+columns+`
		FROM inventory_snapshot s
		JOIN (
			SELECT product_id, MAX(snapshot_date) AS snapshot_date
			FROM inventory_snapshot
			GROUP BY product_id
		) m ON s.product_id = m.product_id AND s.snapshot_date = m.snapshot_date
	`)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(window))
	for _, snap := range window {
		seen[snap.ProductID+"|"+snap.SnapshotDate.Format(models.DateLayout)] = true
	}
	for _, snap := range latest {
		if !seen[snap.ProductID+"|"+snap.SnapshotDate.Format(models.DateLayout)] {
			window = append(window, snap)
		}
	}
	return window, nil
}

// SnapshotsForProduct возвращает всю историю остатков товара по возрастанию даты
func SnapshotsForProduct(ctx context.Context, q Queryer, productID string) ([]models.InventorySnapshot, error) {
	return querySnapshots(ctx, q, `
		SELECT s.product_id, s.snapshot_date, s.boh, s.eoh, s.quantity_sold
		FROM inventory_snapshot s
		WHERE s.product_id = ?
		ORDER BY s.snapshot_date
	`, productID)
}

func querySnapshots(ctx context.Context, q Queryer, query string, args ...any) ([]models.InventorySnapshot, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.NewStoreError("чтение inventory_snapshot", err)
	}
	defer rows.Close()

	var snapshots []models.InventorySnapshot
	for rows.Next() {
		var (
			snap models.InventorySnapshot
			date string
		)
		if err := rows.Scan(&snap.ProductID, &date, &snap.BOH, &snap.EOH, &snap.QuantitySold); err != nil {
			return nil, models.NewStoreError("обработка строки inventory_snapshot", err)
		}
		snap.SnapshotDate, err = time.Parse(models.DateLayout, date)
		if err != nil {
			return nil, &models.ConsistencyError{Entity: models.EntityProduct, NaturalKey: snap.ProductID, Reason: fmt.Sprintf("некорректная дата снимка %q", date)}
		}
		snapshots = append(snapshots, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по inventory_snapshot", err)
	}

	return snapshots, nil
}

// QuantityTotals суммирует количество по всей истории фактов в разрезе
// колонки натурального ключа
func QuantityTotals(ctx context.Context, q Queryer, keyColumn string) (map[string]int64, error) {
	if keyColumn != models.ProductTable.KeyColumn && keyColumn != models.CustomerTable.KeyColumn {
		return nil, fmt.Errorf("неизвестная колонка ключа: %q", keyColumn)
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, SUM(quantity)
		FROM sales_fact
		GROUP BY %[1]s
	`, keyColumn))
	if err != nil {
		return nil, models.NewStoreError("агрегация sales_fact по "+keyColumn, err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			total int64
		)
		if err := rows.Scan(&key, &total); err != nil {
			return nil, models.NewStoreError("обработка агрегата sales_fact", err)
		}
		totals[key] = total
	}

	if err = rows.Err(); err != nil {
		return nil, models.NewStoreError("итерация по агрегату sales_fact", err)
	}

	return totals, nil
}

// TotalQuantitySold возвращает суммарное количество проданных единиц товара
// по всей истории фактов. Для неизвестного товара возвращается 0.
func TotalQuantitySold(ctx context.Context, q Queryer, productID string) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM sales_fact
		WHERE product_id = ?
	`, strings.TrimSpace(productID)).Scan(&total)
	if err != nil {
		return 0, models.NewStoreError("подсчет продаж товара", err)
	}
	return total, nil
}
