package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

type index struct {
	name    string
	table   string
	columns string
}

// EnsureSchema создает таблицы хранилища, staging-слоя и журнала запусков.
// Повторный вызов ничего не меняет.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect models.Dialect) error {
	statements := []string{
		dimensionDDL(dialect, models.ProductTable),
		dimensionDDL(dialect, models.CustomerTable),
		stagingDDL(dialect, models.ProductTable),
		stagingDDL(dialect, models.CustomerTable),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS stg_sales (
			staging_id %s,
			transaction_id %s NOT NULL,
			product_id %s NOT NULL,
			customer_id %s NOT NULL,
			quantity BIGINT NOT NULL,
			unit_price %s NOT NULL,
			exchange_rate %s NULL,
			transaction_date %s NOT NULL,
			source_file %s NULL,
			loaded_at %s NOT NULL
		)`, dialect.PrimaryKey(), dialect.Key(), dialect.Key(), dialect.Key(),
			dialect.Money(), dialect.Money(), dialect.Timestamp(), dialect.Text(), dialect.Timestamp()),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS sales_fact (
			fact_id %s,
			transaction_id %s NOT NULL,
			product_id %s NOT NULL,
			customer_id %s NOT NULL,
			product_key BIGINT NULL,
			customer_key BIGINT NULL,
			quantity BIGINT NOT NULL,
			unit_price %s NOT NULL,
			total_amount %s NOT NULL,
			transaction_date %s NOT NULL,
			loaded_at %s NOT NULL,
			source_file %s NULL
		)`, dialect.PrimaryKey(), dialect.Key(), dialect.Key(), dialect.Key(),
			dialect.Money(), dialect.Money(), dialect.Timestamp(), dialect.Timestamp(), dialect.Text()),
		// Первичный ключ (товар, дата) не дает перезаписать существующий снимок
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS inventory_snapshot (
			product_id %s NOT NULL,
			snapshot_date CHAR(10) NOT NULL,
			boh BIGINT NOT NULL,
			eoh BIGINT NOT NULL,
			quantity_sold BIGINT NOT NULL DEFAULT 0,
			created_at %s NOT NULL,
			PRIMARY KEY (product_id, snapshot_date)
		)`, dialect.Key(), dialect.Timestamp()),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return models.NewStoreError("создание схемы", fmt.Errorf("%s: %w", firstLine(stmt), err))
		}
	}

	indexes := []index{
		{"idx_product_dimension_key_active", models.ProductTable.Table, "product_id, is_active"},
		{"idx_customer_dimension_key_active", models.CustomerTable.Table, "customer_id, is_active"},
		{"idx_sales_fact_transaction_date", "sales_fact", "transaction_date"},
		{"idx_sales_fact_product", "sales_fact", "product_id"},
		{"idx_sales_fact_customer", "sales_fact", "customer_id"},
	}
	for _, idx := range indexes {
		if err := ensureIndex(ctx, db, dialect, idx); err != nil {
			return err
		}
	}

	audit := models.NewSQLAuditRepository(db, dialect, nil)
	return audit.CreateAuditTable(ctx)
}

func dimensionDDL[A any](dialect models.Dialect, table models.DimensionTable[A]) string {
	var cols strings.Builder
	for i, name := range table.Columns {
		fmt.Fprintf(&cols, "\t\t\t%s %s,\n", name, table.ColumnTypes(dialect)[i])
	}

	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			surrogate_key %s,
			%s %s NOT NULL,
%s			%s BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			start_date %s NOT NULL,
			end_date %s NULL,
			last_updated %s NOT NULL
		)`, table.Table, dialect.PrimaryKey(), table.KeyColumn, dialect.Key(), cols.String(),
		table.MetricColumn, dialect.Timestamp(), dialect.Timestamp(), dialect.Timestamp())
}

func stagingDDL[A any](dialect models.Dialect, table models.DimensionTable[A]) string {
	var cols strings.Builder
	for _, name := range table.Columns {
		// staging принимает строки как есть, проверка - дело сверки
		fmt.Fprintf(&cols, "\t\t\t%s %s NULL,\n", name, stagingColumnType(dialect, name))
	}

	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			staging_id %s,
			%s %s NOT NULL,
%s			source_updated_at %s NULL,
			source_file %s NULL,
			loaded_at %s NOT NULL
		)`, table.StagingTable, dialect.PrimaryKey(), table.KeyColumn, dialect.Key(), cols.String(),
		dialect.Timestamp(), dialect.Text(), dialect.Timestamp())
}

func stagingColumnType(dialect models.Dialect, column string) string {
	if column == "price" {
		return dialect.Money()
	}
	return dialect.Text()
}

// ensureIndex создает индекс, если его еще нет. MySQL не поддерживает
// CREATE INDEX IF NOT EXISTS, поэтому наличие проверяется по information_schema.
func ensureIndex(ctx context.Context, db *sql.DB, dialect models.Dialect, idx index) error {
	if dialect == models.DialectSQLite {
		_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns))
		return models.NewStoreError("создание индекса "+idx.name, err)
	}

	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?
	`, idx.table, idx.name).Scan(&count)
	if err != nil {
		return models.NewStoreError("проверка индекса "+idx.name, err)
	}
	if count > 0 {
		return nil
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns))
	return models.NewStoreError("создание индекса "+idx.name, err)
}

func firstLine(stmt string) string {
	for _, line := range strings.Split(stmt, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return stmt
}
