package load

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func openWarehouse(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, dialect, err := config.ConnectWarehouse(ctx, config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "warehouse.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(ctx, db, dialect))
	return db
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func newProduct(key string, price int64) models.ProductDimension {
	return models.ProductDimension{
		NaturalKey:  key,
		Attributes:  models.ProductAttributes{Name: "Widget", Category: "tools", Price: decimal.NewFromInt(price)},
		IsActive:    true,
		StartDate:   testNow,
		LastUpdated: testNow,
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openWarehouse(t)
	require.NoError(t, EnsureSchema(context.Background(), db, models.DialectSQLite))
}

func TestApplyDimension_InsertThenVersion(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()

	res := &models.ReconciliationResult[models.ProductAttributes]{
		Entity:   models.EntityProduct,
		Inserted: []models.ProductDimension{newProduct("1", 10)},
	}
	require.NoError(t, ApplyDimension(ctx, db, logger, models.ProductTable, res))
	first := res.Inserted[0]
	require.NotZero(t, first.SurrogateKey)

	end := testNow.Add(time.Hour)
	expired := first
	expired.IsActive = false
	expired.EndDate = &end
	expired.LastUpdated = end
	next := newProduct("1", 12)
	next.StartDate = end

	res = &models.ReconciliationResult[models.ProductAttributes]{
		Entity:   models.EntityProduct,
		Expired:  []models.ProductDimension{expired},
		Inserted: []models.ProductDimension{next},
	}
	require.NoError(t, ApplyDimension(ctx, db, logger, models.ProductTable, res))

	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM product_dimension WHERE product_id = ?", "1"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM product_dimension WHERE product_id = ? AND is_active = 1", "1"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM product_dimension WHERE surrogate_key = ? AND end_date IS NOT NULL", first.SurrogateKey))

	var price decimal.Decimal
	require.NoError(t, db.QueryRow("SELECT price FROM product_dimension WHERE is_active = 1").Scan(&price))
	assert.True(t, decimal.NewFromInt(12).Equal(price))
}

func TestApplyDimension_StaleExpiryRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()

	end := testNow
	ghost := newProduct("1", 10)
	ghost.SurrogateKey = 999
	ghost.IsActive = false
	ghost.EndDate = &end

	res := &models.ReconciliationResult[models.ProductAttributes]{
		Entity:   models.EntityProduct,
		Expired:  []models.ProductDimension{ghost},
		Inserted: []models.ProductDimension{newProduct("1", 12)},
	}
	err := ApplyDimension(ctx, db, logger, models.ProductTable, res)
	require.Error(t, err)
	assert.True(t, models.IsConsistencyError(err))
	assert.Zero(t, countRows(t, db, "SELECT COUNT(*) FROM product_dimension"), "nothing is applied")
}

func TestLoadSalesFacts_ConsumesStaging(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()

	require.NoError(t, AppendStagedSales(ctx, db, []models.StagedSale{{
		TransactionID: "t1", ProductID: "1", CustomerID: "c1", Quantity: 2,
		UnitPrice: decimal.NewFromInt(5), TransactionDate: testNow,
		Provenance: models.Provenance{SourceFile: "sales.csv", LoadedAt: testNow},
	}}))

	var stagingID int64
	require.NoError(t, db.QueryRow("SELECT staging_id FROM stg_sales").Scan(&stagingID))

	key := int64(7)
	facts := []models.SalesFact{
		{TransactionID: "t1", ProductID: "1", CustomerID: "c1", ProductKey: &key, Quantity: 2,
			UnitPrice: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(10), TransactionDate: testNow, LoadedAt: testNow},
		{TransactionID: "t1", ProductID: "1", CustomerID: "c1", Quantity: 2,
			UnitPrice: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(10), TransactionDate: testNow, LoadedAt: testNow},
	}

	n, err := LoadSalesFacts(ctx, db, logger, facts, []int64{stagingID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotZero(t, facts[0].ID)
	assert.NotEqual(t, facts[0].ID, facts[1].ID, "every fact gets its own key")

	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM sales_fact"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM sales_fact WHERE product_key IS NULL"))
	assert.Zero(t, countRows(t, db, "SELECT COUNT(*) FROM stg_sales"))
}

// failFactInsert заставляет SQLite отклонить вставку факта с заданной транзакцией
func failFactInsert(t *testing.T, db *sql.DB, transactionID string) {
	t.Helper()
	_, err := db.Exec(`
		CREATE TRIGGER fail_fact_insert BEFORE INSERT ON sales_fact
		WHEN NEW.transaction_id = '` + transactionID + `'
		BEGIN
			SELECT RAISE(ABORT, 'диск переполнен');
		END`)
	require.NoError(t, err)
}

func TestLoadSalesFacts_FailureMidBatchRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()

	var staged []models.StagedSale
	var facts []models.SalesFact
	for _, id := range []string{"t1", "t2", "t3"} {
		staged = append(staged, models.StagedSale{
			TransactionID: id, ProductID: "1", CustomerID: "c1", Quantity: 1,
			UnitPrice: decimal.NewFromInt(5), TransactionDate: testNow,
			Provenance: models.Provenance{SourceFile: "sales.csv", LoadedAt: testNow},
		})
		facts = append(facts, models.SalesFact{
			TransactionID: id, ProductID: "1", CustomerID: "c1", Quantity: 1,
			UnitPrice: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(5), TransactionDate: testNow, LoadedAt: testNow,
		})
	}
	require.NoError(t, AppendStagedSales(ctx, db, staged))

	rows, err := db.Query("SELECT staging_id FROM stg_sales ORDER BY staging_id")
	require.NoError(t, err)
	var consumed []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		consumed = append(consumed, id)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	// первая строка успевает записаться, вторая отклоняется
	failFactInsert(t, db, "t2")

	n, err := LoadSalesFacts(ctx, db, logger, facts, consumed)
	require.Error(t, err)
	assert.True(t, models.IsStoreError(err))
	assert.Contains(t, err.Error(), "t2")
	assert.Zero(t, n)

	assert.Zero(t, countRows(t, db, "SELECT COUNT(*) FROM sales_fact"), "the fact written before the failure is rolled back")
	assert.Equal(t, 3, countRows(t, db, "SELECT COUNT(*) FROM stg_sales"), "staged sales are kept")
	for _, f := range facts {
		assert.Zero(t, f.ID)
	}
}

func TestLoadInventory_ExistingSnapshotRollsBackBatch(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	n, err := LoadInventory(ctx, db, logger, []models.InventorySnapshot{
		{ProductID: "1", SnapshotDate: day, BOH: 100, EOH: 90, QuantitySold: 10},
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = LoadInventory(ctx, db, logger, []models.InventorySnapshot{
		{ProductID: "1", SnapshotDate: day.AddDate(0, 0, 1), BOH: 90, EOH: 85, QuantitySold: 5},
		{ProductID: "1", SnapshotDate: day, BOH: 100, EOH: 0, QuantitySold: 100},
	}, testNow)
	require.Error(t, err)
	assert.True(t, models.IsStoreError(err))

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM inventory_snapshot"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM inventory_snapshot WHERE snapshot_date = ? AND eoh = 90", "2024-06-01"))
}

func TestUpdateDerivedMetrics(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)
	logger := utils.NewNopLogger()

	res := &models.ReconciliationResult[models.ProductAttributes]{
		Entity:   models.EntityProduct,
		Inserted: []models.ProductDimension{newProduct("1", 10)},
	}
	require.NoError(t, ApplyDimension(ctx, db, logger, models.ProductTable, res))
	sk := res.Inserted[0].SurrogateKey

	n, err := UpdateDerivedMetrics(ctx, db, logger, models.ProductTable, []models.DerivedMetricUpdate{{SurrogateKey: sk, NaturalKey: "1", Value: 42}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM product_dimension WHERE total_quantity_sold = 42"))

	_, err = UpdateDerivedMetrics(ctx, db, logger, models.ProductTable, []models.DerivedMetricUpdate{
		{SurrogateKey: sk, NaturalKey: "1", Value: 50},
		{SurrogateKey: sk + 100, NaturalKey: "ghost", Value: 1},
	})
	require.Error(t, err)
	assert.True(t, models.IsConsistencyError(err))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM product_dimension WHERE total_quantity_sold = 42"), "rolled back")
}

func TestReplaceStaged_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	db := openWarehouse(t)

	rows := []models.StagedCustomer{
		{NaturalKey: "c1", Attributes: models.CustomerAttributes{Name: "Ann"}, Provenance: models.Provenance{LoadedAt: testNow}},
		{NaturalKey: "c2", Attributes: models.CustomerAttributes{Name: "Bob"}, Provenance: models.Provenance{LoadedAt: testNow}},
	}
	require.NoError(t, ReplaceStaged(ctx, db, models.CustomerTable, rows))
	require.NoError(t, ReplaceStaged(ctx, db, models.CustomerTable, rows[:1]))

	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM stg_customer"))
}
