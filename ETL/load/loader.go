package load

import (
	"context"
	"database/sql"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// Loader интерфейс для загрузки результатов шагов ETL в хранилище.
// Каждый метод применяет свой шаг одной транзакцией: либо все записи шага
// видны, либо ни одной.
type Loader interface {
	// ApplyProducts применяет результат сверки измерения товаров
	ApplyProducts(ctx context.Context, res *models.ReconciliationResult[models.ProductAttributes]) error

	// ApplyCustomers применяет результат сверки измерения клиентов
	ApplyCustomers(ctx context.Context, res *models.ReconciliationResult[models.CustomerAttributes]) error

	// LoadSalesFacts добавляет факты продаж и удаляет использованные строки staging
	LoadSalesFacts(ctx context.Context, facts []models.SalesFact, consumed []int64) (int, error)

	// LoadInventory добавляет новые снимки остатков
	LoadInventory(ctx context.Context, snapshots []models.InventorySnapshot) (int, error)

	// UpdateProductMetrics записывает производную метрику активных версий товаров
	UpdateProductMetrics(ctx context.Context, updates []models.DerivedMetricUpdate) (int, error)

	// UpdateCustomerMetrics записывает производную метрику активных версий клиентов
	UpdateCustomerMetrics(ctx context.Context, updates []models.DerivedMetricUpdate) (int, error)
}

// WarehouseLoader реализация Loader для хранилища на database/sql
type WarehouseLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
	clock  utils.Clock
}

// NewWarehouseLoader создает новый экземпляр WarehouseLoader
func NewWarehouseLoader(db *sql.DB, logger *utils.ETLLogger, clock utils.Clock) *WarehouseLoader {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &WarehouseLoader{
		db:     db,
		logger: logger,
		clock:  clock,
	}
}

// ApplyProducts применяет результат сверки измерения товаров
func (l *WarehouseLoader) ApplyProducts(ctx context.Context, res *models.ReconciliationResult[models.ProductAttributes]) error {
	return ApplyDimension(ctx, l.db, l.logger, models.ProductTable, res)
}

// ApplyCustomers применяет результат сверки измерения клиентов
func (l *WarehouseLoader) ApplyCustomers(ctx context.Context, res *models.ReconciliationResult[models.CustomerAttributes]) error {
	return ApplyDimension(ctx, l.db, l.logger, models.CustomerTable, res)
}

// LoadSalesFacts добавляет факты продаж
func (l *WarehouseLoader) LoadSalesFacts(ctx context.Context, facts []models.SalesFact, consumed []int64) (int, error) {
	return LoadSalesFacts(ctx, l.db, l.logger, facts, consumed)
}

// LoadInventory добавляет новые снимки остатков
func (l *WarehouseLoader) LoadInventory(ctx context.Context, snapshots []models.InventorySnapshot) (int, error) {
	return LoadInventory(ctx, l.db, l.logger, snapshots, l.clock())
}

// UpdateProductMetrics записывает производную метрику товаров
func (l *WarehouseLoader) UpdateProductMetrics(ctx context.Context, updates []models.DerivedMetricUpdate) (int, error) {
	return UpdateDerivedMetrics(ctx, l.db, l.logger, models.ProductTable, updates)
}

// UpdateCustomerMetrics записывает производную метрику клиентов
func (l *WarehouseLoader) UpdateCustomerMetrics(ctx context.Context, updates []models.DerivedMetricUpdate) (int, error) {
	return UpdateDerivedMetrics(ctx, l.db, l.logger, models.CustomerTable, updates)
}

// inTx выполняет fn в транзакции. Любая ошибка откатывает все изменения.
func inTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStoreError(op+": начало транзакции", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return models.NewStoreError(op+": фиксация транзакции", err)
	}
	return nil
}
