package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// Queryer - общий интерфейс *sql.DB и *sql.Tx для чтения
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Extractor координирует чтение staging-слоя и текущего состояния хранилища
type Extractor struct {
	db     Queryer
	logger *utils.ETLLogger
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(db Queryer, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		db:     db,
		logger: logger,
	}
}

// ExtractStaged читает полный снимок staging-слоя для одного запуска
func (e *Extractor) ExtractStaged(ctx context.Context) (*models.StagedData, error) {
	startTime := time.Now()
	e.logger.LogStepStart("extract")

	var staged models.StagedData
	var err error

	staged.Products, err = StagedEntities(ctx, e.db, models.ProductTable)
	if err != nil {
		e.logger.Error("Ошибка при извлечении товаров из staging: %v", err)
		return nil, fmt.Errorf("ошибка извлечения товаров: %w", err)
	}

	staged.Customers, err = StagedEntities(ctx, e.db, models.CustomerTable)
	if err != nil {
		e.logger.Error("Ошибка при извлечении клиентов из staging: %v", err)
		return nil, fmt.Errorf("ошибка извлечения клиентов: %w", err)
	}

	staged.Sales, err = StagedSales(ctx, e.db)
	if err != nil {
		e.logger.Error("Ошибка при извлечении продаж из staging: %v", err)
		return nil, fmt.Errorf("ошибка извлечения продаж: %w", err)
	}

	e.logger.Info("Извлечено из staging: товаров %d, клиентов %d, продаж %d",
		len(staged.Products), len(staged.Customers), len(staged.Sales))
	e.logger.LogStepComplete("extract", len(staged.Products)+len(staged.Customers)+len(staged.Sales), time.Since(startTime))

	return &staged, nil
}

// ActiveProducts возвращает активные версии измерения товаров
func (e *Extractor) ActiveProducts(ctx context.Context) ([]models.ProductDimension, error) {
	return ActiveDimension(ctx, e.db, models.ProductTable)
}

// ActiveCustomers возвращает активные версии измерения клиентов
func (e *Extractor) ActiveCustomers(ctx context.Context) ([]models.CustomerDimension, error) {
	return ActiveDimension(ctx, e.db, models.CustomerTable)
}

// SalesSince возвращает продажи строго после границы
func (e *Extractor) SalesSince(ctx context.Context, boundary *time.Time) ([]models.SaleEvent, error) {
	return SalesSince(ctx, e.db, boundary)
}

// PriorSnapshots возвращает снимки остатков, нужные для продолжения цепочки
func (e *Extractor) PriorSnapshots(ctx context.Context, boundary *time.Time) ([]models.InventorySnapshot, error) {
	return PriorSnapshots(ctx, e.db, boundary)
}

// QuantityTotals возвращает суммарное количество по всей истории фактов
// в разрезе натурального ключа keyColumn (product_id или customer_id)
func (e *Extractor) QuantityTotals(ctx context.Context, keyColumn string) (map[string]int64, error) {
	return QuantityTotals(ctx, e.db, keyColumn)
}

// TotalQuantitySold возвращает суммарное количество проданных единиц товара
func (e *Extractor) TotalQuantitySold(ctx context.Context, productID string) (int64, error) {
	return TotalQuantitySold(ctx, e.db, productID)
}
