package transform

import (
	"fmt"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// Transformer координирует преобразования: сверку измерений, построение фактов,
// расчет остатков и производных метрик
type Transformer struct {
	logger          *utils.ETLLogger
	clock           utils.Clock
	duplicatePolicy string
	rollup          RollupOptions
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(cfg config.ETLConfig, logger *utils.ETLLogger, clock utils.Clock) *Transformer {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &Transformer{
		logger:          logger,
		clock:           clock,
		duplicatePolicy: cfg.Staging.DuplicateKeys,
		rollup: RollupOptions{
			DefaultBOH: cfg.Inventory.DefaultBOH,
			GapPolicy:  cfg.Inventory.GapPolicy,
		},
	}
}

// ReconcileProducts сверяет staging-снимок товаров с активными версиями
func (t *Transformer) ReconcileProducts(staged []models.StagedProduct, current []models.ProductDimension) (*models.ReconciliationResult[models.ProductAttributes], error) {
	return reconcileWithLog(t, ProductDescriptor, staged, current)
}

// ReconcileCustomers сверяет staging-снимок клиентов с активными версиями
func (t *Transformer) ReconcileCustomers(staged []models.StagedCustomer, current []models.CustomerDimension) (*models.ReconciliationResult[models.CustomerAttributes], error) {
	return reconcileWithLog(t, CustomerDescriptor, staged, current)
}

func reconcileWithLog[A any](t *Transformer, d Descriptor[A], staged []models.StagedEntity[A], current []models.DimensionRecord[A]) (*models.ReconciliationResult[A], error) {
	t.logger.Debug("Сверка измерения %s: в staging %d строк, активных версий %d", d.Entity, len(staged), len(current))

	result, err := Reconcile(d, staged, current, ReconcileOptions{
		Now:             t.clock(),
		DuplicatePolicy: t.duplicatePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при сверке измерения %s: %w", d.Entity, err)
	}

	t.logger.Info("Сверка измерения %s: закрыто %d, добавлено %d, без изменений %d",
		d.Entity, len(result.Expired), len(result.Inserted), len(result.Unchanged))
	return result, nil
}

// BuildFacts преобразует staging-продажи в факты
func (t *Transformer) BuildFacts(sales []models.StagedSale, productKeys, customerKeys map[string]int64) ([]models.SalesFact, error) {
	facts, err := BuildSalesFacts(sales, productKeys, customerKeys, t.clock())
	if err != nil {
		return nil, fmt.Errorf("ошибка при преобразовании продаж: %w", err)
	}

	unresolved := 0
	for _, f := range facts {
		if f.ProductKey == nil || f.CustomerKey == nil {
			unresolved++
		}
	}
	if unresolved > 0 {
		t.logger.Warn("Фактов без активной версии товара или клиента: %d", unresolved)
	}
	return facts, nil
}

// Rollup рассчитывает новые снимки остатков
func (t *Transformer) Rollup(in RollupInput) []models.InventorySnapshot {
	start := time.Now()
	opts := t.rollup
	opts.OnSkippedSales = func(productID string, day time.Time, quantity int64) {
		t.logger.Warn("Снимок остатков товара %s за %s уже сохранен, продано %d ед. не учтено в остатках",
			productID, day.Format(models.DateLayout), quantity)
	}
	snapshots := ComputeRollup(in, opts)
	t.logger.Debug("Расчет остатков (%s): продаж %d, предыдущих снимков %d, новых снимков %d за %v",
		t.rollup.GapPolicy, len(in.Sales), len(in.Prior), len(snapshots), time.Since(start))
	return snapshots
}
