package runner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/extractors"
	"github.com/binisha8/sales_inventory_etl/ETL/load"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/monitoring"
	"github.com/binisha8/sales_inventory_etl/ETL/transform"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// Шаги запуска в порядке выполнения
const (
	StepExtract   = "extract"
	StepProducts  = "product_dimension"
	StepCustomers = "customer_dimension"
	StepFacts     = "sales_fact"
	StepInventory = "inventory_snapshot"
	StepMetrics   = "derived_metrics"
)

// ETLRunner выполняет один запуск загрузки хранилища: журнал запусков,
// сверка измерений, факты, остатки, производные метрики
type ETLRunner struct {
	config      config.ETLConfig
	logger      *utils.ETLLogger
	clock       utils.Clock
	extractor   *extractors.Extractor
	transformer *transform.Transformer
	loader      load.Loader
	audit       models.AuditRepository
}

// Option настраивает ETLRunner
type Option func(*ETLRunner)

// WithLoader подменяет загрузчик
func WithLoader(loader load.Loader) Option {
	return func(r *ETLRunner) { r.loader = loader }
}

// WithClock подменяет часы
func WithClock(clock utils.Clock) Option {
	return func(r *ETLRunner) { r.clock = clock }
}

// NewETLRunner создает новый экземпляр ETLRunner поверх открытого хранилища
func NewETLRunner(cfg config.ETLConfig, db *sql.DB, dialect models.Dialect, logger *utils.ETLLogger, opts ...Option) *ETLRunner {
	r := &ETLRunner{
		config: cfg,
		logger: logger,
		clock:  utils.SystemClock,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.extractor = extractors.NewExtractor(db, logger)
	r.transformer = transform.NewTransformer(cfg, logger, r.clock)
	if r.loader == nil {
		r.loader = load.NewWarehouseLoader(db, logger, r.clock)
	}
	r.audit = models.NewSQLAuditRepository(db, dialect, r.clock)

	return r
}

// Audit возвращает журнал запусков
func (r *ETLRunner) Audit() models.AuditRepository {
	return r.audit
}

// Extractor возвращает экстрактор состояния хранилища
func (r *ETLRunner) Extractor() *extractors.Extractor {
	return r.extractor
}

// ExecuteETL выполняет полный запуск. Любая ошибка шага завершает запуск со
// статусом Failure и сообщением об ошибке; последующие шаги не выполняются.
func (r *ETLRunner) ExecuteETL(ctx context.Context) (models.RunCounters, error) {
	var counters models.RunCounters
	startTime := time.Now()

	handle, err := r.audit.BeginRun(ctx, r.config.JobName)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале запусков: %v", err)
		return counters, fmt.Errorf("ошибка при создании записи в журнале запусков: %w", err)
	}

	logger := r.logger.With("run_id", handle.RunID)
	logger.LogETLStart(r.config.JobName)

	run := &etlRun{
		ETLRunner: r,
		logger:    logger,
		counters:  &counters,
	}

	if stepName, err := run.execute(ctx); err != nil {
		errMsg := fmt.Sprintf("ошибка на шаге %s: %v", stepName, err)
		logger.Error(errMsg)

		// Запуск завершается даже при отмене контекста запуска
		if cerr := r.audit.CompleteRun(context.WithoutCancel(ctx), handle, models.RunStatusFailure, errMsg, counters); cerr != nil {
			logger.Error("Ошибка при обновлении записи в журнале запусков: %v", cerr)
		}
		monitoring.ObserveRun(r.config.JobName, string(models.RunStatusFailure), time.Since(startTime), r.clock())
		return counters, fmt.Errorf("ошибка на шаге %s: %w", stepName, err)
	}

	if err := r.audit.CompleteRun(ctx, handle, models.RunStatusSuccess, "", counters); err != nil {
		logger.Error("Ошибка при обновлении записи в журнале запусков: %v", err)
		return counters, fmt.Errorf("ошибка при завершении запуска: %w", err)
	}

	monitoring.ObserveRun(r.config.JobName, string(models.RunStatusSuccess), time.Since(startTime), r.clock())
	logger.LogETLComplete(startTime, counters.ProductsChanged, counters.CustomersChanged, counters.FactsLoaded, counters.SnapshotsWritten)
	return counters, nil
}

// etlRun - состояние одного запуска
type etlRun struct {
	*ETLRunner
	logger   *utils.ETLLogger
	counters *models.RunCounters

	boundary *time.Time
	staged   *models.StagedData
	products []models.ProductDimension
	customer []models.CustomerDimension
}

// execute выполняет шаги по порядку и возвращает имя шага, на котором произошла ошибка
func (run *etlRun) execute(ctx context.Context) (string, error) {
	var err error
	run.boundary, err = run.audit.LastSuccessfulBoundary(ctx, run.config.JobName)
	if err != nil {
		return "boundary", err
	}
	if run.boundary != nil {
		run.logger.Info("Граница последнего успешного запуска: %v", run.boundary.Format(time.RFC3339Nano))
	} else {
		run.logger.Info("Успешных запусков еще не было, обрабатывается вся история")
	}

	steps := []struct {
		name string
		fn   func(context.Context) (int, error)
	}{
		{StepExtract, run.extract},
		{StepProducts, run.reconcileProducts},
		{StepCustomers, run.reconcileCustomers},
		{StepFacts, run.loadFacts},
		{StepInventory, run.rollupInventory},
		{StepMetrics, run.refreshDerivedMetrics},
	}

	for _, step := range steps {
		start := time.Now()
		run.logger.LogStepStart(step.name)

		rows, err := step.fn(ctx)
		if err != nil {
			return step.name, err
		}

		duration := time.Since(start)
		monitoring.ObserveStep(step.name, duration)
		run.logger.LogStepComplete(step.name, rows, duration)
	}
	return "", nil
}

func (run *etlRun) extract(ctx context.Context) (int, error) {
	staged, err := run.extractor.ExtractStaged(ctx)
	if err != nil {
		return 0, err
	}
	run.staged = staged
	return len(staged.Products) + len(staged.Customers) + len(staged.Sales), nil
}

func (run *etlRun) reconcileProducts(ctx context.Context) (int, error) {
	current, err := run.extractor.ActiveProducts(ctx)
	if err != nil {
		return 0, err
	}
	res, err := run.transformer.ReconcileProducts(run.staged.Products, current)
	if err != nil {
		return 0, err
	}
	if err := run.loader.ApplyProducts(ctx, res); err != nil {
		return 0, err
	}

	monitoring.ObserveDimension(string(res.Entity), len(res.Expired), len(res.Inserted))
	run.counters.ProductsChanged = res.Changes()
	return res.Changes(), nil
}

func (run *etlRun) reconcileCustomers(ctx context.Context) (int, error) {
	current, err := run.extractor.ActiveCustomers(ctx)
	if err != nil {
		return 0, err
	}
	res, err := run.transformer.ReconcileCustomers(run.staged.Customers, current)
	if err != nil {
		return 0, err
	}
	if err := run.loader.ApplyCustomers(ctx, res); err != nil {
		return 0, err
	}

	monitoring.ObserveDimension(string(res.Entity), len(res.Expired), len(res.Inserted))
	run.counters.CustomersChanged = res.Changes()
	return res.Changes(), nil
}

func (run *etlRun) loadFacts(ctx context.Context) (int, error) {
	var err error
	if run.products, err = run.extractor.ActiveProducts(ctx); err != nil {
		return 0, err
	}
	if run.customer, err = run.extractor.ActiveCustomers(ctx); err != nil {
		return 0, err
	}

	facts, err := run.transformer.BuildFacts(run.staged.Sales, extractors.ActiveKeys(run.products), extractors.ActiveKeys(run.customer))
	if err != nil {
		return 0, err
	}

	consumed := make([]int64, 0, len(run.staged.Sales))
	for _, sale := range run.staged.Sales {
		consumed = append(consumed, sale.StagingID)
	}

	n, err := run.loader.LoadSalesFacts(ctx, facts, consumed)
	if err != nil {
		return 0, err
	}

	monitoring.ObserveFacts(n)
	run.counters.FactsLoaded = n
	return n, nil
}

func (run *etlRun) rollupInventory(ctx context.Context) (int, error) {
	sales, err := run.extractor.SalesSince(ctx, run.boundary)
	if err != nil {
		return 0, err
	}
	prior, err := run.extractor.PriorSnapshots(ctx, run.boundary)
	if err != nil {
		return 0, err
	}

	active := make([]string, 0, len(run.products))
	for _, p := range run.products {
		active = append(active, p.NaturalKey)
	}

	snapshots := run.transformer.Rollup(transform.RollupInput{
		Boundary:       run.boundary,
		ActiveProducts: active,
		Sales:          sales,
		Prior:          prior,
	})

	n, err := run.loader.LoadInventory(ctx, snapshots)
	if err != nil {
		return 0, err
	}

	monitoring.ObserveSnapshots(n)
	run.counters.SnapshotsWritten = n
	return n, nil
}

func (run *etlRun) refreshDerivedMetrics(ctx context.Context) (int, error) {
	productTotals, err := run.extractor.QuantityTotals(ctx, models.ProductTable.KeyColumn)
	if err != nil {
		return 0, err
	}
	products, err := run.loader.UpdateProductMetrics(ctx, transform.ComputeDerivedMetrics(run.products, productTotals))
	if err != nil {
		return 0, err
	}

	customerTotals, err := run.extractor.QuantityTotals(ctx, models.CustomerTable.KeyColumn)
	if err != nil {
		return 0, err
	}
	customers, err := run.loader.UpdateCustomerMetrics(ctx, transform.ComputeDerivedMetrics(run.customer, customerTotals))
	if err != nil {
		return 0, err
	}

	return products + customers, nil
}

// StartScheduler запускает планировщик для регулярного выполнения ETL и
// блокируется до отмены контекста. Запуски одного задания не пересекаются.
func (r *ETLRunner) StartScheduler(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

	_, err := scheduler.Every(r.config.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		if _, err := r.ExecuteETL(ctx); err != nil {
			r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	scheduler.StartAsync()

	<-ctx.Done()

	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}
