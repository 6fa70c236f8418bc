// commands.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/load"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/runner"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
	"github.com/binisha8/sales_inventory_etl/routes"
)

// rootOptions - общие флаги всех команд
type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "warehouse-etl",
		Short: "Инкрементальная загрузка хранилища продаж и остатков",
		Long: `Загружает staging-слой в хранилище: измерения товаров и клиентов (SCD2),
факты продаж, ежедневные остатки и производные метрики. Каждый запуск
фиксируется в журнале запусков; следующий запуск продолжает с границы
последнего успешного.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "путь к YAML-файлу конфигурации (по умолчанию $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "подробный вывод")

	cmd.AddCommand(newOnceCommand(opts))
	cmd.AddCommand(newScheduledCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}

// app - открытые ресурсы одной команды
type app struct {
	cfg     config.ETLConfig
	logger  *utils.ETLLogger
	db      *sql.DB
	dialect models.Dialect
}

// openApp загружает конфигурацию, создает логгер, подключается к хранилищу
// и приводит схему к актуальному виду
func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := utils.NewETLLogger(utils.LogOptions{
		Mode:    cfg.Log.Mode,
		Verbose: cfg.Log.Verbose || opts.Verbose,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер: %w", err)
	}

	db, dialect, err := config.ConnectWarehouse(ctx, cfg.Warehouse)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	if err := load.EnsureSchema(ctx, db, dialect); err != nil {
		config.CloseWarehouse(db)
		logger.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, db: db, dialect: dialect}, nil
}

func (a *app) close() {
	config.CloseWarehouse(a.db)
	a.logger.Sync()
}

func (a *app) runner() *runner.ETLRunner {
	return runner.NewETLRunner(a.cfg, a.db, a.dialect, a.logger)
}

// signalContext отменяется по SIGINT/SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newOnceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Выполнить один запуск ETL и выйти",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			counters, err := a.runner().ExecuteETL(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "товаров изменено: %d, клиентов изменено: %d, фактов загружено: %d, снимков остатков: %d\n",
				counters.ProductsChanged, counters.CustomersChanged, counters.FactsLoaded, counters.SnapshotsWritten)
			return nil
		},
	}
}

func newScheduledCommand(opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Запускать ETL по расписанию до получения сигнала завершения",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if interval > 0 {
				a.cfg.RunInterval = interval
			}
			return a.runner().StartScheduler(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "интервал запуска (по умолчанию run_interval из конфигурации)")
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP API статуса и метрик вместе с планировщиком ETL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			etl := a.runner()

			router := mux.NewRouter()
			routes.SetupRoutes(router, routes.NewAPI(etl.Audit(), a.db, a.cfg.JobName, a.logger))

			server := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				a.logger.Info("Сервер статуса запущен на %s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			schedulerDone := make(chan error, 1)
			if noScheduler {
				close(schedulerDone)
			} else {
				go func() {
					schedulerDone <- etl.StartScheduler(ctx)
				}()
			}

			select {
			case <-ctx.Done():
				a.logger.Info("Получен сигнал завершения, останавливаем сервер")
			case err := <-serverErr:
				if err != nil {
					stop()
					<-schedulerDone
					return fmt.Errorf("ошибка запуска сервера: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Ошибка при остановке сервера: %v", err)
			}

			return <-schedulerDone
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "только HTTP API, без планировщика")
	return cmd
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Показать состояние задания и последние запуски",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close()

			audit := a.runner().Audit()

			monitor, err := audit.StateMonitor(ctx, a.cfg.JobName)
			if err != nil {
				return err
			}
			runs, err := audit.RecentRuns(ctx, a.cfg.JobName, days)
			if err != nil {
				return err
			}

			out := struct {
				*models.ETLStateMonitor
				RecentRuns []models.AuditRecord `json:"recent_runs"`
			}{monitor, runs}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "за сколько дней показывать запуски")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать таблицы хранилища, staging-слоя и журнала запусков",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			a.logger.Info("Схема хранилища (%s) актуальна", a.dialect)
			return nil
		},
	}
}
