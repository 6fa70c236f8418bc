package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// ConnectWarehouse устанавливает подключение к хранилищу и возвращает его диалект
func ConnectWarehouse(ctx context.Context, cfg DatabaseConfig) (*sql.DB, models.Dialect, error) {
	dialect, err := models.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(cfg.Driver, DSN(cfg))
	if err != nil {
		return nil, "", fmt.Errorf("ошибка подключения к хранилищу: %w", err)
	}

	if dialect == models.DialectSQLite {
		// SQLite поддерживает только одного писателя
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("не удалось установить соединение с хранилищем: %w", err)
	}

	if dialect == models.DialectSQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, "", err
		}
	}

	return db, dialect, nil
}

// DSN формирует строку подключения для драйвера
func DSN(cfg DatabaseConfig) string {
	if cfg.Driver == string(models.DialectSQLite) {
		return cfg.Path
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("не удалось выполнить %q: %w", pragma, err)
		}
	}
	return nil
}

// CloseWarehouse закрывает подключение к хранилищу
func CloseWarehouse(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Printf("Ошибка при закрытии соединения с хранилищем: %v", err)
	}
}
