package config

import (
	"time"
)

// Политики обработки пропущенных дней в цепочке остатков
const (
	GapPolicyLiteral = "literal" // снимки только для дней с продажами
	GapPolicyFill    = "fill"    // дни без продаж заполняются нулевыми продажами
)

// Политики обработки дубликатов натурального ключа в staging-пакете
const (
	DuplicateReject   = "reject"
	DuplicateLastWins = "last_wins"
)

// ETLConfig содержит конфигурацию для ETL-процесса
type ETLConfig struct {
	// Хранилище (измерения, факты, остатки, журнал запусков, staging-таблицы)
	Warehouse DatabaseConfig `yaml:"warehouse" validate:"required"`

	// Имя задания в журнале запусков
	JobName string `yaml:"job_name" validate:"required,max=64"`

	// Интервал запуска ETL в режиме планировщика
	RunInterval time.Duration `yaml:"run_interval" validate:"gt=0"`

	Inventory InventoryConfig `yaml:"inventory"`
	Staging   StagingConfig   `yaml:"staging"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `yaml:"driver" validate:"required,oneof=mysql sqlite3"`
	Host     string `yaml:"host" validate:"required_if=Driver mysql"`
	Port     int    `yaml:"port" validate:"required_if=Driver mysql,gte=0,lte=65535"`
	User     string `yaml:"user" validate:"required_if=Driver mysql"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" validate:"required_if=Driver mysql"`
	Path     string `yaml:"path" validate:"required_if=Driver sqlite3"` // файл базы для sqlite3
}

// InventoryConfig содержит параметры расчета остатков
type InventoryConfig struct {
	// Остаток на начало дня для товара без предыдущего снимка
	DefaultBOH int64  `yaml:"default_boh" validate:"gte=0"`
	GapPolicy  string `yaml:"gap_policy" validate:"oneof=literal fill"`
}

// StagingConfig содержит параметры обработки staging-слоя
type StagingConfig struct {
	DuplicateKeys string `yaml:"duplicate_keys" validate:"oneof=reject last_wins"`
}

// ServerConfig содержит параметры HTTP-сервера статуса
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// LogConfig содержит параметры логирования
type LogConfig struct {
	Mode    string `yaml:"mode" validate:"oneof=development production"`
	Verbose bool   `yaml:"verbose"`
	File    string `yaml:"file"`
}

// Значения конфигурации по умолчанию
var (
	DefaultWarehouseConfig = DatabaseConfig{
		Driver: "sqlite3",
		Path:   "warehouse.db",
	}

	DefaultETLConfig = ETLConfig{
		Warehouse:   DefaultWarehouseConfig,
		JobName:     "warehouse_load",
		RunInterval: 1 * time.Hour,
		Inventory: InventoryConfig{
			DefaultBOH: 100,
			GapPolicy:  GapPolicyLiteral,
		},
		Staging: StagingConfig{
			DuplicateKeys: DuplicateReject,
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
		Log: LogConfig{
			Mode:    "development",
			Verbose: false,
		},
	}
)

// GetConfig возвращает конфигурацию ETL по умолчанию
func GetConfig() ETLConfig {
	return DefaultETLConfig
}
