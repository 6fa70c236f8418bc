package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// EnvConfigPath - переменная окружения с путем к файлу конфигурации
const EnvConfigPath = "ETL_CONFIG"

// LoadConfig загружает конфигурацию: значения по умолчанию, поверх них файл YAML.
// Пустой path означает путь из ETL_CONFIG; если и он пуст - только значения по умолчанию.
func LoadConfig(path string) (ETLConfig, error) {
	cfg := GetConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return ETLConfig{}, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return ETLConfig{}, fmt.Errorf("не удалось разобрать файл конфигурации %s: %w", path, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return ETLConfig{}, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию
func Validate(cfg ETLConfig) error {
	if err := models.Validator().Struct(cfg); err != nil {
		return fmt.Errorf("некорректная конфигурация ETL: %w", err)
	}
	return nil
}
