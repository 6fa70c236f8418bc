package models

import "fmt"

// Dialect определяет различия DDL между поддерживаемыми СУБД хранилища.
// Запросы DML используют только переносимый SQL с плейсхолдерами "?".
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite3"
)

// ParseDialect возвращает диалект по имени драйвера
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectMySQL, DialectSQLite:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("неподдерживаемый драйвер хранилища: %q", driver)
	}
}

// PrimaryKey возвращает определение автоинкрементного первичного ключа
func (d Dialect) PrimaryKey() string {
	if d == DialectSQLite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGINT AUTO_INCREMENT PRIMARY KEY"
}

// Timestamp возвращает тип колонки для отметок времени
func (d Dialect) Timestamp() string {
	if d == DialectSQLite {
		return "DATETIME"
	}
	return "DATETIME(6)"
}

// Money возвращает тип колонки для денежных сумм
func (d Dialect) Money() string {
	if d == DialectSQLite {
		// NUMERIC-аффинити в SQLite теряет масштаб, храним строкой
		return "TEXT"
	}
	return "DECIMAL(18,4)"
}

// Key возвращает тип колонки для натуральных ключей
func (d Dialect) Key() string {
	if d == DialectSQLite {
		return "TEXT"
	}
	return "VARCHAR(64)"
}

// Text возвращает тип колонки для строковых атрибутов
func (d Dialect) Text() string {
	if d == DialectSQLite {
		return "TEXT"
	}
	return "VARCHAR(255)"
}
