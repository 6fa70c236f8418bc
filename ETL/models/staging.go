package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance описывает происхождение строки staging-слоя
type Provenance struct {
	SourceFile string    `json:"source_file"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// StagedEntity представляет одну строку полного снимка сущности в staging-слое.
// Живет только в рамках текущего запуска и никогда не историзируется.
type StagedEntity[A any] struct {
	StagingID       int64      `json:"staging_id"`
	NaturalKey      string     `json:"natural_key"`
	Attributes      A          `json:"attributes"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
	Provenance      Provenance `json:"provenance"`
	// NullColumns - колонки атрибутов, пришедшие из staging как NULL
	NullColumns []string `json:"null_columns,omitempty"`
}

// StagedProduct - строка staging-таблицы товаров
type StagedProduct = StagedEntity[ProductAttributes]

// StagedCustomer - строка staging-таблицы клиентов
type StagedCustomer = StagedEntity[CustomerAttributes]

// StagedSale представляет строку продажи в staging-слое
type StagedSale struct {
	StagingID       int64           `json:"staging_id"`
	TransactionID   string          `json:"transaction_id" validate:"notblank"`
	ProductID       string          `json:"product_id" validate:"notblank"`
	CustomerID      string          `json:"customer_id" validate:"notblank"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	TransactionDate time.Time       `json:"transaction_date" validate:"required"`
	Provenance      Provenance      `json:"provenance"`
}

// StagedData содержит все данные staging-слоя для одного запуска
type StagedData struct {
	Products  []StagedProduct
	Customers []StagedCustomer
	Sales     []StagedSale
}
