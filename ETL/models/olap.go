package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType определяет тип измерения
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityCustomer EntityType = "customer"
	EntitySale     EntityType = "sale"
)

// ProductAttributes - отслеживаемые атрибуты товара
type ProductAttributes struct {
	Name     string          `json:"name" validate:"notblank"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price" validate:"notnull,gte=0"`
}

// CustomerAttributes - отслеживаемые атрибуты клиента
type CustomerAttributes struct {
	Name    string `json:"name" validate:"notblank"`
	Email   string `json:"email" validate:"omitempty,email"`
	City    string `json:"city"`
	Segment string `json:"segment"`
}

// DimensionRecord представляет версию записи измерения (SCD Type 2).
// Для одного натурального ключа активной может быть не более одной версии,
// неактивные версии являются неизменяемой историей.
type DimensionRecord[A any] struct {
	SurrogateKey  int64      `json:"surrogate_key"`
	NaturalKey    string     `json:"natural_key"`
	Attributes    A          `json:"attributes"`
	DerivedMetric int64      `json:"derived_metric"` // суммарное количество проданных/купленных единиц
	IsActive      bool       `json:"is_active"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	LastUpdated   time.Time  `json:"last_updated"`
}

// ProductDimension - версия записи измерения товаров
type ProductDimension = DimensionRecord[ProductAttributes]

// CustomerDimension - версия записи измерения клиентов
type CustomerDimension = DimensionRecord[CustomerAttributes]

// SalesFact представляет факт продажи. Только добавляется, никогда не обновляется.
type SalesFact struct {
	ID              int64           `json:"id"`
	TransactionID   string          `json:"transaction_id"`
	ProductID       string          `json:"product_id"`
	CustomerID      string          `json:"customer_id"`
	ProductKey      *int64          `json:"product_key,omitempty"`  // активная версия товара на момент загрузки
	CustomerKey     *int64          `json:"customer_key,omitempty"` // активная версия клиента на момент загрузки
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	LoadedAt        time.Time       `json:"loaded_at"`
	SourceFile      string          `json:"source_file"`
}

// InventorySnapshot - остатки товара на дату.
// EOH(date) = BOH(date) - продано(date), BOH(date) = EOH(date - 1 день) либо значение по умолчанию.
type InventorySnapshot struct {
	ProductID    string    `json:"product_id"`
	SnapshotDate time.Time `json:"snapshot_date"`
	BOH          int64     `json:"boh"`
	EOH          int64     `json:"eoh"`
	QuantitySold int64     `json:"quantity_sold"`
}

// SaleEvent - минимальная проекция факта продажи для расчета остатков
type SaleEvent struct {
	ProductID       string
	Quantity        int64
	TransactionDate time.Time
}

// DailySales - агрегат продаж товара за календарный день
type DailySales struct {
	ProductID string
	Date      time.Time
	Quantity  int64
}

// DateLayout - формат календарной даты снимка остатков в хранилище
const DateLayout = "2006-01-02"
