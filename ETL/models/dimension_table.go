package models

// DimensionTable описывает отображение атрибутов измерения на таблицы хранилища.
// Один и тот же дескриптор используется при чтении staging-слоя, чтении
// активных версий и записи новых версий.
type DimensionTable[A any] struct {
	Entity       EntityType
	Table        string // таблица измерения
	StagingTable string // таблица staging-слоя
	KeyColumn    string // колонка натурального ключа (в измерении, staging и таблице фактов)
	MetricColumn string // колонка производной метрики
	Columns      []string
	ColumnTypes  func(d Dialect) []string
	Args         func(a A) []any
	Dest         func(a *A) []any
}

// ProductTable - дескриптор измерения товаров
var ProductTable = DimensionTable[ProductAttributes]{
	Entity:       EntityProduct,
	Table:        "product_dimension",
	StagingTable: "stg_product",
	KeyColumn:    "product_id",
	MetricColumn: "total_quantity_sold",
	Columns:      []string{"name", "category", "price"},
	ColumnTypes: func(d Dialect) []string {
		return []string{d.Text() + " NOT NULL", d.Text(), d.Money() + " NOT NULL"}
	},
	Args: func(a ProductAttributes) []any {
		return []any{a.Name, a.Category, a.Price}
	},
	Dest: func(a *ProductAttributes) []any {
		return []any{&a.Name, &a.Category, &a.Price}
	},
}

// CustomerTable - дескриптор измерения клиентов
var CustomerTable = DimensionTable[CustomerAttributes]{
	Entity:       EntityCustomer,
	Table:        "customer_dimension",
	StagingTable: "stg_customer",
	KeyColumn:    "customer_id",
	MetricColumn: "total_quantity_purchased",
	Columns:      []string{"name", "email", "city", "segment"},
	ColumnTypes: func(d Dialect) []string {
		return []string{d.Text() + " NOT NULL", d.Text(), d.Text(), d.Text()}
	},
	Args: func(a CustomerAttributes) []any {
		return []any{a.Name, a.Email, a.City, a.Segment}
	},
	Dest: func(a *CustomerAttributes) []any {
		return []any{&a.Name, &a.Email, &a.City, &a.Segment}
	},
}
