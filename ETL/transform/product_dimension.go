package transform

import (
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// ProductDescriptor - параметры сверки измерения товаров
var ProductDescriptor = Descriptor[models.ProductAttributes]{
	Entity: models.EntityProduct,
	Equal: func(a, b models.ProductAttributes) bool {
		return a.Name == b.Name &&
			a.Category == b.Category &&
			a.Price.Equal(b.Price)
	},
}
