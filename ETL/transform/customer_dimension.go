package transform

import (
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// CustomerDescriptor - параметры сверки измерения клиентов
var CustomerDescriptor = Descriptor[models.CustomerAttributes]{
	Entity: models.EntityCustomer,
	Equal: func(a, b models.CustomerAttributes) bool {
		return a == b
	},
}
