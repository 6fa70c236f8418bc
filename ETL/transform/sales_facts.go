package transform

import (
	"strings"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

// BuildSalesFacts преобразует строки продаж staging-слоя в факты.
// Натуральные ключи товара и клиента переносятся как есть; суррогатные ключи
// активных версий проставляются, если такие версии есть. Отсутствие версии
// ошибкой не считается.
func BuildSalesFacts(sales []models.StagedSale, productKeys, customerKeys map[string]int64, loadedAt time.Time) ([]models.SalesFact, error) {
	facts := make([]models.SalesFact, 0, len(sales))

	for _, sale := range sales {
		if err := validateSale(sale); err != nil {
			return nil, err
		}

		fact := models.SalesFact{
			TransactionID:   strings.TrimSpace(sale.TransactionID),
			ProductID:       strings.TrimSpace(sale.ProductID),
			CustomerID:      strings.TrimSpace(sale.CustomerID),
			Quantity:        sale.Quantity,
			UnitPrice:       sale.UnitPrice,
			TotalAmount:     utils.Convert(utils.LineTotal(sale.UnitPrice, sale.Quantity), sale.ExchangeRate),
			TransactionDate: sale.TransactionDate.UTC(),
			LoadedAt:        loadedAt.UTC(),
			SourceFile:      sale.Provenance.SourceFile,
		}
		if key, ok := productKeys[fact.ProductID]; ok {
			fact.ProductKey = &key
		}
		if key, ok := customerKeys[fact.CustomerID]; ok {
			fact.CustomerKey = &key
		}

		facts = append(facts, fact)
	}

	return facts, nil
}

func validateSale(sale models.StagedSale) error {
	return models.ValidateRecord(models.EntitySale, strings.TrimSpace(sale.TransactionID), sale)
}
