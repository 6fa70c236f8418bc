package transform

import (
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// ComputeDerivedMetrics пересчитывает производную метрику (суммарное количество
// по всей истории фактов) для активных версий измерения. Возвращает только
// изменившиеся значения; повторный вызов на том же состоянии ничего не вернет.
func ComputeDerivedMetrics[A any](active []models.DimensionRecord[A], totals map[string]int64) []models.DerivedMetricUpdate {
	var updates []models.DerivedMetricUpdate
	for _, rec := range active {
		if !rec.IsActive {
			continue
		}
		value := totals[rec.NaturalKey]
		if value == rec.DerivedMetric {
			continue
		}
		updates = append(updates, models.DerivedMetricUpdate{
			SurrogateKey: rec.SurrogateKey,
			NaturalKey:   rec.NaturalKey,
			Value:        value,
		})
	}
	return updates
}
