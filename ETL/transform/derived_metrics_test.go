package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

func TestComputeDerivedMetrics_OnlyChangedValues(t *testing.T) {
	a := activeProduct(1, "1", "Widget", 10)
	a.DerivedMetric = 5
	b := activeProduct(2, "2", "Gadget", 10)
	b.DerivedMetric = 3
	c := activeProduct(3, "3", "Idle", 10)

	updates := ComputeDerivedMetrics([]models.ProductDimension{a, b, c}, map[string]int64{"1": 5, "2": 7})

	require.Len(t, updates, 1)
	assert.Equal(t, models.DerivedMetricUpdate{SurrogateKey: 2, NaturalKey: "2", Value: 7}, updates[0])
}

func TestComputeDerivedMetrics_ResetsWhenFactsGone(t *testing.T) {
	a := activeProduct(1, "1", "Widget", 10)
	a.DerivedMetric = 9

	updates := ComputeDerivedMetrics([]models.ProductDimension{a}, nil)

	require.Len(t, updates, 1)
	assert.Zero(t, updates[0].Value)
}

func TestComputeDerivedMetrics_Idempotent(t *testing.T) {
	records := []models.ProductDimension{activeProduct(1, "1", "Widget", 10)}
	totals := map[string]int64{"1": 12}

	updates := ComputeDerivedMetrics(records, totals)
	require.Len(t, updates, 1)

	records[0].DerivedMetric = updates[0].Value
	assert.Empty(t, ComputeDerivedMetrics(records, totals))
}

func TestComputeDerivedMetrics_SkipsInactive(t *testing.T) {
	r := activeProduct(1, "1", "Widget", 10)
	r.IsActive = false

	assert.Empty(t, ComputeDerivedMetrics([]models.ProductDimension{r}, map[string]int64{"1": 4}))
}
