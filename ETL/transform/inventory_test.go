package transform

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

var dayD = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return dayD.AddDate(0, 0, n)
}

func sale(product string, d time.Time, qty int64) models.SaleEvent {
	return models.SaleEvent{ProductID: product, Quantity: qty, TransactionDate: d.Add(10 * time.Hour)}
}

func literal() RollupOptions {
	return RollupOptions{DefaultBOH: 100, GapPolicy: config.GapPolicyLiteral}
}

func TestComputeRollup_ChainsFromPriorDay(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales:          []models.SaleEvent{sale("1", day(1), 5)},
		Prior:          []models.InventorySnapshot{{ProductID: "1", SnapshotDate: day(0), BOH: 50, EOH: 40}},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 1)
	assert.Equal(t, day(1), out[0].SnapshotDate)
	assert.Equal(t, int64(40), out[0].BOH)
	assert.Equal(t, int64(35), out[0].EOH)
	assert.Equal(t, int64(5), out[0].QuantitySold)
}

func TestComputeRollup_SeedsDefaultForNewProduct(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"2"},
		Sales:          []models.SaleEvent{sale("2", day(0), 20)},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 1)
	assert.Equal(t, int64(100), out[0].BOH)
	assert.Equal(t, int64(80), out[0].EOH)
}

func TestComputeRollup_DefaultAppliesPerProduct(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"a", "b"},
		Sales: []models.SaleEvent{
			sale("a", day(0), 1),
			sale("b", day(3), 2),
		},
		Prior: []models.InventorySnapshot{{ProductID: "a", SnapshotDate: day(-1), BOH: 10, EOH: 7}},
	}

	out := ComputeRollup(in, RollupOptions{DefaultBOH: 250, GapPolicy: config.GapPolicyLiteral})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ProductID)
	assert.Equal(t, int64(7), out[0].BOH)
	assert.Equal(t, "b", out[1].ProductID)
	assert.Equal(t, int64(250), out[1].BOH)
}

func TestComputeRollup_ChainsWithinBatch(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales: []models.SaleEvent{
			sale("1", day(0), 10),
			sale("1", day(0), 5),
			sale("1", day(1), 30),
		},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 2)
	assert.Equal(t, int64(100), out[0].BOH)
	assert.Equal(t, int64(85), out[0].EOH)
	assert.Equal(t, int64(85), out[1].BOH)
	assert.Equal(t, int64(55), out[1].EOH)
}

func TestComputeRollup_BoundaryIsStrict(t *testing.T) {
	boundary := day(1).Add(10 * time.Hour)
	in := RollupInput{
		Boundary:       &boundary,
		ActiveProducts: []string{"1"},
		Sales: []models.SaleEvent{
			sale("1", day(1), 3), // ровно на границе - исключается
			{ProductID: "1", Quantity: 4, TransactionDate: boundary.Add(time.Second)},
		},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 1)
	assert.Equal(t, int64(4), out[0].QuantitySold)
}

func TestComputeRollup_InactiveProductsExcluded(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales: []models.SaleEvent{
			sale("1", day(0), 1),
			sale("retired", day(0), 9),
		},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ProductID)
}

func TestComputeRollup_NegativeEOHPassesThrough(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales:          []models.SaleEvent{sale("1", day(0), 130)},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 1)
	assert.Equal(t, int64(-30), out[0].EOH)
}

func TestComputeRollup_LiteralGapReseedsAndTrailingDaysStall(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales: []models.SaleEvent{
			sale("1", day(0), 10),
			sale("1", day(2), 10), // день 1 без продаж
		},
	}

	out := ComputeRollup(in, literal())

	require.Len(t, out, 2, "no snapshot for the no-sale day")
	assert.Equal(t, day(0), out[0].SnapshotDate)
	assert.Equal(t, day(2), out[1].SnapshotDate)
	assert.Equal(t, int64(100), out[1].BOH, "chain is broken, default is used again")
}

func TestComputeRollup_FillPolicyKeepsChainContinuous(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1", "2"},
		Sales: []models.SaleEvent{
			sale("1", day(0), 10),
			sale("1", day(2), 10),
			sale("2", day(3), 1),
		},
	}

	out := ComputeRollup(in, RollupOptions{DefaultBOH: 100, GapPolicy: config.GapPolicyFill})

	var p1 []models.InventorySnapshot
	for _, s := range out {
		if s.ProductID == "1" {
			p1 = append(p1, s)
		}
	}
	require.Len(t, p1, 4, "days 0..3 for product 1, trailing day 3 filled up to the batch horizon")
	assert.Equal(t, []int64{100, 90, 90, 80}, []int64{p1[0].BOH, p1[1].BOH, p1[2].BOH, p1[3].BOH})
	assert.Equal(t, int64(0), p1[1].QuantitySold)
	assert.Equal(t, int64(80), p1[3].EOH)
}

func TestComputeRollup_FillExtendsProductWithoutNewSales(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1", "2"},
		Sales:          []models.SaleEvent{sale("2", day(2), 1)},
		Prior:          []models.InventorySnapshot{{ProductID: "1", SnapshotDate: day(0), BOH: 60, EOH: 55}},
	}

	out := ComputeRollup(in, RollupOptions{DefaultBOH: 100, GapPolicy: config.GapPolicyFill})

	require.Len(t, out, 3)
	assert.Equal(t, models.InventorySnapshot{ProductID: "1", SnapshotDate: day(1), BOH: 55, EOH: 55}, out[0])
	assert.Equal(t, models.InventorySnapshot{ProductID: "1", SnapshotDate: day(2), BOH: 55, EOH: 55}, out[1])
	assert.Equal(t, "2", out[2].ProductID)
}

func TestComputeRollup_FillWithoutSalesEmitsNothing(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Prior:          []models.InventorySnapshot{{ProductID: "1", SnapshotDate: day(0), BOH: 60, EOH: 55}},
	}

	assert.Empty(t, ComputeRollup(in, RollupOptions{DefaultBOH: 100, GapPolicy: config.GapPolicyFill}))
}

func TestComputeRollup_ExistingSnapshotIsNotOverwritten(t *testing.T) {
	in := RollupInput{
		ActiveProducts: []string{"1"},
		Sales: []models.SaleEvent{
			sale("1", day(0), 99),
			sale("1", day(1), 1),
		},
		Prior: []models.InventorySnapshot{{ProductID: "1", SnapshotDate: day(0), BOH: 100, EOH: 70}},
	}

	type skipped struct {
		product string
		day     time.Time
		qty     int64
	}
	var got []skipped
	opts := literal()
	opts.OnSkippedSales = func(productID string, d time.Time, quantity int64) {
		got = append(got, skipped{productID, d, quantity})
	}

	out := ComputeRollup(in, opts)

	require.Len(t, out, 1)
	assert.Equal(t, day(1), out[0].SnapshotDate)
	assert.Equal(t, int64(70), out[0].BOH)
	assert.Equal(t, []skipped{{"1", day(0), 99}}, got, "sales of the already snapshotted day are reported")
}

func TestAggregateDailySales_GroupsByUTCDay(t *testing.T) {
	late := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 6, 2, 0, 15, 0, 0, time.UTC)

	out := AggregateDailySales(nil, []string{"1"}, []models.SaleEvent{
		{ProductID: "1", Quantity: 2, TransactionDate: late},
		{ProductID: "1", Quantity: 3, TransactionDate: early},
		{ProductID: "1", Quantity: 4, TransactionDate: late.Add(-time.Hour)},
	})

	require.Len(t, out, 2)
	assert.Equal(t, int64(6), out[0].Quantity)
	assert.Equal(t, int64(3), out[1].Quantity)
}

func TestProperty_InventoryChain(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	check := func(policy string) func(qtys []int) bool {
		return func(qtys []int) bool {
			var sales []models.SaleEvent
			for i, q := range qtys {
				if q == 0 {
					continue
				}
				sales = append(sales, sale("p", day(i), int64(q)))
			}

			out := ComputeRollup(RollupInput{ActiveProducts: []string{"p"}, Sales: sales}, RollupOptions{DefaultBOH: 100, GapPolicy: policy})

			byDay := make(map[time.Time]models.InventorySnapshot)
			for i, s := range out {
				if s.EOH != s.BOH-s.QuantitySold {
					return false
				}
				if i == 0 && s.BOH != 100 {
					return false
				}
				byDay[s.SnapshotDate] = s
			}
			for d, s := range byDay {
				if prev, ok := byDay[d.AddDate(0, 0, -1)]; ok && s.BOH != prev.EOH {
					return false
				}
			}
			return true
		}
	}

	properties.Property("literal: BOH(D+1) == EOH(D) whenever both exist", prop.ForAll(
		check(config.GapPolicyLiteral),
		gen.SliceOfN(10, gen.IntRange(0, 20)),
	))
	properties.Property("fill: BOH(D+1) == EOH(D) whenever both exist", prop.ForAll(
		check(config.GapPolicyFill),
		gen.SliceOfN(10, gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}
