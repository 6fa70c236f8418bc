package transform

import (
	"sort"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
	"github.com/binisha8/sales_inventory_etl/ETL/utils"
)

const dayLayout = "2006-01-02"

// RollupOptions содержит параметры расчета остатков
type RollupOptions struct {
	DefaultBOH int64
	GapPolicy  string
	// OnSkippedSales вызывается для продаж за день, снимок которого уже сохранен
	OnSkippedSales func(productID string, day time.Time, quantity int64)
}

// RollupInput - состояние хранилища, необходимое для расчета остатков
type RollupInput struct {
	// Граница последнего успешного запуска; nil - первый запуск
	Boundary *time.Time
	// Натуральные ключи активных товаров
	ActiveProducts []string
	// Продажи с датой строго после Boundary
	Sales []models.SaleEvent
	// Уже сохраненные снимки остатков, нужные для продолжения цепочки
	Prior []models.InventorySnapshot
}

// AggregateDailySales суммирует продажи по (активный товар, день продажи).
// Учитываются только продажи строго после границы. Результат упорядочен
// по товару и дате.
func AggregateDailySales(boundary *time.Time, activeProducts []string, sales []models.SaleEvent) []models.DailySales {
	active := make(map[string]bool, len(activeProducts))
	for _, p := range activeProducts {
		active[p] = true
	}

	type key struct {
		product string
		day     string
	}
	totals := make(map[key]int64)
	days := make(map[key]time.Time)

	for _, sale := range sales {
		if !active[sale.ProductID] {
			continue
		}
		if boundary != nil && !sale.TransactionDate.After(*boundary) {
			continue
		}
		day := utils.TruncateToDay(sale.TransactionDate)
		k := key{product: sale.ProductID, day: day.Format(dayLayout)}
		totals[k] += sale.Quantity
		days[k] = day
	}

	out := make([]models.DailySales, 0, len(totals))
	for k, qty := range totals {
		out = append(out, models.DailySales{ProductID: k.product, Date: days[k], Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ComputeRollup рассчитывает новые снимки остатков. Функция чистая:
// сохранение результата - забота вызывающего.
//
// BOH(P, D) = EOH(P, D-1), если снимок за предыдущий день есть (в хранилище
// или среди только что рассчитанных), иначе DefaultBOH. EOH = BOH - продано.
// Отрицательный EOH не ограничивается. Уже сохраненный снимок за (P, D) не
// пересчитывается, его EOH продолжает цепочку.
//
// При GapPolicy = literal снимки строятся только для дней с продажами, и после
// последнего дня продаж цепочка останавливается. При GapPolicy = fill
// пропущенные дни заполняются нулевыми продажами от последнего известного
// снимка до последнего дня продаж в пакете.
func ComputeRollup(in RollupInput, opts RollupOptions) []models.InventorySnapshot {
	daily := AggregateDailySales(in.Boundary, in.ActiveProducts, in.Sales)

	chain := newInventoryChain(in.Prior)

	sold := make(map[string]map[string]int64)
	firstSale := make(map[string]time.Time)
	var horizon time.Time
	for _, ds := range daily {
		if sold[ds.ProductID] == nil {
			sold[ds.ProductID] = make(map[string]int64)
			firstSale[ds.ProductID] = ds.Date
		}
		sold[ds.ProductID][ds.Date.Format(dayLayout)] = ds.Quantity
		if ds.Date.After(horizon) {
			horizon = ds.Date
		}
	}

	products := append([]string(nil), in.ActiveProducts...)
	sort.Strings(products)

	var out []models.InventorySnapshot
	for _, product := range products {
		for _, day := range rollupDays(product, opts.GapPolicy, daily, chain, firstSale, horizon) {
			dayKey := day.Format(dayLayout)
			if chain.has(product, dayKey) {
				if qty := sold[product][dayKey]; qty != 0 && opts.OnSkippedSales != nil {
					opts.OnSkippedSales(product, day, qty)
				}
				continue
			}

			boh := opts.DefaultBOH
			if prev, ok := chain.eoh(product, day.AddDate(0, 0, -1).Format(dayLayout)); ok {
				boh = prev
			}
			qty := sold[product][dayKey]

			snap := models.InventorySnapshot{
				ProductID:    product,
				SnapshotDate: day,
				BOH:          boh,
				EOH:          boh - qty,
				QuantitySold: qty,
			}
			chain.add(snap)
			out = append(out, snap)
		}
	}

	return out
}

// rollupDays возвращает дни, для которых товару нужен снимок, по возрастанию
func rollupDays(product, policy string, daily []models.DailySales, chain *inventoryChain, firstSale map[string]time.Time, horizon time.Time) []time.Time {
	if policy != config.GapPolicyFill {
		var days []time.Time
		for _, ds := range daily {
			if ds.ProductID == product {
				days = append(days, ds.Date)
			}
		}
		return days
	}

	if horizon.IsZero() {
		return nil
	}

	var start time.Time
	if latest, ok := chain.latest[product]; ok {
		start = latest.AddDate(0, 0, 1)
	}
	if first, ok := firstSale[product]; ok && (start.IsZero() || first.Before(start)) {
		start = first
	}
	if start.IsZero() {
		// ни истории, ни продаж - цепочку не с чего начинать
		return nil
	}

	var days []time.Time
	for day := start; !day.After(horizon); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// inventoryChain индексирует известные снимки по товару и дню
type inventoryChain struct {
	byDay  map[string]map[string]int64
	latest map[string]time.Time
}

func newInventoryChain(prior []models.InventorySnapshot) *inventoryChain {
	c := &inventoryChain{
		byDay:  make(map[string]map[string]int64),
		latest: make(map[string]time.Time),
	}
	for _, snap := range prior {
		snap.SnapshotDate = utils.TruncateToDay(snap.SnapshotDate)
		c.add(snap)
	}
	return c
}

func (c *inventoryChain) add(snap models.InventorySnapshot) {
	if c.byDay[snap.ProductID] == nil {
		c.byDay[snap.ProductID] = make(map[string]int64)
	}
	c.byDay[snap.ProductID][snap.SnapshotDate.Format(dayLayout)] = snap.EOH
	if latest, ok := c.latest[snap.ProductID]; !ok || snap.SnapshotDate.After(latest) {
		c.latest[snap.ProductID] = snap.SnapshotDate
	}
}

func (c *inventoryChain) has(product, day string) bool {
	_, ok := c.byDay[product][day]
	return ok
}

func (c *inventoryChain) eoh(product, day string) (int64, bool) {
	v, ok := c.byDay[product][day]
	return v, ok
}
