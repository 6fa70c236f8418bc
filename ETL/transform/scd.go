package transform

import (
	"sort"
	"strings"
	"time"

	"github.com/binisha8/sales_inventory_etl/ETL/config"
	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

// Descriptor параметризует сверку SCD Type 2 для конкретного измерения
type Descriptor[A any] struct {
	Entity models.EntityType
	// Equal сравнивает все отслеживаемые атрибуты
	Equal func(a, b A) bool
}

// ReconcileOptions содержит параметры одной сверки
type ReconcileOptions struct {
	Now             time.Time
	DuplicatePolicy string
}

// Reconcile сверяет полный снимок staging-слоя с активными версиями измерения.
//
// Результат вычисляется целиком до записи: либо применяется весь результат,
// либо ничего. Повторная сверка с теми же данными дает пустой результат.
// Ключи, отсутствующие во входном снимке, закрываются как логически удаленные,
// поэтому на вход должен подаваться полный снимок, а не дельта.
func Reconcile[A any](d Descriptor[A], incoming []models.StagedEntity[A], current []models.DimensionRecord[A], opts ReconcileOptions) (*models.ReconciliationResult[A], error) {
	now := opts.Now.UTC()

	staged, err := dedupeStaged(d, incoming, opts.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	active := make(map[string]models.DimensionRecord[A], len(current))
	for _, rec := range current {
		if !rec.IsActive {
			return nil, &models.ConsistencyError{Entity: d.Entity, NaturalKey: rec.NaturalKey, Reason: "неактивная версия среди активных"}
		}
		if _, dup := active[rec.NaturalKey]; dup {
			return nil, &models.ConsistencyError{Entity: d.Entity, NaturalKey: rec.NaturalKey, ActiveCount: countActive(current, rec.NaturalKey)}
		}
		active[rec.NaturalKey] = rec
	}

	result := &models.ReconciliationResult[A]{Entity: d.Entity}
	seen := make(map[string]bool, len(staged))

	for _, row := range staged {
		seen[row.NaturalKey] = true

		existing, ok := active[row.NaturalKey]
		if !ok {
			result.Inserted = append(result.Inserted, newVersion(row, 0, now))
			continue
		}

		if d.Equal(existing.Attributes, row.Attributes) {
			result.Unchanged = append(result.Unchanged, existing)
			continue
		}

		result.Expired = append(result.Expired, expire(existing, now))
		result.Inserted = append(result.Inserted, newVersion(row, existing.DerivedMetric, now))
	}

	// Ключи, пропавшие из снимка, закрываются в порядке ключа
	removed := make([]string, 0)
	for key := range active {
		if !seen[key] {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	for _, key := range removed {
		result.Expired = append(result.Expired, expire(active[key], now))
	}

	return result, nil
}

// dedupeStaged проверяет ключи и применяет политику дубликатов.
// Порядок строк сохраняется по первому появлению ключа.
func dedupeStaged[A any](d Descriptor[A], incoming []models.StagedEntity[A], policy string) ([]models.StagedEntity[A], error) {
	index := make(map[string]int, len(incoming))
	out := make([]models.StagedEntity[A], 0, len(incoming))

	for _, row := range incoming {
		row.NaturalKey = strings.TrimSpace(row.NaturalKey)
		if row.NaturalKey == "" {
			return nil, &models.ValidationError{Entity: d.Entity, Field: "natural_key", Reason: "пустой натуральный ключ"}
		}
		if err := models.ValidateStaged(d.Entity, row); err != nil {
			return nil, err
		}

		if i, dup := index[row.NaturalKey]; dup {
			if policy != config.DuplicateLastWins {
				return nil, &models.ValidationError{Entity: d.Entity, NaturalKey: row.NaturalKey, Field: "natural_key", Reason: "дубликат ключа в staging-пакете"}
			}
			out[i] = row
			continue
		}

		index[row.NaturalKey] = len(out)
		out = append(out, row)
	}

	return out, nil
}

func newVersion[A any](row models.StagedEntity[A], derived int64, now time.Time) models.DimensionRecord[A] {
	start := now
	if row.SourceUpdatedAt != nil {
		start = row.SourceUpdatedAt.UTC()
	}
	return models.DimensionRecord[A]{
		NaturalKey:    row.NaturalKey,
		Attributes:    row.Attributes,
		DerivedMetric: derived,
		IsActive:      true,
		StartDate:     start,
		LastUpdated:   now,
	}
}

func expire[A any](rec models.DimensionRecord[A], now time.Time) models.DimensionRecord[A] {
	end := now
	rec.IsActive = false
	rec.EndDate = &end
	rec.LastUpdated = now
	return rec
}

func countActive[A any](records []models.DimensionRecord[A], key string) int {
	n := 0
	for _, rec := range records {
		if rec.NaturalKey == key && rec.IsActive {
			n++
		}
	}
	return n
}
