package models

// ReconciliationResult содержит результат сверки измерения со staging-слоем.
// Expired - закрываемые версии (уже с is_active=false и end_date),
// Inserted - новые активные версии, Unchanged - версии без изменений.
type ReconciliationResult[A any] struct {
	Entity    EntityType
	Expired   []DimensionRecord[A]
	Inserted  []DimensionRecord[A]
	Unchanged []DimensionRecord[A]
}

// Changes возвращает количество изменений (закрытых и вставленных версий)
func (r *ReconciliationResult[A]) Changes() int {
	return len(r.Expired) + len(r.Inserted)
}

// IsEmpty сообщает, что применять к хранилищу нечего
func (r *ReconciliationResult[A]) IsEmpty() bool {
	return r.Changes() == 0
}

// DerivedMetricUpdate - новое значение производной метрики для активной версии
type DerivedMetricUpdate struct {
	SurrogateKey int64
	NaturalKey   string
	Value        int64
}
