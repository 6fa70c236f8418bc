package utils

import (
	"sync"
	"time"
)

// Clock возвращает текущее время. Все отметки времени ETL берутся из него,
// чтобы тесты могли подставлять детерминированные часы.
type Clock func() time.Time

// SystemClock возвращает текущее время в UTC
func SystemClock() time.Time {
	return time.Now().UTC()
}

// StepClock - детерминированные часы для тестов.
// Каждый вызов Now сдвигает время на шаг.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewStepClock создает часы, начинающиеся с start
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{current: start.UTC(), step: step}
}

// Now возвращает текущее значение и сдвигает часы на шаг
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Set устанавливает текущее время
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t.UTC()
}

// TruncateToDay обрезает время до начала календарного дня в UTC
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
