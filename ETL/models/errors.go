package models

import (
	"errors"
	"fmt"
)

// ValidationError - некорректная строка staging-слоя (пустой натуральный ключ,
// отсутствующий обязательный атрибут, дубликат ключа в пакете)
type ValidationError struct {
	Entity     EntityType
	NaturalKey string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.NaturalKey != "" {
		return fmt.Sprintf("ошибка валидации %s %q: поле %s: %s", e.Entity, e.NaturalKey, e.Field, e.Reason)
	}
	return fmt.Sprintf("ошибка валидации %s: поле %s: %s", e.Entity, e.Field, e.Reason)
}

// InvalidStateError - нарушение жизненного цикла записи аудита
// (повторное завершение запуска, неизвестный запуск)
type InvalidStateError struct {
	RunID  int64
	Status RunStatus
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("недопустимое состояние запуска %d (%s): %s", e.RunID, e.Status, e.Reason)
	}
	return fmt.Sprintf("недопустимое состояние запуска %d: %s", e.RunID, e.Reason)
}

// StoreError - ошибка чтения или записи хранилища. Не повторяется внутри ядра.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConsistencyError - нарушение инварианта хранилища, например несколько
// активных версий одного натурального ключа. Запуск должен быть остановлен.
type ConsistencyError struct {
	Entity      EntityType
	NaturalKey  string
	ActiveCount int
	Reason      string
}

func (e *ConsistencyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("нарушение целостности %s %q: %s", e.Entity, e.NaturalKey, e.Reason)
	}
	return fmt.Sprintf("нарушение целостности %s %q: активных версий %d", e.Entity, e.NaturalKey, e.ActiveCount)
}

// NewStoreError оборачивает ошибку драйвера; nil остается nil
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsValidationError проверяет, является ли ошибка ошибкой валидации
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidStateError проверяет, является ли ошибка ошибкой состояния запуска
func IsInvalidStateError(err error) bool {
	var ie *InvalidStateError
	return errors.As(err, &ie)
}

// IsStoreError проверяет, является ли ошибка ошибкой хранилища
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsConsistencyError проверяет, является ли ошибка нарушением целостности
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
