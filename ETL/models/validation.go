package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Поля в ошибках называются по json-тегу, он совпадает с именем колонки
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch d := field.Interface().(type) {
		case decimal.Decimal:
			f, _ := d.Float64()
			return f
		case decimal.NullDecimal:
			if !d.Valid {
				return nil
			}
			f, _ := d.Decimal.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{}, decimal.NullDecimal{})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// notnull проверяется по NullColumns строки staging, для значения правило всегда выполнено
	if err := v.RegisterValidation("notnull", func(validator.FieldLevel) bool { return true }); err != nil {
		panic(err)
	}
	return v
}

// Validator возвращает общий экземпляр валидатора
func Validator() *validator.Validate {
	return validate
}

// ValidateRecord проверяет запись по тегам validate и превращает первое
// нарушение в ValidationError
func ValidateRecord(entity EntityType, naturalKey string, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("ошибка валидации %s %q: %w", entity, naturalKey, err)
	}

	fe := fieldErrs[0]
	return &ValidationError{Entity: entity, NaturalKey: naturalKey, Field: fe.Field(), Reason: violation(fe)}
}

// ValidateStaged проверяет строку staging-слоя: атрибуты по тегам и
// NULL в колонках обязательных атрибутов
func ValidateStaged[A any](entity EntityType, row StagedEntity[A]) error {
	if len(row.NullColumns) > 0 {
		t := reflect.TypeOf(row.Attributes)
		for _, column := range row.NullColumns {
			if requiredColumn(t, column) {
				return &ValidationError{Entity: entity, NaturalKey: row.NaturalKey, Field: column, Reason: "обязательный атрибут не заполнен (NULL)"}
			}
		}
	}
	return ValidateRecord(entity, row.NaturalKey, row.Attributes)
}

func requiredColumn(t reflect.Type, column string) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name != column {
			continue
		}
		for _, rule := range strings.Split(fld.Tag.Get("validate"), ",") {
			if rule == "required" || rule == "notblank" || rule == "notnull" {
				return true
			}
		}
		return false
	}
	return false
}

func violation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "обязательный атрибут не заполнен"
	case "email":
		return "некорректный адрес"
	case "gte":
		return "значение меньше " + fe.Param()
	default:
		return "нарушено правило " + fe.Tag()
	}
}
