package models_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

func TestValidateStaged_CustomerEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"", true},
		{"ann@example.com", true},
		{"@", false},
		{"a@", false},
		{"not-an-email", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := models.ValidateStaged(models.EntityCustomer, models.StagedCustomer{
				NaturalKey: "c1",
				Attributes: models.CustomerAttributes{Name: "Ann", Email: tt.email},
			})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "email", ve.Field)
			assert.Equal(t, "c1", ve.NaturalKey)
		})
	}
}

func TestValidateStaged_Product(t *testing.T) {
	tests := []struct {
		name  string
		row   models.StagedProduct
		field string
	}{
		{"blank name", models.StagedProduct{NaturalKey: "1", Attributes: models.ProductAttributes{Name: "  ", Price: decimal.NewFromInt(1)}}, "name"},
		{"negative price", models.StagedProduct{NaturalKey: "1", Attributes: models.ProductAttributes{Name: "Widget", Price: decimal.NewFromInt(-1)}}, "price"},
		{"null price", models.StagedProduct{NaturalKey: "1", Attributes: models.ProductAttributes{Name: "Widget"}, NullColumns: []string{"price"}}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *models.ValidationError
			require.ErrorAs(t, models.ValidateStaged(models.EntityProduct, tt.row), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateStaged_NullOptionalColumnsPass(t *testing.T) {
	row := models.StagedProduct{
		NaturalKey:  "1",
		Attributes:  models.ProductAttributes{Name: "Widget", Price: decimal.Zero},
		NullColumns: []string{"category"},
	}
	assert.NoError(t, models.ValidateStaged(models.EntityProduct, row))
}

func TestValidateRecord_Sale(t *testing.T) {
	sale := models.StagedSale{
		TransactionID:   "t1",
		ProductID:       "1",
		CustomerID:      "c1",
		Quantity:        1,
		UnitPrice:       decimal.NewFromInt(-5),
		TransactionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	var ve *models.ValidationError
	require.ErrorAs(t, models.ValidateRecord(models.EntitySale, "t1", sale), &ve)
	assert.Equal(t, "unit_price", ve.Field)
	assert.Equal(t, models.EntitySale, ve.Entity)

	sale.UnitPrice = decimal.NewFromInt(5)
	assert.NoError(t, models.ValidateRecord(models.EntitySale, "t1", sale))
}
