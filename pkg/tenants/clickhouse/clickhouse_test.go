package clickhouse

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestBaseType(t *testing.T) {
	cases := map[string]string{
		"String":                           "String",
		"Decimal(18, 4)":                   "Decimal",
		"Nullable(String)":                 "String",
		"LowCardinality(String)":           "String",
		"Nullable(LowCardinality(String))": "String",
		"Nullable(Decimal(10, 2))":         "Decimal",
		"DateTime64(3)":                    "DateTime64",
		"FixedString(16)":                  "FixedString",
	}
	for in, want := range cases {
		assert.Equal(t, want, baseType(in), in)
	}
}

func TestJsonToGoType(t *testing.T) {
	row := gjson.Parse(`{
		"name": "newt",
		"count": 42,
		"price": 19.95,
		"alive": true,
		"big": "170141183460469231731687303715884105727"
	}`)

	t.Run("typed integers", func(t *testing.T) {
		assert.Equal(t, uint8(42), jsonToGoType("UInt8", row.Get("count")))
		assert.Equal(t, uint16(42), jsonToGoType("UInt16", row.Get("count")))
		assert.Equal(t, int32(42), jsonToGoType("Int32", row.Get("count")))
		assert.Equal(t, int64(42), jsonToGoType("Int64", row.Get("count")))
	})

	t.Run("decimal columns use decimal values", func(t *testing.T) {
		got, ok := jsonToGoType("Decimal", row.Get("price")).(decimal.Decimal)
		assert.True(t, ok)
		assert.True(t, got.Equal(decimal.NewFromFloat(19.95)))
	})

	t.Run("floats and bools", func(t *testing.T) {
		assert.Equal(t, float32(19.95), jsonToGoType("Float32", row.Get("price")))
		assert.Equal(t, 19.95, jsonToGoType("Float64", row.Get("price")))
		assert.Equal(t, true, jsonToGoType("Bool", row.Get("alive")))
	})

	t.Run("wide integers parsed from strings", func(t *testing.T) {
		got, ok := jsonToGoType("Int128", row.Get("big")).(*big.Int)
		assert.True(t, ok)
		assert.Equal(t, "170141183460469231731687303715884105727", got.String())
	})

	t.Run("datetime accepts numbers or strings", func(t *testing.T) {
		assert.Equal(t, int64(42), jsonToGoType("DateTime", row.Get("count")))
		assert.Equal(t, "newt", jsonToGoType("DateTime", row.Get("name")))
	})

	t.Run("unknown types fall back to strings", func(t *testing.T) {
		assert.Equal(t, "newt", jsonToGoType("IPv6", row.Get("name")))
	})
}
