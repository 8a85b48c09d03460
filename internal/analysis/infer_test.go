package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

func TestInfer(t *testing.T) {
	in := NewInferencer(DefaultInferOptions())

	cases := []struct {
		name   string
		column string
		values []string
		want   models.DetectedType
	}{
		{"integers", "a", []string{"1", "2", "3"}, models.TypeInteger},
		{"floats", "score", []string{"1.5", "2.25", "3.0", "4.75"}, models.TypeFloat},
		{"thousands separators", "population", []string{"1,200", "3,400,000", "15"}, models.TypeInteger},
		{"currency symbols", "spend", []string{"$10.00", "$1,250.50", "$3.10"}, models.TypeCurrency},
		{"currency by name", "unit_price", []string{"10", "12.5", "8"}, models.TypeCurrency},
		{"percentages", "growth", []string{"10%", "12.5%", "80%"}, models.TypePercentage},
		{"booleans", "active", []string{"true", "false", "TRUE"}, models.TypeBoolean},
		{"yes no", "subscribed", []string{"yes", "no", "no"}, models.TypeBoolean},
		{"iso dates", "day", []string{"2024-01-01", "2024-01-02", "2024-01-03"}, models.TypeDate},
		{"datetimes", "ts", []string{"2024-01-01 10:00:00", "2024-01-02 11:30:00"}, models.TypeDateTime},
		{"times", "opens", []string{"9:30", "17:45", "08:00"}, models.TypeTime},
		{"emails", "contact", []string{"a@example.com", "b@example.org", "c@test.io"}, models.TypeEmail},
		{"urls", "site", []string{"https://example.com", "http://test.io/path"}, models.TypeURL},
		{"uuids", "ref", []string{"550e8400-e29b-41d4-a716-446655440000", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}, models.TypeUUID},
		{"ip addresses", "host", []string{"10.0.0.1", "192.168.1.20", "::1"}, models.TypeIP},
		{"latitude", "lat", []string{"40.71", "51.5", "-33.86"}, models.TypeLatitude},
		{"longitude", "lng", []string{"-74.0", "-0.12", "151.2"}, models.TypeLongitude},
		{"numeric identifiers", "customer_id", []string{"1001", "1002", "1003", "1004"}, models.TypeIdentifier},
		{"categorical", "region", []string{"north", "south", "north", "east"}, models.TypeCategorical},
		{"missing only", "empty", []string{"", "NA", "null"}, models.TypeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := in.Infer(tc.column, tc.values)
			assert.Equal(t, tc.want, got.Type)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}

	t.Run("date format is recorded", func(t *testing.T) {
		got := in.Infer("day", []string{"2024-01-01", "2024-02-01"})
		assert.Equal(t, "2006-01-02", got.Format)
	})

	t.Run("mixed tokens are not boolean", func(t *testing.T) {
		got := in.Infer("flag", []string{"yes", "false", "no"})
		assert.NotEqual(t, models.TypeBoolean, got.Type)
	})

	t.Run("unique free text is identifier", func(t *testing.T) {
		values := make([]string, 0, 40)
		for i := 0; i < 40; i++ {
			values = append(values, "SKU-"+string(rune('A'+i%26))+string(rune('a'+i/26)))
		}
		got := in.Infer("sku", values)
		assert.Equal(t, models.TypeIdentifier, got.Type)
	})

	t.Run("storage type", func(t *testing.T) {
		assert.Equal(t, models.StorageInt64, in.Infer("a", []string{"1", "2"}).StorageType)
		assert.Equal(t, models.StorageFloat64, in.Infer("a", []string{"1.5", "2"}).StorageType)
		assert.Equal(t, models.StorageString, in.Infer("a", []string{"x", "y"}).StorageType)
	})

	t.Run("sampling bounds inspected values", func(t *testing.T) {
		small := NewInferencer(InferOptions{SampleSize: 10})
		values := make([]string, 1000)
		for i := range values {
			values[i] = "7"
		}
		assert.Len(t, small.sample(values), 10)
	})
}

func TestMissingTokens(t *testing.T) {
	for _, v := range []string{"", " ", "NA", "N/A", "null", "NULL", "NaN", "None", "#N/A"} {
		assert.True(t, IsMissing(v), v)
	}
	for _, v := range []string{"0", "none of these", "n"} {
		assert.False(t, IsMissing(v), v)
	}
}

func TestParseHelpers(t *testing.T) {
	t.Run("currency with parentheses is negative", func(t *testing.T) {
		f, ok := ParseCurrency("($1,200.50)")
		assert.True(t, ok)
		assert.Equal(t, -1200.5, f)
	})

	t.Run("percentage keeps hundred scale", func(t *testing.T) {
		f, ok := ParsePercentage("12.5%")
		assert.True(t, ok)
		assert.Equal(t, 12.5, f)
	})

	t.Run("nan is not a number", func(t *testing.T) {
		_, ok := ParseNumber("NaN")
		assert.False(t, ok)
		_, ok = ParseNumber("Inf")
		assert.False(t, ok)
	})

	t.Run("credit card luhn", func(t *testing.T) {
		assert.True(t, IsCreditCard("4111 1111 1111 1111"))
		assert.False(t, IsCreditCard("4111 1111 1111 1112"))
	})

	t.Run("name tokens", func(t *testing.T) {
		assert.True(t, nameHasToken("user_id", "id"))
		assert.True(t, nameHasToken("userId", "id"))
		assert.False(t, nameHasToken("width", "id"))
		assert.False(t, nameHasToken("latency", "lat"))
	})
}
