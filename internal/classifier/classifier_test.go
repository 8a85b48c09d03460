package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

func request(cols ...models.ClassificationColumn) models.ClassificationRequest {
	return models.ClassificationRequest{DatasetID: "ds-1", Columns: cols}
}

func TestHeuristic(t *testing.T) {
	h := NewHeuristic()

	cases := []struct {
		name   string
		column models.ClassificationColumn
		want   models.SemanticType
		method string
	}{
		{"identifier by name", models.ClassificationColumn{Name: "customer_id", Type: "integer"}, models.SemanticIdentifier, "name_analysis"},
		{"personal name", models.ClassificationColumn{Name: "first_name", Type: "text"}, models.SemanticPersonalName, "name_analysis"},
		{"currency by name", models.ClassificationColumn{Name: "unit_price", Type: "float"}, models.SemanticCurrency, "name_analysis"},
		{"email by value", models.ClassificationColumn{Name: "x", Type: "email", SampleValues: []string{"a@example.com"}}, models.SemanticEmail, "value_analysis"},
		{"url by value", models.ClassificationColumn{Name: "x", Type: "url", SampleValues: []string{"https://example.com"}}, models.SemanticURL, "value_analysis"},
		{"dates by value", models.ClassificationColumn{Name: "x", Type: "date", SampleValues: []string{"2024-01-01", "2024-02-01"}}, models.SemanticDateTime, "value_analysis"},
		{"coordinates by value", models.ClassificationColumn{Name: "pickup_lat", Type: "latitude", SampleValues: []string{"40.7", "41.2"}}, models.SemanticCoordinates, "name_analysis"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := h.Classify(context.Background(), request(tc.column))
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tc.column.Name, out[0].ColumnName)
			assert.Equal(t, tc.column.Type, out[0].OriginalType)
			assert.Equal(t, tc.want, out[0].SemanticType)
			assert.Equal(t, tc.method, out[0].Method)
			assert.GreaterOrEqual(t, out[0].Confidence, 0.0)
			assert.LessOrEqual(t, out[0].Confidence, 1.0)
		})
	}

	t.Run("numeric columns are not phones", func(t *testing.T) {
		out, err := h.Classify(context.Background(), request(models.ClassificationColumn{
			Name: "population", Type: "integer", SampleValues: []string{"12345678", "87654321"},
		}))
		require.NoError(t, err)
		assert.NotEqual(t, models.SemanticPhone, out[0].SemanticType)
	})
}

func TestNew(t *testing.T) {
	log := logger.NewNop()

	c, err := New(Config{}, log)
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, c.Name())

	_, err = New(Config{Mode: ModeProcess}, log)
	assert.Error(t, err)

	_, err = New(Config{Mode: ModeHTTP}, log)
	assert.Error(t, err)

	_, err = New(Config{Mode: "grpc"}, log)
	assert.Error(t, err)
}

func TestProcessClassifier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	log := logger.NewNop()
	req := request(models.ClassificationColumn{Name: "email", Type: "email"})

	t.Run("reads the response from stdout", func(t *testing.T) {
		script := `cat >/dev/null; echo '{"dataset_id":"ds-1","classifications":[{"column_name":"email","original_type":"email","semantic_type":"email","confidence":0.5,"method":"value_analysis"}]}'`
		p := NewProcessClassifier("sh", []string{"-c", script}, 5*time.Second, log)

		out, err := p.Classify(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, models.SemanticEmail, out[0].SemanticType)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		p := NewProcessClassifier("sh", []string{"-c", "echo boom >&2; exit 3"}, 5*time.Second, log)

		_, err := p.Classify(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.IsDelegationFailure(err))
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("malformed output", func(t *testing.T) {
		p := NewProcessClassifier("sh", []string{"-c", "echo not-json"}, 5*time.Second, log)

		_, err := p.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
	})

	t.Run("timeout", func(t *testing.T) {
		p := NewProcessClassifier("sh", []string{"-c", "sleep 5"}, 100*time.Millisecond, log)

		start := time.Now()
		_, err := p.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("missing program", func(t *testing.T) {
		p := NewProcessClassifier("/nonexistent/classifier", nil, time.Second, log)

		_, err := p.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
	})
}

func TestRemoteClassifier(t *testing.T) {
	log := logger.NewNop()
	req := request(models.ClassificationColumn{Name: "price", Type: "currency"})

	t.Run("posts the request with a client credentials token", func(t *testing.T) {
		tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer","expires_in":3600}`))
		}))
		defer tokens.Close()

		var got models.ClassificationRequest
		svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(models.ClassificationResponse{
				DatasetID: "ds-1",
				Classifications: []models.ColumnClassification{
					{ColumnName: "price", OriginalType: "currency", SemanticType: models.SemanticCurrency, Confidence: 0.9, Method: "model"},
				},
			})
		}))
		defer svc.Close()

		c := NewRemoteClassifier(Config{
			URL:          svc.URL,
			Timeout:      5 * time.Second,
			ClientID:     "insights",
			ClientSecret: "secret",
			TokenURL:     tokens.URL,
		}, log)

		out, err := c.Classify(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, models.SemanticCurrency, out[0].SemanticType)
		assert.Equal(t, "ds-1", got.DatasetID)
	})

	t.Run("error status", func(t *testing.T) {
		svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer svc.Close()

		c := NewRemoteClassifier(Config{URL: svc.URL, Timeout: time.Second}, log)
		_, err := c.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
	})

	t.Run("wrong dataset", func(t *testing.T) {
		svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"dataset_id":"other","classifications":[]}`))
		}))
		defer svc.Close()

		c := NewRemoteClassifier(Config{URL: svc.URL, Timeout: time.Second}, log)
		_, err := c.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
	})

	t.Run("slow service times out", func(t *testing.T) {
		svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(3 * time.Second):
			}
		}))
		defer svc.Close()

		c := NewRemoteClassifier(Config{URL: svc.URL, Timeout: 100 * time.Millisecond}, log)
		_, err := c.Classify(context.Background(), req)
		assert.True(t, errors.IsDelegationFailure(err))
	})
}
