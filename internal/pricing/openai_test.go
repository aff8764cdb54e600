package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentable/internal/model"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func reply(content string) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		body, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(string(body))), Header: http.Header{}}, nil
	}
}

func newOracle(t *testing.T, rt roundTripFunc) *OpenAIOracle {
	t.Helper()
	o, err := NewOpenAIOracle(Options{APIKey: "dummy", HTTPClient: &http.Client{Transport: rt}})
	require.NoError(t, err)
	return o
}

func TestNewOpenAIOracleRequiresKey(t *testing.T) {
	_, err := NewOpenAIOracle(Options{})
	assert.Error(t, err)
}

func TestEstimatePrice(t *testing.T) {
	var gotAuth, gotPath string
	o := newOracle(t, func(r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		return reply("```json\n{\"suggestedPrice\": 32.5, \"minPrice\": 20, \"maxPrice\": 40, \"confidence\": \"high\", \"reasoning\": \"Popular tool\", \"co2SavedKg\": 4.25}\n```")(r)
	})

	est, err := o.EstimatePrice(context.Background(), model.ItemDescriptor{Title: "Cordless drill", Category: "tools"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer dummy", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "32.5", est.SuggestedPrice.String())
	assert.Equal(t, "20", est.MinPrice.String())
	assert.Equal(t, "high", est.Confidence)
	assert.Equal(t, "4.25", est.CO2SavedKg.String())
	assert.True(t, est.Estimated)
}

func TestEstimatePriceErrors(t *testing.T) {
	o := newOracle(t, func(*http.Request) (*http.Response, error) { return nil, errors.New("boom") })
	_, err := o.EstimatePrice(context.Background(), model.ItemDescriptor{Title: "x"})
	assert.Error(t, err)

	o = newOracle(t, reply(`{"suggestedPrice": 0}`))
	_, err = o.EstimatePrice(context.Background(), model.ItemDescriptor{Title: "x"})
	assert.ErrorIs(t, err, ErrNoAnswer)

	o = newOracle(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})
	_, err = o.EstimatePrice(context.Background(), model.ItemDescriptor{Title: "x"})
	assert.Error(t, err)
}

func TestPickWeird(t *testing.T) {
	o := newOracle(t, reply(`Sure! {"name": "Fog machine", "description": "Instant mystery", "pricePerDay": 18, "emoji": "🌫️", "weirdScore": 14, "funFact": "Glycol based"}`))
	pick, err := o.PickWeird(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fog machine", pick.Name)
	assert.Equal(t, 10, pick.WeirdScore)
	assert.Equal(t, "18", pick.PricePerDay.String())
}
