package aggregator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx32-chat/backend/internal/docstore"
	"github.com/mx32-chat/backend/internal/metricsource"
)

func newTestStore(metricURL, brokenURL string) *docstore.Memory {
	store := docstore.NewMemory()

	store.Add("states", docstore.Document{
		ID: "st-jal",
		Fields: map[string]any{
			"states_name":          "jalisco",
			"state_id_replacement": "14",
		},
	})

	store.Add("parameters", docstore.Document{
		ID: "p-seg",
		Fields: map[string]any{
			"name":         "Situación de Seguridad",
			"related_apis": []any{"api-1"},
		},
	})
	store.Add("parameters", docstore.Document{
		ID: "p-eco",
		Fields: map[string]any{
			"name":         "Oportunidades Emergentes",
			"related_apis": []any{"api-2"},
		},
	})
	store.Add("parameters", docstore.Document{
		ID:     "p-inf",
		Fields: map[string]any{"name": "Infraestructura y Conectividad"},
	})

	store.Add("special_text", docstore.Document{
		ID: "t-1",
		Fields: map[string]any{
			"states_r":    "st-jal",
			"parameter_r": "p-seg",
			"added_text":  "La seguridad en Jalisco mejoró en 2024.",
		},
	})

	store.Add("apis", docstore.Document{
		ID: "api-1",
		Fields: map[string]any{
			"apis_name":   "incidencia-delictiva",
			"dynamic_url": metricURL + "?state={state_id}",
		},
	})
	store.Add("apis", docstore.Document{
		ID: "api-2",
		Fields: map[string]any{
			"apis_name":   "indicador-economico",
			"dynamic_url": brokenURL + "?state={state_id}",
		},
	})

	return store
}

func newTestAggregator(t *testing.T) (*Aggregator, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			assert.Equal(t, "14", r.URL.Query().Get("state"))
			w.Write([]byte(`{"valor": 42}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	store := newTestStore(srv.URL+"/metrics", srv.URL+"/broken")
	fetcher := metricsource.NewFetcher(2*time.Second, 1)

	return New(store, fetcher), srv
}

func TestAggregate(t *testing.T) {
	agg, _ := newTestAggregator(t)

	view, err := agg.Aggregate(context.Background(), "Jalisco")
	require.NoError(t, err)

	assert.Equal(t, "st-jal", view.StateID)
	assert.Equal(t, "14", view.APIStateID)
	assert.Len(t, view.Parameters, 3)

	seg := view.Parameters["Situación de Seguridad"]
	assert.Equal(t, "La seguridad en Jalisco mejoró en 2024.", seg.Analysis)
	require.Len(t, seg.Metrics, 1)
	assert.Equal(t, "incidencia-delictiva", seg.Metrics[0].Source)
}

func TestAggregateCaseInsensitive(t *testing.T) {
	agg, _ := newTestAggregator(t)

	upper, err := agg.Aggregate(context.Background(), "JALISCO")
	require.NoError(t, err)
	lower, err := agg.Aggregate(context.Background(), "jalisco")
	require.NoError(t, err)

	assert.Equal(t, upper.StateID, lower.StateID)
	assert.Equal(t, len(upper.Parameters), len(lower.Parameters))
	for name, p := range upper.Parameters {
		assert.Equal(t, p.Analysis, lower.Parameters[name].Analysis)
	}
}

func TestAggregateUnknownState(t *testing.T) {
	agg, _ := newTestAggregator(t)

	view, err := agg.Aggregate(context.Background(), "narnia")
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.Nil(t, view)
}

func TestAggregateMissingAnalysisUsesPlaceholder(t *testing.T) {
	agg, _ := newTestAggregator(t)

	view, err := agg.Aggregate(context.Background(), "jalisco")
	require.NoError(t, err)

	inf := view.Parameters["Infraestructura y Conectividad"]
	assert.Equal(t, PlaceholderAnalysis, inf.Analysis)
}

func TestAggregateFailingSourceIsDropped(t *testing.T) {
	agg, _ := newTestAggregator(t)

	view, err := agg.Aggregate(context.Background(), "jalisco")
	require.NoError(t, err)

	// api-2 always returns 500; its parameter keeps the analysis
	// placeholder and an empty metric list rather than erroring.
	eco := view.Parameters["Oportunidades Emergentes"]
	assert.Empty(t, eco.Metrics)
	assert.Equal(t, PlaceholderAnalysis, eco.Analysis)
}

func TestListStates(t *testing.T) {
	agg, _ := newTestAggregator(t)

	states, err := agg.ListStates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"jalisco"}, states)
}

func TestSummarize(t *testing.T) {
	agg, _ := newTestAggregator(t)

	summary, err := agg.Summarize(context.Background(), "jalisco")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalParameters)
	assert.Equal(t, 1, summary.ParametersWithAPI)
	assert.Contains(t, summary.Parameters, "Situación de Seguridad")
}

func TestSimilarStatesAlwaysEmpty(t *testing.T) {
	agg, _ := newTestAggregator(t)

	result, err := agg.SimilarStates(context.Background(), "jalisco", "seguridad")
	require.NoError(t, err)

	assert.Equal(t, "jalisco", result.Reference)
	assert.Equal(t, "seguridad", result.Parameter)
	// The candidate loop never runs; the similarity list stays empty
	// regardless of how many states the catalog holds.
	assert.Empty(t, result.Similar)
}

func TestSimilarStatesUnknownReference(t *testing.T) {
	agg, _ := newTestAggregator(t)

	_, err := agg.SimilarStates(context.Background(), "atlantis", "seguridad")
	require.ErrorIs(t, err, ErrStateNotFound)
}
