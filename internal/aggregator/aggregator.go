// Package aggregator assembles the per-state composite view: the state
// record, the full parameter catalog, stored analysis texts, and the
// payloads of each parameter's external metric sources.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mx32-chat/backend/internal/docstore"
	"github.com/mx32-chat/backend/internal/metricsource"
	"github.com/mx32-chat/backend/pkg/logger"
)

// ErrStateNotFound is the only hard failure: the requested state has no
// catalog entry. Everything else degrades to placeholders or omissions.
var ErrStateNotFound = errors.New("state not found")

// PlaceholderAnalysis substitutes missing analysis texts so every
// parameter appears in the view.
const PlaceholderAnalysis = "No se encontró un texto de análisis para este parámetro."

// Firestore collection names.
const (
	collectionStates     = "states"
	collectionParameters = "parameters"
	collectionTexts      = "special_text"
	collectionAPIs       = "apis"
)

// StateView is the composite record handed to the response composer.
// Immutable once built; discarded after prompt construction.
type StateView struct {
	StateID    string                   `json:"state_id"`
	Name       string                   `json:"state"`
	APIStateID string                   `json:"api_state_id"`
	Parameters map[string]ParameterView `json:"parameters"`
}

// ParameterView is one analysis dimension of a state.
type ParameterView struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Analysis string                `json:"analysis"`
	Metrics  []metricsource.Result `json:"metrics,omitempty"`
}

type Aggregator struct {
	store   docstore.Store
	fetcher *metricsource.Fetcher
}

func New(store docstore.Store, fetcher *metricsource.Fetcher) *Aggregator {
	return &Aggregator{store: store, fetcher: fetcher}
}

// Aggregate resolves a state by name (case-insensitive) and builds its
// full view. Metric source fetches fan out concurrently; a failing
// source only shortens that parameter's metric list.
func (a *Aggregator) Aggregate(ctx context.Context, stateName string) (*StateView, error) {
	start := time.Now()

	stateDocs, err := a.store.QueryByField(ctx, collectionStates, "states_name", strings.ToLower(stateName), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to query state %q: %w", stateName, err)
	}
	if len(stateDocs) == 0 {
		return nil, fmt.Errorf("state %q: %w", stateName, ErrStateNotFound)
	}

	state := stateDocs[0]
	view := &StateView{
		StateID:    state.ID,
		Name:       stateName,
		APIStateID: state.String("state_id_replacement"),
		Parameters: make(map[string]ParameterView),
	}

	paramDocs, err := a.store.All(ctx, collectionParameters)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate parameters: %w", err)
	}

	for _, param := range paramDocs {
		name := param.String("name")
		if name == "" {
			continue
		}

		analysis := a.lookupAnalysis(ctx, state.ID, param.ID)
		metrics := a.fetchMetrics(ctx, view.APIStateID, param)

		view.Parameters[name] = ParameterView{
			ID:       param.ID,
			Name:     name,
			Analysis: analysis,
			Metrics:  metrics,
		}
	}

	logger.Info("State view aggregated",
		zap.String("state", stateName),
		zap.Int("parameters", len(view.Parameters)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return view, nil
}

func (a *Aggregator) lookupAnalysis(ctx context.Context, stateID, paramID string) string {
	texts, err := a.store.QueryByComposite(ctx, collectionTexts, "states_r", stateID, "parameter_r", paramID, 1)
	if err != nil {
		logger.Warn("Analysis text lookup failed",
			zap.String("state_id", stateID),
			zap.String("parameter_id", paramID),
			zap.Error(err),
		)
		return PlaceholderAnalysis
	}
	if len(texts) == 0 {
		return PlaceholderAnalysis
	}

	if text := texts[0].String("added_text"); text != "" {
		return text
	}
	return PlaceholderAnalysis
}

// fetchMetrics resolves each related source document, substitutes the
// state id into its templated URL, and fetches all sources in parallel.
// Failed fetches are dropped; result order is not meaningful.
func (a *Aggregator) fetchMetrics(ctx context.Context, apiStateID string, param docstore.Document) []metricsource.Result {
	sourceIDs := param.Strings("related_apis")
	if len(sourceIDs) == 0 || apiStateID == "" {
		return nil
	}

	var (
		mu      sync.Mutex
		results []metricsource.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, sourceID := range sourceIDs {
		sourceID := sourceID
		g.Go(func() error {
			apiDoc, err := a.store.GetByID(gctx, collectionAPIs, sourceID)
			if err != nil {
				logger.Warn("Metric source document missing",
					zap.String("source_id", sourceID),
					zap.Error(err),
				)
				return nil
			}

			url := strings.ReplaceAll(apiDoc.String("dynamic_url"), "{state_id}", apiStateID)
			if url == "" {
				return nil
			}

			result, err := a.fetcher.Fetch(gctx, apiDoc.String("apis_name"), url)
			if err != nil {
				// Dropped; the fetcher already logged the failure.
				return nil
			}

			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

// ListStates returns the names in the state catalog.
func (a *Aggregator) ListStates(ctx context.Context) ([]string, error) {
	docs, err := a.store.All(ctx, collectionStates)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	var names []string
	for _, doc := range docs {
		if name := doc.String("states_name"); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// SimilarState is one candidate match from a similarity search.
type SimilarState struct {
	State string     `json:"estado"`
	Score float64    `json:"similitud_score"`
	View  *StateView `json:"datos,omitempty"`
}

// SimilarStatesResult carries the outcome of a similarity search
// around a reference state.
type SimilarStatesResult struct {
	Reference string         `json:"estado_referencia"`
	Parameter string         `json:"parametro"`
	Similar   []SimilarState `json:"estados_similares"`
}

// SimilarStates looks for states resembling the reference on one
// parameter. NOTE: the comparison loop below ranges over the result
// slice instead of the candidate list, so no candidate is ever
// evaluated and the result is always empty. The behavior is kept
// as-is pending a product decision on real similarity scoring.
func (a *Aggregator) SimilarStates(ctx context.Context, reference, parameter string) (SimilarStatesResult, error) {
	result := SimilarStatesResult{
		Reference: reference,
		Parameter: parameter,
	}

	if _, err := a.Aggregate(ctx, reference); err != nil {
		return result, err
	}

	names, err := a.ListStates(ctx)
	if err != nil {
		return result, err
	}

	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.EqualFold(name, reference) {
			candidates = append(candidates, name)
		}
	}

	similar := make([]SimilarState, 0, len(candidates))
	for _, name := range similar {
		view, err := a.Aggregate(ctx, name.State)
		if err != nil {
			logger.Warn("Skipping similarity candidate",
				zap.String("state", name.State), zap.Error(err))
			continue
		}
		similar = append(similar, SimilarState{State: name.State, Score: 0.7, View: view})
	}

	result.Similar = similar
	return result, nil
}

// Summary describes parameter availability for one state without
// serializing the full view.
type Summary struct {
	State             string   `json:"state"`
	StateID           string   `json:"state_id"`
	APIStateID        string   `json:"api_state_id"`
	Parameters        []string `json:"parameters"`
	TotalParameters   int      `json:"total_parameters"`
	ParametersWithAPI int      `json:"parameters_with_api_data"`
}

// Summarize aggregates a state and reduces the view to its parameter
// availability counts.
func (a *Aggregator) Summarize(ctx context.Context, stateName string) (*Summary, error) {
	view, err := a.Aggregate(ctx, stateName)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		State:           stateName,
		StateID:         view.StateID,
		APIStateID:      view.APIStateID,
		TotalParameters: len(view.Parameters),
	}
	for name, param := range view.Parameters {
		summary.Parameters = append(summary.Parameters, name)
		if len(param.Metrics) > 0 {
			summary.ParametersWithAPI++
		}
	}

	return summary, nil
}
