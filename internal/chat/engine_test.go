package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx32-chat/backend/internal/aggregator"
	"github.com/mx32-chat/backend/internal/composer"
	"github.com/mx32-chat/backend/internal/docstore"
	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/internal/metricsource"
	"github.com/mx32-chat/backend/internal/scope"
	"github.com/mx32-chat/backend/internal/session"
	"github.com/mx32-chat/backend/internal/storage/sqlite"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) ChatCompletion(_ context.Context, _ []llm.Message, _ llm.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type captureRecorder struct {
	records []sqlite.ChatRecord
}

func (c *captureRecorder) InsertChatRecord(_ context.Context, record sqlite.ChatRecord) error {
	c.records = append(c.records, record)
	return nil
}

func seededStore() *docstore.Memory {
	store := docstore.NewMemory()
	store.Add("states", docstore.Document{ID: "st-jal", Fields: map[string]any{
		"states_name":          "jalisco",
		"state_id_replacement": "14",
	}})
	store.Add("parameters", docstore.Document{ID: "p-seg", Fields: map[string]any{
		"name": "seguridad",
	}})
	store.Add("special_text", docstore.Document{ID: "tx-1", Fields: map[string]any{
		"states_r":    "st-jal",
		"parameter_r": "p-seg",
		"added_text":  "Análisis de seguridad para Jalisco.",
	}})
	return store
}

func newTestEngine(provider composer.Provider, recorder Recorder) (*Engine, session.Store) {
	agg := aggregator.New(seededStore(), metricsource.NewFetcher(2*time.Second, 1))
	comp := composer.New(provider, "gpt-oss-120b", llm.Options{Temperature: 0.7, MaxTokens: 2000, TopP: 1.0})
	sessions := session.NewMemoryStore(session.DefaultWindow)
	return NewEngine(agg, comp, sessions, recorder), sessions
}

func userTurn(sessionID, text string, useRAG bool, currentState string) Request {
	return Request{
		SessionID:    sessionID,
		UserID:       "mx32-user",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
		CurrentState: currentState,
		UseRAG:       useRAG,
	}
}

func TestProcessWithStateData(t *testing.T) {
	provider := &fakeProvider{response: "La seguridad en Jalisco muestra niveles estables."}
	engine, sessions := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s1", "¿Cuál es la situación de seguridad en Jalisco?", true, "jalisco"))

	assert.True(t, env.RAGEnabled)
	assert.Equal(t, 0.9, env.Confidence) // pinned sentinel value
	assert.NotEmpty(t, env.Response)
	assert.Contains(t, env.Sources, "Base de datos MX32")
	assert.Equal(t, "s1", env.SessionID)

	history, err := sessions.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
}

func TestProcessForeignCountryRefused(t *testing.T) {
	provider := &fakeProvider{response: "should never be called"}
	engine, sessions := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s2", "¿Cómo está la economía en Estados Unidos?", true, ""))

	assert.Equal(t, 1.0, env.Confidence) // pinned sentinel value
	assert.False(t, env.RAGEnabled)
	assert.Equal(t, scope.ForeignRefusal, env.Response)
	assert.Equal(t, []string{"Sistema de restricciones MX32"}, env.Sources)
	assert.Zero(t, provider.calls)

	// Refusals do not enter conversation memory.
	history, err := sessions.History(context.Background(), "s2")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcessProviderFailureDegrades(t *testing.T) {
	provider := &fakeProvider{err: &llm.ProviderError{StatusCode: 503, Body: "unavailable"}}
	engine, sessions := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s3", "Dame datos de Jalisco", true, "jalisco"))

	assert.Equal(t, 0.0, env.Confidence) // pinned sentinel value
	assert.Equal(t, composer.ErrorResponse, env.Response)
	assert.Empty(t, env.Sources)
	assert.False(t, env.RAGEnabled)

	history, err := sessions.History(context.Background(), "s3")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcessUnknownStateFallsBackToGeneralPath(t *testing.T) {
	provider := &fakeProvider{response: "Respuesta general."}
	engine, _ := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s4", "Dame datos del estado", true, "atlantis"))

	assert.False(t, env.RAGEnabled)
	assert.Equal(t, 0.8, env.Confidence) // pinned sentinel value
	assert.Equal(t, []string{"Base de datos MX32", "Cerebras AI"}, env.Sources)
}

func TestProcessNoTriggerKeywordSkipsAggregation(t *testing.T) {
	provider := &fakeProvider{response: "Oaxaca es conocido por su gastronomía."}
	engine, _ := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s5", "Háblame de Oaxaca", true, ""))

	assert.False(t, env.RAGEnabled)
	assert.Equal(t, 0.8, env.Confidence)
}

func TestProcessRAGDisabledByFlag(t *testing.T) {
	provider := &fakeProvider{response: "Respuesta sin datos."}
	engine, _ := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("s6", "¿Cuál es la situación de seguridad en Jalisco?", false, "jalisco"))

	assert.False(t, env.RAGEnabled)
	assert.Equal(t, 0.8, env.Confidence)
}

func TestProcessGeneratesSessionID(t *testing.T) {
	provider := &fakeProvider{response: "hola"}
	engine, _ := newTestEngine(provider, nil)

	env := engine.Process(context.Background(),
		userTurn("", "Cuéntame sobre Jalisco", true, "jalisco"))

	assert.NotEmpty(t, env.SessionID)
}

func TestProcessRecordsExchange(t *testing.T) {
	provider := &fakeProvider{response: "Jalisco va bien."}
	recorder := &captureRecorder{}
	engine, _ := newTestEngine(provider, recorder)

	engine.Process(context.Background(),
		userTurn("s7", "¿Cómo está Jalisco?", true, "jalisco"))

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, "s7", record.SessionID)
	assert.Equal(t, "mx32-user", record.UserID)
	assert.Equal(t, "¿Cómo está Jalisco?", record.UserMessage)
	assert.Equal(t, "Jalisco va bien.", record.Response)
	assert.True(t, record.RAGEnabled)
}

func TestProcessRecordsRefusal(t *testing.T) {
	recorder := &captureRecorder{}
	engine, _ := newTestEngine(&fakeProvider{}, recorder)

	engine.Process(context.Background(),
		userTurn("s8", "¿Qué pasa en Francia?", true, ""))

	require.Len(t, recorder.records, 1)
	assert.Equal(t, 1.0, recorder.records[0].Confidence)
}

func TestProcessRecorderFailureNonFatal(t *testing.T) {
	provider := &fakeProvider{response: "ok"}
	engine, _ := newTestEngine(provider, failingRecorder{})

	env := engine.Process(context.Background(),
		userTurn("s9", "Datos de Jalisco", true, "jalisco"))

	assert.NotEmpty(t, env.Response)
}

type failingRecorder struct{}

func (failingRecorder) InsertChatRecord(context.Context, sqlite.ChatRecord) error {
	return errors.New("disk full")
}

func TestHistoryAndReset(t *testing.T) {
	provider := &fakeProvider{response: "hola"}
	engine, _ := newTestEngine(provider, nil)
	ctx := context.Background()

	engine.Process(ctx, userTurn("s10", "Cuéntame de Jalisco", true, "jalisco"))

	history, err := engine.History(ctx, "s10")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, engine.Reset(ctx, "s10"))

	history, err = engine.History(ctx, "s10")
	require.NoError(t, err)
	assert.Empty(t, history)
}
