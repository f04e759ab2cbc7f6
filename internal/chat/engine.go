// Package chat orchestrates one conversation turn: scope check, intent
// classification, optional state-data aggregation, prompt composition,
// and session bookkeeping.
package chat

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/aggregator"
	"github.com/mx32-chat/backend/internal/composer"
	"github.com/mx32-chat/backend/internal/intent"
	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/internal/metrics"
	"github.com/mx32-chat/backend/internal/scope"
	"github.com/mx32-chat/backend/internal/session"
	"github.com/mx32-chat/backend/internal/storage/sqlite"
	"github.com/mx32-chat/backend/pkg/logger"
)

// defaultState is aggregated when the caller's context names none.
const defaultState = "jalisco"

// ragTriggerKeywords gate the data-lookup path: even with the rag flag
// set, aggregation only runs when the message touches one of these.
var ragTriggerKeywords = []string{
	"estado", "jalisco", "mexico", "análisis", "datos", "parámetro", "rag",
}

// Request is one inbound conversation turn.
type Request struct {
	SessionID    string
	UserID       string
	Messages     []llm.Message
	CurrentState string
	UseRAG       bool
}

// Recorder persists chat exchanges for audit. Implemented by the
// SQLite client; nil disables logging.
type Recorder interface {
	InsertChatRecord(ctx context.Context, record sqlite.ChatRecord) error
}

// Engine wires the pipeline stages together.
type Engine struct {
	aggregator *aggregator.Aggregator
	composer   *composer.Composer
	sessions   session.Store
	recorder   Recorder
}

// NewEngine creates an Engine. recorder may be nil.
func NewEngine(agg *aggregator.Aggregator, comp *composer.Composer, sessions session.Store, recorder Recorder) *Engine {
	return &Engine{
		aggregator: agg,
		composer:   comp,
		sessions:   sessions,
		recorder:   recorder,
	}
}

// Process runs one full turn. It never returns an error: every failure
// path resolves to a well-formed envelope.
func (e *Engine) Process(ctx context.Context, req Request) composer.Envelope {
	start := time.Now()

	userMessage := ""
	if n := len(req.Messages); n > 0 {
		userMessage = req.Messages[n-1].Content
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	check := scope.Check(userMessage)
	if !check.Allowed {
		metrics.ScopeRejections.Inc()
		env := e.composer.Refusal(sessionID, check.Reason)
		e.finish(ctx, req, userMessage, env, "refused", start)
		return env
	}

	detected := intent.Classify(userMessage)
	entities := intent.DetectEntities(userMessage)

	var view *aggregator.StateView
	if req.UseRAG && wantsStateData(userMessage) {
		state := req.CurrentState
		if state == "" {
			state = defaultState
		}

		aggStart := time.Now()
		v, err := e.aggregator.Aggregate(ctx, state)
		metrics.AggregationDuration.WithLabelValues(state).Observe(time.Since(aggStart).Seconds())
		if err != nil {
			// Unknown states and store failures fall back to the
			// general completion path.
			logger.Warn("State aggregation failed",
				zap.String("state", state), zap.Error(err))
		} else {
			view = v
		}
	}

	history, err := e.sessions.History(ctx, sessionID)
	if err != nil {
		logger.Warn("Session history unavailable",
			zap.String("session_id", sessionID), zap.Error(err))
		history = nil
	}

	env := e.composer.Compose(ctx, composer.Request{
		SessionID:    sessionID,
		UserMessage:  userMessage,
		Intent:       detected,
		Entities:     entities,
		CurrentState: req.CurrentState,
		StateView:    view,
		History:      history,
	})

	status := "success"
	if env.Confidence == composer.ConfidenceError {
		status = "degraded"
		metrics.ProviderErrors.Inc()
	} else {
		if err := e.sessions.Append(ctx, sessionID,
			llm.Message{Role: llm.RoleUser, Content: userMessage},
			llm.Message{Role: llm.RoleAssistant, Content: env.Response},
		); err != nil {
			logger.Warn("Failed to update session history",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	e.finish(ctx, req, userMessage, env, status, start)
	return env
}

// History returns the retained messages for a session.
func (e *Engine) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	return e.sessions.History(ctx, sessionID)
}

// Reset discards a session's history.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	return e.sessions.Clear(ctx, sessionID)
}

func (e *Engine) finish(ctx context.Context, req Request, userMessage string, env composer.Envelope, status string, start time.Time) {
	elapsed := time.Since(start)

	metrics.ChatTotal.WithLabelValues(env.Intent, status).Inc()
	metrics.ChatDuration.WithLabelValues(env.Intent).Observe(elapsed.Seconds())
	metrics.ConfidenceScore.WithLabelValues().Observe(env.Confidence)
	metrics.RAGRequests.WithLabelValues(strconv.FormatBool(env.RAGEnabled)).Inc()

	if e.recorder == nil {
		return
	}
	record := sqlite.ChatRecord{
		ID:          uuid.NewString(),
		SessionID:   env.SessionID,
		UserID:      req.UserID,
		UserMessage: userMessage,
		Response:    env.Response,
		Confidence:  env.Confidence,
		Intent:      env.Intent,
		RAGEnabled:  env.RAGEnabled,
		LatencyMS:   elapsed.Milliseconds(),
	}
	if err := e.recorder.InsertChatRecord(ctx, record); err != nil {
		logger.Warn("Failed to record chat exchange",
			zap.String("session_id", env.SessionID), zap.Error(err))
	}
}

func wantsStateData(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range ragTriggerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
