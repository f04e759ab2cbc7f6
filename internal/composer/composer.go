// Package composer turns an aggregated state view plus the user
// question into a provider prompt and packages the completion into the
// response envelope returned to callers.
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/aggregator"
	"github.com/mx32-chat/backend/internal/intent"
	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/pkg/logger"
)

// Confidence values are pinned per code path, not computed from any
// signal. Changing them is a behavior change for downstream consumers.
const (
	ConfidenceRAG     = 0.9
	ConfidenceNonRAG  = 0.8
	ConfidenceRefusal = 1.0
	ConfidenceError   = 0.0
)

const (
	maxSuggestedActions  = 5
	maxFollowUpQuestions = 3
)

// ErrorResponse is returned verbatim when the completion provider
// fails.
const ErrorResponse = "Lo siento, ocurrió un error al procesar tu consulta. Por favor, inténtalo de nuevo."

// Provider produces a chat completion for a prompt.
type Provider interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

// Envelope is the structured answer returned for every chat request,
// including degraded and refusal paths.
type Envelope struct {
	Response          string   `json:"response"`
	Confidence        float64  `json:"confidence"`
	Sources           []string `json:"sources"`
	SuggestedActions  []string `json:"suggested_actions"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	ModelUsed         string   `json:"model_used"`
	SessionID         string   `json:"session_id"`
	MemoryUsed        bool     `json:"memory_used"`
	RAGEnabled        bool     `json:"rag_enabled"`
	Intent            string   `json:"intent"`
	Timestamp         string   `json:"timestamp"`
}

// Request carries everything the composer needs for one turn.
type Request struct {
	SessionID   string
	UserMessage string
	Intent      intent.Intent
	Entities    []string
	// CurrentState is the state named by the caller's context, empty
	// when none was given.
	CurrentState string
	// StateView is the aggregated record when data lookup succeeded,
	// nil otherwise.
	StateView *aggregator.StateView
	History   []llm.Message
}

// Composer builds prompts and envelopes around a completion provider.
type Composer struct {
	provider Provider
	model    string
	opts     llm.Options
}

// New creates a Composer. The generation parameters come from
// configuration and are applied unchanged to every request.
func New(provider Provider, model string, opts llm.Options) *Composer {
	return &Composer{provider: provider, model: model, opts: opts}
}

// Compose invokes the provider and packages the answer. A nil
// StateView produces the general path. Provider failures never
// propagate: they resolve to a degraded envelope.
func (c *Composer) Compose(ctx context.Context, req Request) Envelope {
	system := c.systemPrompt(req.StateView)

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.UserMessage})

	response, err := c.provider.ChatCompletion(ctx, messages, c.opts)
	if err != nil {
		var provErr *llm.ProviderError
		if errors.As(err, &provErr) {
			logger.Error("Completion provider returned error status",
				zap.Int("status", provErr.StatusCode), zap.Error(err))
		} else {
			logger.Error("Completion provider failed", zap.Error(err))
		}
		return c.Degraded(req.SessionID)
	}

	env := Envelope{
		Response:          response,
		SuggestedActions:  suggestedActions(req.CurrentState, req.Entities),
		FollowUpQuestions: followUpQuestions(req.CurrentState, req.Entities),
		ModelUsed:         c.model,
		SessionID:         req.SessionID,
		MemoryUsed:        true,
		Intent:            string(req.Intent),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}

	if req.StateView != nil {
		env.Confidence = ConfidenceRAG
		env.Sources = []string{"Base de datos MX32", "RAG Analysis", "Cerebras AI"}
		env.RAGEnabled = true
	} else {
		env.Confidence = ConfidenceNonRAG
		env.Sources = []string{"Base de datos MX32", "Cerebras AI"}
		env.RAGEnabled = false
	}
	return env
}

// Refusal builds the envelope for messages rejected by the scope
// guard. The provider is never invoked.
func (c *Composer) Refusal(sessionID, reason string) Envelope {
	return Envelope{
		Response:   reason,
		Confidence: ConfidenceRefusal,
		Sources:    []string{"Sistema de restricciones MX32"},
		SuggestedActions: []string{
			"Ver datos de estados mexicanos",
			"Explorar parámetros disponibles",
			"Consultar información de seguridad",
			"Analizar datos económicos",
		},
		FollowUpQuestions: []string{
			"¿Sobre qué estado de México te gustaría saber?",
			"¿Qué parámetro te interesa analizar?",
			"¿Te gustaría ver una comparación entre estados?",
		},
		ModelUsed:  c.model,
		SessionID:  sessionID,
		MemoryUsed: true,
		RAGEnabled: false,
		Intent:     string(intent.GeneralAnalysis),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Degraded builds the apology envelope used when the provider fails.
func (c *Composer) Degraded(sessionID string) Envelope {
	return Envelope{
		Response:          ErrorResponse,
		Confidence:        ConfidenceError,
		Sources:           []string{},
		SuggestedActions:  []string{},
		FollowUpQuestions: []string{},
		ModelUsed:         c.model,
		SessionID:         sessionID,
		MemoryUsed:        false,
		RAGEnabled:        false,
		Intent:            string(intent.GeneralAnalysis),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
}

func (c *Composer) systemPrompt(view *aggregator.StateView) string {
	if view == nil {
		return "Eres un experto en análisis de datos de México. " +
			"Responde la pregunta del usuario de manera profesional y útil. " +
			"Siempre menciona que solo tienes información sobre los 32 estados de México."
	}

	serialized, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		// Marshaling a StateView cannot realistically fail; degrade to
		// the general prompt rather than aborting the request.
		logger.Warn("Failed to serialize state view",
			zap.String("state", view.Name), zap.Error(err))
		return c.systemPrompt(nil)
	}

	return fmt.Sprintf("Eres un experto en análisis de datos de México con acceso a información actualizada.\n\n"+
		"Datos disponibles para %s:\n%s\n\n"+
		"Responde la pregunta del usuario basándote en estos datos reales y actualizados. "+
		"Siempre menciona que la información proviene de datos actualizados.",
		view.Name, serialized)
}

func suggestedActions(currentState string, entities []string) []string {
	actions := []string{}
	if currentState != "" {
		actions = append(actions,
			fmt.Sprintf("Ver datos completos de %s", currentState),
			fmt.Sprintf("Comparar %s con otros estados", currentState),
		)
	}
	if hasEntity(entities, "seguridad") {
		actions = append(actions,
			"Ver análisis detallado de seguridad",
			"Comparar indicadores de seguridad",
		)
	}
	if hasEntity(entities, "economia") || hasEntity(entities, "economía") {
		actions = append(actions,
			"Analizar indicadores económicos",
			"Ver datos de empleo",
		)
	}
	if len(actions) > maxSuggestedActions {
		actions = actions[:maxSuggestedActions]
	}
	return actions
}

func followUpQuestions(currentState string, entities []string) []string {
	questions := []string{}
	if currentState != "" {
		questions = append(questions,
			fmt.Sprintf("¿Te gustaría comparar %s con otros estados?", currentState),
			fmt.Sprintf("¿Qué otros parámetros te interesan de %s?", currentState),
		)
	}
	if hasEntity(entities, "seguridad") {
		questions = append(questions, "¿Te interesa analizar las tendencias de seguridad?")
	}
	if len(questions) > maxFollowUpQuestions {
		questions = questions[:maxFollowUpQuestions]
	}
	return questions
}

func hasEntity(entities []string, name string) bool {
	for _, e := range entities {
		if e == name {
			return true
		}
	}
	return false
}
