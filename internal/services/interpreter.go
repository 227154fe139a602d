package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/Ananth-NQI/tripguide-backend/internal/config"
	"github.com/Ananth-NQI/tripguide-backend/internal/metrics"
	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// Intent is what the interpreter thinks the user wants
type Intent string

const (
	IntentUnknown      Intent = ""
	IntentAnswer       Intent = "answer_question"
	IntentAdjust       Intent = "adjust_profile"
	IntentNewPlan      Intent = "new_plan"
	IntentAddInterests Intent = "add_interests"
	IntentShowMore     Intent = "show_more"
	IntentQuestion     Intent = "question"
	IntentGreeting     Intent = "greeting"
	IntentOther        Intent = "other"
)

var knownIntents = map[Intent]bool{
	IntentAnswer: true, IntentAdjust: true, IntentNewPlan: true, IntentAddInterests: true,
	IntentShowMore: true, IntentQuestion: true, IntentGreeting: true, IntentOther: true,
}

// InterpretRequest is the context given to the interpreter
type InterpretRequest struct {
	FreeText    string
	State       models.ConversationState
	Profile     map[string]string
	Interests   []models.Interest
	City        string
	ActiveField models.ProfileField // pending question, if any
}

// Interpretation extracts at most one {field, value} pair.
// The zero value means "nothing detected".
type Interpretation struct {
	Intent        Intent
	FieldDetected bool
	Field         models.ProfileField
	Value         string
	Reply         string
}

// Interpreter never returns errors: failures read as "no detection"
type Interpreter interface {
	Interpret(ctx context.Context, req InterpretRequest) Interpretation
	Summarize(ctx context.Context, user *models.User, places []models.Place) string
}

// NoopInterpreter is used when no language model is configured
type NoopInterpreter struct{}

func (NoopInterpreter) Interpret(context.Context, InterpretRequest) Interpretation {
	return Interpretation{}
}

func (NoopInterpreter) Summarize(_ context.Context, user *models.User, places []models.Place) string {
	return FallbackSummary(user, places)
}

// FallbackSummary is the plan intro used when the model is unavailable
func FallbackSummary(user *models.User, places []models.Place) string {
	name := strings.TrimSpace(user.Name)
	greeting := "¡Listo!"
	if name != "" {
		greeting = fmt.Sprintf("¡Listo, %s!", name)
	}
	return fmt.Sprintf("%s 🗺️ Armé tu plan en %s con %d lugares elegidos según tus intereses. Te los mando uno por uno 👇",
		greeting, user.City, len(places))
}

// GeminiInterpreter delegates interpretation to a Gemini model
type GeminiInterpreter struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
	maxRetries  int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewGeminiInterpreter(ctx context.Context, cfg config.GeminiConfig, m *metrics.Metrics, logger zerolog.Logger) (*GeminiInterpreter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiInterpreter{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		metrics:     m,
		logger:      logger.With().Str("component", "gemini").Logger(),
	}, nil
}

const interpretInstruction = `Sos el asistente de un bot de WhatsApp que arma planes turísticos.
Analizá el mensaje del usuario y respondé SOLO con un objeto JSON:
{"intencion": "...", "respuesta_detectada": true|false, "campo_perfil": "...", "valor_detectado": "...", "mensaje_respuesta": "..."}
- "intencion": una de answer_question, adjust_profile, new_plan, add_interests, show_more, question, greeting, other.
- Extraé como máximo UN campo de perfil. Si hay una pregunta pendiente y el mensaje puede responderla, usá ese campo aunque el texto también pueda referirse a otro.
- "valor_detectado" debe ser uno de los valores permitidos del campo.
- "mensaje_respuesta": respuesta breve y amable en español rioplatense, o "" si no hace falta.`

const summaryInstruction = `Escribí una introducción breve (máximo 3 oraciones, español rioplatense, con 1 o 2 emojis)
para un plan turístico personalizado. No enumeres los lugares uno por uno; se envían por separado.`

func (g *GeminiInterpreter) Interpret(ctx context.Context, req InterpretRequest) Interpretation {
	prompt := buildInterpretPrompt(req)
	text, err := g.generate(ctx, interpretInstruction, prompt, true)
	if err != nil {
		g.metrics.Interpreter("error")
		g.logger.Warn().Err(err).Str("state", string(req.State)).Msg("Interpretation failed, treating as no detection")
		return Interpretation{}
	}

	result, err := parseInterpretation(text, req.ActiveField, req.FreeText)
	if err != nil {
		g.metrics.Interpreter("malformed")
		g.logger.Warn().Err(err).Str("raw", text).Msg("Malformed interpreter output")
		return Interpretation{}
	}
	g.metrics.Interpreter("ok")
	return result
}

func (g *GeminiInterpreter) Summarize(ctx context.Context, user *models.User, places []models.Place) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ciudad: %s\n", user.City)
	if user.Name != "" {
		fmt.Fprintf(&b, "Nombre del viajero: %s\n", user.Name)
	}
	profile, _ := json.Marshal(user.Profile.Snapshot())
	fmt.Fprintf(&b, "Perfil: %s\nLugares:\n", profile)
	for _, p := range places {
		fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Category)
	}

	text, err := g.generate(ctx, summaryInstruction, b.String(), false)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		g.logger.Warn().Err(err).Msg("Plan summary failed, using fallback")
		return FallbackSummary(user, places)
	}
	return text
}

func (g *GeminiInterpreter) generate(ctx context.Context, instruction, prompt string, asJSON bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		Temperature:       &temperature,
	}
	if asJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			break
		}
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) && attempt < g.maxRetries {
			g.logger.Info().Int("code", apiErr.Code).Int("attempt", attempt+1).Msg("Retrying Gemini call")
			continue
		}
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return resp.Text(), nil
}

func buildInterpretPrompt(req InterpretRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estado de la conversación: %s\n", req.State)
	if req.City != "" {
		fmt.Fprintf(&b, "Ciudad: %s\n", req.City)
	}
	if len(req.Interests) > 0 {
		ids := make([]string, 0, len(req.Interests))
		for _, i := range req.Interests {
			ids = append(ids, string(i))
		}
		fmt.Fprintf(&b, "Intereses: %s\n", strings.Join(ids, ", "))
	}
	profile, _ := json.Marshal(req.Profile)
	fmt.Fprintf(&b, "Perfil actual: %s\n", profile)

	if spec, ok := req.ActiveField.Spec(); ok {
		values := make([]string, 0, len(spec.Options))
		for _, o := range spec.Options {
			values = append(values, fmt.Sprintf("%s (%s)", o.Value, o.Label))
		}
		fmt.Fprintf(&b, "Pregunta pendiente: campo %q, \"%s\". Valores permitidos: %s\n",
			spec.Field, spec.Prompt, strings.Join(values, ", "))
	} else {
		b.WriteString("No hay pregunta pendiente.\n")
	}
	fmt.Fprintf(&b, "Mensaje del usuario: %q\n", req.FreeText)
	return b.String()
}

type rawInterpretation struct {
	Intent        string `json:"intencion"`
	FieldDetected bool   `json:"respuesta_detectada"`
	Field         string `json:"campo_perfil"`
	Value         string `json:"valor_detectado"`
	Reply         string `json:"mensaje_respuesta"`
}

// extractJSON strips markdown fences and keeps the outermost object
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in response")
	}
	return text[start : end+1], nil
}

// parseInterpretation validates model output against the field registry and
// gives the pending question precedence over any other field
func parseInterpretation(text string, active models.ProfileField, freeText string) (Interpretation, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return Interpretation{}, err
	}
	var r rawInterpretation
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Interpretation{}, fmt.Errorf("invalid interpreter JSON: %w", err)
	}

	out := Interpretation{Reply: strings.TrimSpace(r.Reply)}
	if intent := Intent(strings.ToLower(strings.TrimSpace(r.Intent))); knownIntents[intent] {
		out.Intent = intent
	} else {
		out.Intent = IntentOther
	}

	// The pending question wins when the text can answer it
	if activeSpec, ok := active.Spec(); ok {
		if v, ok := activeSpec.Match(freeText); ok {
			out.FieldDetected, out.Field, out.Value = true, active, v
			return out, nil
		}
		if r.FieldDetected {
			if v, err := activeSpec.Canonical(r.Value); err == nil {
				out.FieldDetected, out.Field, out.Value = true, active, v
				return out, nil
			}
		}
	}

	if !r.FieldDetected || r.Field == "" {
		return out, nil
	}
	spec, ok := models.LookupField(r.Field)
	if !ok {
		return out, nil
	}
	v, err := spec.Canonical(r.Value)
	if err != nil {
		return out, nil
	}
	out.FieldDetected, out.Field, out.Value = true, spec.Field, v
	return out, nil
}
