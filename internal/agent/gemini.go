package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/ledger-assistant/internal/tools"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the slice of genai.Models the adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModel implements Model with the Gemini function-calling API.
type GeminiModel struct {
	models     contentGenerator
	model      string
	maxRetries uint64
	log        zerolog.Logger
}

// NewGeminiModel creates a Gemini API client for apiKey.
func NewGeminiModel(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &CredentialError{Err: errors.New("no API key configured")}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiModel: create genai client: %w", err)
	}
	return newGeminiModel(client.Models, model, log), nil
}

func newGeminiModel(models contentGenerator, model string, log zerolog.Logger) *GeminiModel {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiModel{models: models, model: model, maxRetries: 3, log: log}
}

// GeminiFactory returns a ModelFactory that falls back to defaultKey when
// no key is given.
func GeminiFactory(defaultKey, model string, log zerolog.Logger) ModelFactory {
	return func(ctx context.Context, apiKey string) (Model, error) {
		if apiKey == "" {
			apiKey = defaultKey
		}
		return NewGeminiModel(ctx, apiKey, model, log)
	}
}

// SendTurn implements Model. Server errors are retried with exponential
// backoff; key, permission and quota failures surface as *CredentialError.
func (g *GeminiModel) SendTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	contents := toContents(req.Transcript)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		Tools:             toTools(req.Tools),
		Temperature:       genai.Ptr[float32](0.2),
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 20 * time.Second

	var resp *genai.GenerateContentResponse
	attempt := 0
	op := func() error {
		attempt++
		var err error
		resp, err = g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			return nil
		}
		classified := classifyError(err)
		if errors.Is(classified, errRetryable) {
			g.log.Warn().Err(err).Int("attempt", attempt).Msg("Gemini call failed, retrying")
			return classified
		}
		return backoff.Permanent(classified)
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, g.maxRetries), ctx)); err != nil {
		if errors.Is(err, errRetryable) {
			return TurnResult{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return TurnResult{}, err
	}

	return fromResponse(resp)
}

var errRetryable = errors.New("retryable model error")

// classifyError maps provider errors onto the agent error taxonomy.
func classifyError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == http.StatusUnauthorized,
		apiErr.Code == http.StatusForbidden,
		apiErr.Code == http.StatusTooManyRequests,
		apiErr.Code == http.StatusBadRequest && strings.Contains(msg, "api key"):
		return &CredentialError{Err: apiErr}
	case apiErr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", errRetryable, apiErr)
	}
	return fmt.Errorf("%w: %v", ErrModelUnavailable, apiErr)
}

// toContents converts the transcript into Gemini contents. Assistant messages
// that carry their original *genai.Content are replayed verbatim so that
// model-side state such as thought signatures survives.
func toContents(transcript []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Text}},
			})
		case RoleAssistant:
			if native, ok := m.Native.(*genai.Content); ok && native != nil {
				contents = append(contents, native)
				continue
			}
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, &genai.Part{Text: m.Text})
			}
			for _, c := range m.Calls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: c.ID, Name: c.Name, Args: c.Args}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case RoleTool:
			parts := make([]*genai.Part, 0, len(m.Results))
			for _, r := range m.Results {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.ID,
					Name:     r.Name,
					Response: r.Payload(),
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
		}
	}
	return contents
}

// toTools declares the tool contract as Gemini function declarations.
func toTools(defs []tools.Definition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		props := make(map[string]*genai.Schema, len(d.Params))
		for _, p := range d.Params {
			s := &genai.Schema{Description: p.Description, Enum: p.Enum, Format: p.Format}
			switch p.Type {
			case tools.TypeNumber:
				s.Type = genai.TypeNumber
			default:
				s.Type = genai.TypeString
			}
			props[p.Name] = s
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   d.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// fromResponse extracts text and function calls from the first candidate.
func fromResponse(resp *genai.GenerateContentResponse) (TurnResult, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return TurnResult{}, fmt.Errorf("%w: empty response", ErrModelUnavailable)
	}
	content := resp.Candidates[0].Content
	if content.Role == "" {
		content.Role = genai.RoleModel
	}

	var (
		text  strings.Builder
		calls []tools.Call
	)
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			calls = append(calls, tools.Call{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}

	return TurnResult{Text: text.String(), Calls: calls, Native: content}, nil
}
