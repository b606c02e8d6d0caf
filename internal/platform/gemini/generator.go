package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/generation"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var defaultPrompt string

// contentGenerator is the part of the genai client the generator calls.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator using the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	prompt     *template.Template
	location   *time.Location
	maxRetries int
	baseDelay  time.Duration
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator backed by a live Gemini client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cfg, err := validateConfig(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	prompt, err := loadPrompt(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q: %v", generation.ErrInvalidConfig, cfg.TimeZone, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg, prompt, loc), nil
}

func newGenerator(
	logger *slog.Logger,
	models contentGenerator,
	cfg config.LLMConfig,
	prompt *template.Template,
	loc *time.Location,
) *Generator {
	return &Generator{
		logger:     logger.With("component", "gemini_generator"),
		models:     models,
		model:      cfg.ModelName,
		prompt:     prompt,
		location:   loc,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
}

// loadPrompt parses the template at path, or the built-in one when path is
// empty.
func loadPrompt(path string) (*template.Template, error) {
	text := defaultPrompt
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, path, err)
		}
		text = string(content)
	}

	tmpl, err := template.New("time_plan").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// GeneratePlan renders the prompt for tasks and asks the model for a plan.
func (g *Generator) GeneratePlan(ctx context.Context, tasks []domain.Task, now time.Time) (string, error) {
	if len(tasks) == 0 {
		return "", generation.ErrNoTasks
	}

	prompt, err := g.createPrompt(tasks, now)
	if err != nil {
		return "", err
	}
	g.logger.DebugContext(ctx, "prompt generated",
		"tasks", len(tasks),
		"prompt_length", len(prompt))

	return g.callWithRetry(ctx, prompt)
}

func (g *Generator) createPrompt(tasks []domain.Task, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := g.prompt.Execute(&buf, generation.NewPromptData(tasks, now, g.location)); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	prompt := buf.String()
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	return prompt, nil
}

// callWithRetry calls the model up to maxRetries+1 times. Transport errors
// are retried after baseDelay * 2^attempt scaled by a jitter in [0.5, 1).
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.4)
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", g.maxRetries+1)

		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err == nil {
			text, perr := extractText(resp)
			if perr != nil {
				g.logger.WarnContext(ctx, "permanent error from Gemini API, not retrying", "error", perr)
				return "", perr
			}
			g.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attempt+1)
			return text, nil
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if attempt >= g.maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, g.maxRetries, err)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt+1,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attempt+1,
				"ctx_err", ctx.Err())
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func (g *Generator) backoff(attempt int) time.Duration {
	backoff := float64(g.baseDelay) * math.Pow(2, float64(attempt))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(backoff * jitter)
}

// extractText returns the text of the first candidate. A blocked or empty
// answer is permanent.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}
