package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeModels replays scripted responses in order.
type fakeModels struct {
	mu        sync.Mutex
	responses []*genai.GenerateContentResponse
	errs      []error
	prompts   []string
	models    []string
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	var sb strings.Builder
	for _, c := range contents {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	f.prompts = append(f.prompts, sb.String())
	f.models = append(f.models, model)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "test-key",
		ModelName:         "gemini-2.0-flash",
		MaxRetries:        2,
		RetryDelaySeconds: 1,
		TimeZone:          "UTC",
	}
}

func newTestGenerator(t *testing.T, models contentGenerator) *Generator {
	t.Helper()
	prompt, err := loadPrompt("")
	require.NoError(t, err)

	g := newGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), models, testConfig(), prompt, time.UTC)
	g.baseDelay = time.Millisecond
	return g
}

var planNow = time.Date(2030, time.January, 1, 8, 0, 0, 0, time.UTC)

func planTasks() []domain.Task {
	return []domain.Task{
		{
			Title:    "Essay draft",
			Type:     domain.TaskTypeHomework,
			Priority: domain.PriorityHigh,
			Cost:     3,
			Deadline: time.Date(2030, time.January, 2, 18, 0, 0, 0, time.UTC).UnixMilli(),
		},
		{
			Title:       "Group slides",
			Type:        domain.TaskTypeGroup,
			Priority:    domain.PriorityMedium,
			Cost:        2,
			Deadline:    time.Date(2030, time.January, 3, 9, 0, 0, 0, time.UTC).UnixMilli(),
			Description: "sections 2 and 3",
		},
	}
}

func TestGeneratePlan_Success(t *testing.T) {
	t.Parallel()

	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("  Day 1: Essay draft\n")}}
	g := newTestGenerator(t, models)

	plan, err := g.GeneratePlan(context.Background(), planTasks(), planNow)
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Essay draft", plan)

	require.Equal(t, 1, models.calls())
	assert.Equal(t, "gemini-2.0-flash", models.models[0])

	prompt := models.prompts[0]
	assert.Contains(t, prompt, "It is now 2030-01-01 08:00 UTC.")
	assert.Contains(t, prompt, "1. Essay draft [homework, priority high, cost 3h, due 2030-01-02 18:00 UTC]")
	assert.Contains(t, prompt, "2. Group slides [group, priority medium, cost 2h, due 2030-01-03 09:00 UTC]")
	assert.Contains(t, prompt, "   sections 2 and 3")
	assert.Less(t, strings.Index(prompt, "Essay draft"), strings.Index(prompt, "Group slides"))
}

func TestGeneratePlan_DeadlinesInConfiguredZone(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("ok")}}
	g := newTestGenerator(t, models)
	g.location = tokyo

	_, err = g.GeneratePlan(context.Background(), planTasks()[:1], planNow)
	require.NoError(t, err)
	assert.Contains(t, models.prompts[0], "due 2030-01-03 03:00 JST")
}

func TestGeneratePlan_NoTasks(t *testing.T) {
	t.Parallel()

	models := &fakeModels{}
	g := newTestGenerator(t, models)

	_, err := g.GeneratePlan(context.Background(), nil, planNow)
	assert.ErrorIs(t, err, generation.ErrNoTasks)
	assert.Zero(t, models.calls())
}

func TestGeneratePlan_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	models := &fakeModels{
		errs:      []error{errors.New("503 unavailable"), errors.New("connection reset")},
		responses: []*genai.GenerateContentResponse{nil, nil, textResponse("plan")},
	}
	g := newTestGenerator(t, models)

	plan, err := g.GeneratePlan(context.Background(), planTasks(), planNow)
	require.NoError(t, err)
	assert.Equal(t, "plan", plan)
	assert.Equal(t, 3, models.calls())
}

func TestGeneratePlan_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	fail := errors.New("503 unavailable")
	models := &fakeModels{errs: []error{fail, fail, fail, fail}}
	g := newTestGenerator(t, models)

	_, err := g.GeneratePlan(context.Background(), planTasks(), planNow)
	require.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.False(t, generation.IsPermanent(err))
	assert.Equal(t, 3, models.calls())
}

func TestGeneratePlan_PermanentFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{
			name: "safety block",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			want: generation.ErrContentBlocked,
		},
		{
			name: "no candidates",
			resp: &genai.GenerateContentResponse{},
			want: generation.ErrInvalidResponse,
		},
		{
			name: "blank text",
			resp: textResponse("   "),
			want: generation.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			models := &fakeModels{responses: []*genai.GenerateContentResponse{tt.resp, textResponse("unused")}}
			g := newTestGenerator(t, models)

			_, err := g.GeneratePlan(context.Background(), planTasks(), planNow)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, generation.IsPermanent(err))
			assert.Equal(t, 1, models.calls())
		})
	}
}

func TestGeneratePlan_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	models := &fakeModels{errs: []error{errors.New("503"), errors.New("503"), errors.New("503")}}
	g := newTestGenerator(t, models)
	g.baseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.GeneratePlan(ctx, planTasks(), planNow)
	require.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 1, models.calls())
}

func TestLoadPrompt(t *testing.T) {
	t.Parallel()

	t.Run("override file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "prompt.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{range .Tasks}}{{.Title}};{{end}}"), 0o600))

		tmpl, err := loadPrompt(path)
		require.NoError(t, err)

		var sb strings.Builder
		require.NoError(t, tmpl.Execute(&sb, generation.NewPromptData(planTasks(), planNow, nil)))
		assert.Equal(t, "Essay draft;Group slides;", sb.String())
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := loadPrompt(filepath.Join(t.TempDir(), "absent.tmpl"))
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("bad syntax", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{range .Tasks}"), 0o600))
		_, err := loadPrompt(path)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	_, err := validateConfig(context.Background(), logger, cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg = testConfig()
	cfg.MaxRetries = -1
	cfg.RetryDelaySeconds = 0
	got, err := validateConfig(context.Background(), logger, cfg)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxRetries, got.MaxRetries)
	assert.Equal(t, defaultRetryDelaySeconds, got.RetryDelaySeconds)
}
