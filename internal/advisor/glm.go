package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"signalbot/internal/domain"
	"signalbot/internal/util"
)

// Compile-time interface check.
var _ Advisor = (*GLMAdvisor)(nil)

const systemPrompt = `You are an equity trading analyst. Analyze the given ` +
	`stock strictly as of the given date, using no information published ` +
	`after it. Reply with a single JSON object: {"recommendation": ` +
	`"BUY"|"SELL"|"HOLD", "confidence": 0-10, "reasons": "..."}.`

// GLMAdvisor calls a GLM-style chat-completions endpoint and parses the
// model reply into a normalized trading signal.
type GLMAdvisor struct {
	baseURL     string
	apiKey      string
	model       string
	client      *http.Client
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// Options tunes a GLMAdvisor beyond the required credentials.
type Options struct {
	Timeout         time.Duration // per-request timeout, default 300s
	MaxAttempts     int           // retry attempts, default 3
	RateLimitPerMin int           // outbound request pacing, default 30
}

// NewGLMAdvisor creates a GLMAdvisor for the given endpoint and model.
func NewGLMAdvisor(baseURL, apiKey, model string, opts Options, log *slog.Logger) *GLMAdvisor {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RateLimitPerMin <= 0 {
		opts.RateLimitPerMin = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &GLMAdvisor{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		client:      &http.Client{Timeout: opts.Timeout},
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		maxAttempts: opts.MaxAttempts,
		log:         log.With("advisor", "glm"),
	}
}

// Name returns "glm".
func (a *GLMAdvisor) Name() string { return "glm" }

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// signalPayload is the JSON object the model is instructed to reply with.
type signalPayload struct {
	Recommendation string `json:"recommendation"`
	Confidence     int    `json:"confidence"`
	Reasons        string `json:"reasons"`
}

// Analyze requests an advisory signal for symbol as of asOf. The date is
// embedded in the prompt so the model analyzes the stock as of that day.
func (a *GLMAdvisor) Analyze(ctx context.Context, symbol string, asOf time.Time) (*domain.Signal, error) {
	date := asOf.Format("2006-01-02")
	userPrompt := fmt.Sprintf("Analyze %s as if today is %s. Should I buy, sell, or hold?", symbol, date)

	reqBody, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var resp chatResponse
	err = util.Retry(ctx, a.maxAttempts, time.Second, func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		// A failed attempt can leave partially decoded fields behind;
		// each attempt starts from a clean response.
		resp = chatResponse{}
		return a.post(ctx, reqBody, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing %s as of %s: %w", symbol, date, err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("analyzing %s as of %s: advisory error: %s", symbol, date, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analyzing %s as of %s: empty advisory response", symbol, date)
	}

	signal, err := parseSignal(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s as of %s: %w", symbol, date, err)
	}
	signal.Symbol = symbol
	signal.AsOf = asOf

	a.log.Debug("signal received", "symbol", symbol, "asOf", date,
		"recommendation", signal.Recommendation, "confidence", signal.Confidence)

	return signal, nil
}

func (a *GLMAdvisor) post(ctx context.Context, body []byte, out *chatResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("advisory endpoint returned %s: %s", resp.Status, truncate(string(data), 200))
	}
	return json.Unmarshal(data, out)
}

// parseSignal extracts the signal JSON object from the model reply. Models
// occasionally wrap the object in prose or a code fence, so parsing starts
// at the first '{' and ends at the last '}'.
func parseSignal(content string) (*domain.Signal, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no signal object in advisory reply: %s", truncate(content, 120))
	}

	var payload signalPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decoding signal object: %w", err)
	}

	return &domain.Signal{
		Recommendation: domain.NormalizeRecommendation(payload.Recommendation),
		Confidence:     domain.ClampConfidence(payload.Confidence),
		Reasons:        payload.Reasons,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
