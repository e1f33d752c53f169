package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalbot/internal/domain"
)

func glmReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("request path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer test-key", got)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestGLMAdvisorAnalyze(t *testing.T) {
	srv := httptest.NewServer(glmReply(t,
		`{"recommendation": "BUY", "confidence": 8, "reasons": "strong earnings momentum"}`))
	defer srv.Close()

	a := NewGLMAdvisor(srv.URL, "test-key", "glm-4", Options{MaxAttempts: 1}, nil)

	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sig, err := a.Analyze(context.Background(), "AAPL", asOf)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if sig.Recommendation != domain.RecommendationBuy {
		t.Errorf("Recommendation = %v, want BUY", sig.Recommendation)
	}
	if sig.Confidence != 8 {
		t.Errorf("Confidence = %d, want 8", sig.Confidence)
	}
	if sig.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", sig.Symbol)
	}
	if !sig.AsOf.Equal(asOf) {
		t.Errorf("AsOf = %v, want %v", sig.AsOf, asOf)
	}
}

func TestGLMAdvisorAnalyzeProseWrappedReply(t *testing.T) {
	srv := httptest.NewServer(glmReply(t,
		"Here is my analysis:\n```json\n{\"recommendation\": \"SELL\", \"confidence\": 6, \"reasons\": \"overbought\"}\n```\n"))
	defer srv.Close()

	a := NewGLMAdvisor(srv.URL, "test-key", "glm-4", Options{MaxAttempts: 1}, nil)

	sig, err := a.Analyze(context.Background(), "TSLA", time.Now())
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if sig.Recommendation != domain.RecommendationSell {
		t.Errorf("Recommendation = %v, want SELL", sig.Recommendation)
	}
}

func TestGLMAdvisorAnalyzeRetryAfterBadReply(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// Decodes the error field, then fails on the choices type.
			// The next attempt must not inherit it.
			fmt.Fprint(w, `{"error": {"message": "overloaded"}, "choices": "bad"}`)
			return
		}
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content":
			"{\"recommendation\": \"BUY\", \"confidence\": 7, \"reasons\": \"recovered\"}"}}]}`)
	}))
	defer srv.Close()

	a := NewGLMAdvisor(srv.URL, "test-key", "glm-4", Options{MaxAttempts: 2}, nil)

	sig, err := a.Analyze(context.Background(), "AAPL", time.Now())
	if err != nil {
		t.Fatalf("Analyze returned error after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("server received %d calls, want 2", calls)
	}
	if sig.Recommendation != domain.RecommendationBuy {
		t.Errorf("Recommendation = %v, want BUY", sig.Recommendation)
	}
}

func TestGLMAdvisorAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewGLMAdvisor(srv.URL, "test-key", "glm-4", Options{MaxAttempts: 1}, nil)

	if _, err := a.Analyze(context.Background(), "AAPL", time.Now()); err == nil {
		t.Fatal("Analyze returned nil error on 502 response")
	}
}

func TestParseSignal(t *testing.T) {
	cases := []struct {
		name           string
		content        string
		wantRec        domain.Recommendation
		wantConfidence int
		wantErr        bool
	}{
		{
			name:           "plain object",
			content:        `{"recommendation": "BUY", "confidence": 7, "reasons": "trend"}`,
			wantRec:        domain.RecommendationBuy,
			wantConfidence: 7,
		},
		{
			name:           "lowercase recommendation",
			content:        `{"recommendation": "sell", "confidence": 4, "reasons": ""}`,
			wantRec:        domain.RecommendationSell,
			wantConfidence: 4,
		},
		{
			name:           "unknown recommendation falls back to hold",
			content:        `{"recommendation": "SHORT", "confidence": 9, "reasons": ""}`,
			wantRec:        domain.RecommendationHold,
			wantConfidence: 9,
		},
		{
			name:           "confidence clamped to range",
			content:        `{"recommendation": "BUY", "confidence": 99, "reasons": ""}`,
			wantRec:        domain.RecommendationBuy,
			wantConfidence: 10,
		},
		{
			name:    "no json object",
			content: "I cannot analyze this stock.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			content: `{"recommendation": BUY}`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig, err := parseSignal(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Fatal("parseSignal returned nil error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSignal returned error: %v", err)
			}
			if sig.Recommendation != tc.wantRec {
				t.Errorf("Recommendation = %v, want %v", sig.Recommendation, tc.wantRec)
			}
			if sig.Confidence != tc.wantConfidence {
				t.Errorf("Confidence = %d, want %d", sig.Confidence, tc.wantConfidence)
			}
		})
	}
}
