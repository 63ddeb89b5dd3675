package llm

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func testRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryProvider_Generate(t *testing.T) {
	down := &UnavailableError{Err: errors.New("down")}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "first attempt",
			responses: []MockResponse{{Content: `{"ok":true}`}},
			wantCalls: 1,
		},
		{
			name:      "transient then success",
			responses: []MockResponse{{Err: down}, {Content: `{"ok":true}`}},
			wantCalls: 2,
		},
		{
			name:      "rate limited then success",
			responses: []MockResponse{{Err: &RateLimitError{Err: errors.New("429")}}, {Content: `{"ok":true}`}},
			wantCalls: 2,
		},
		{
			name:      "gives up",
			responses: []MockResponse{{Err: down}, {Err: down}, {Err: down}, {Content: `{"ok":true}`}},
			wantErr:   true,
			wantCalls: 3,
		},
		{
			name:      "quota never retried",
			responses: []MockResponse{{Err: &QuotaError{Err: errors.New("402")}}, {Content: `{"ok":true}`}},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "bad request never retried",
			responses: []MockResponse{{Err: &RequestError{Status: 400, Err: errors.New("400")}}},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name: "invalid output retried once",
			responses: []MockResponse{
				{Err: &InvalidResponseError{Err: errors.New("bad")}},
				{Err: &InvalidResponseError{Err: errors.New("bad")}},
				{Content: `{"ok":true}`},
			},
			wantErr:   true,
			wantCalls: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockProvider(tc.responses...)
			p := WithRetry(mock, testRetryConfig())

			resp, err := p.Generate(context.Background(), Request{Prompt: "hi"})
			if (err != nil) != tc.wantErr {
				t.Fatalf("Generate() err = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && string(resp.Content) != `{"ok":true}` {
				t.Errorf("Generate() content = %s", resp.Content)
			}
			if got := len(mock.Calls()); got != tc.wantCalls {
				t.Errorf("calls = %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestRetryProvider_Generate_canceled(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &UnavailableError{Err: errors.New("down")}}, MockResponse{Content: `{}`})
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() err = %v, want context.Canceled", err)
	}
}

func TestStatusError(t *testing.T) {
	base := errors.New("boom")

	var rl *RateLimitError
	if !errors.As(statusError(429, base), &rl) {
		t.Error("429 should be a RateLimitError")
	}
	var quota *QuotaError
	if !errors.As(statusError(402, base), &quota) {
		t.Error("402 should be a QuotaError")
	}
	var reqErr *RequestError
	if !errors.As(statusError(400, base), &reqErr) || reqErr.Status != 400 {
		t.Error("400 should be a RequestError")
	}
	var unavail *UnavailableError
	if !errors.As(statusError(503, base), &unavail) {
		t.Error("503 should be an UnavailableError")
	}
	if !errors.As(statusError(0, base), &unavail) {
		t.Error("no status should be an UnavailableError")
	}
}
