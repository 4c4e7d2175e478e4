package completion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/dnaeon/go-vcr.v2/recorder"

	openaiapi "github.com/tjfontaine/tutorai/internal/api/openai"
	"github.com/tjfontaine/tutorai/internal/domain"
	"github.com/tjfontaine/tutorai/internal/testutil"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeProvider serves canned chat completion responses and records requests.
type fakeProvider struct {
	status int
	body   string
	delay  time.Duration
	calls  atomic.Int32
	last   atomic.Pointer[openaiapi.ChatCompletionRequest]
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	var req openaiapi.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		f.last.Store(&req)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, f.body)
}

func newTestClient(t *testing.T, f *fakeProvider, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithLogger(discardLogger)}, opts...)
	return New("hf_test", opts...)
}

func userRequest(text string, maxTokens int) *domain.CompletionRequest {
	return domain.NewCompletionRequest("Qwen/Qwen2.5-72B-Instruct", []domain.ChatMessage{domain.UserMessage(text)}, maxTokens)
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.CompletionOutcome
	}{
		{
			name: "success",
			body: `{"choices":[{"message":{"role":"assistant","content":"Paris"}}]}`,
			want: domain.Success("Paris"),
		},
		{
			name: "no choices",
			body: `{"choices":[]}`,
			want: domain.Empty(),
		},
		{
			name: "empty content",
			body: `{"choices":[{"message":{"role":"assistant","content":""}}]}`,
			want: domain.Empty(),
		},
		{
			name: "null content",
			body: `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
			want: domain.Empty(),
		},
		{
			name:   "authentication failure",
			status: http.StatusUnauthorized,
			body:   `{"error":"Invalid credentials in Authorization header"}`,
			want:   domain.Failure("Invalid credentials in Authorization header"),
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`,
			want:   domain.Failure("Rate limit reached"),
		},
		{
			name: "malformed body",
			body: `{"choices":`,
			want: domain.Failure("failed to unmarshal response: unexpected end of JSON input"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeProvider{status: tt.status, body: tt.body}
			c := newTestClient(t, f)

			got := c.Complete(context.Background(), userRequest("What is the capital of France?", 100))
			if got != tt.want {
				t.Errorf("Complete() = %+v, want %+v", got, tt.want)
			}
			if n := f.calls.Load(); n != 1 {
				t.Errorf("provider calls = %d, want 1", n)
			}
		})
	}
}

func TestClient_Complete_ForwardsTokenBudget(t *testing.T) {
	for _, maxTokens := range []int{50, 500} {
		f := &fakeProvider{body: `{"choices":[{"message":{"content":"ok"}}]}`}
		c := newTestClient(t, f)

		c.Complete(context.Background(), userRequest("hello", maxTokens))

		last := f.last.Load()
		if last == nil {
			t.Fatal("provider saw no request")
		}
		if last.MaxTokens != maxTokens {
			t.Errorf("max_tokens = %d, want %d", last.MaxTokens, maxTokens)
		}
		if len(last.Messages) != 1 || last.Messages[0].Role != "user" || last.Messages[0].Content != "hello" {
			t.Errorf("messages = %+v", last.Messages)
		}
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	f := &fakeProvider{body: `{"choices":[]}`, delay: time.Second}
	c := newTestClient(t, f, WithTimeout(20*time.Millisecond))

	got := c.Complete(context.Background(), userRequest("slow", 100))
	want := domain.Failure("request timed out after 20ms")
	if got != want {
		t.Errorf("Complete() = %+v, want %+v", got, want)
	}
}

func TestClient_Complete_CallerContextEnded(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		wantMsg string
	}{
		{
			name: "parent deadline shorter than client timeout",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 30*time.Millisecond)
			},
			wantMsg: "request deadline passed before the provider responded",
		},
		{
			name: "caller canceled",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				time.AfterFunc(30*time.Millisecond, cancel)
				return ctx, cancel
			},
			wantMsg: "request canceled before the provider responded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeProvider{body: `{"choices":[]}`, delay: 5 * time.Second}
			c := newTestClient(t, f, WithTimeout(time.Minute))

			ctx, cancel := tt.ctx()
			defer cancel()

			got := c.Complete(ctx, userRequest("slow", 100))
			if got != domain.Failure(tt.wantMsg) {
				t.Errorf("Complete() = %+v, want Failure(%q)", got, tt.wantMsg)
			}
		})
	}
}

func TestClient_Complete_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New("hf_test", WithBaseURL(url), WithLogger(discardLogger))
	got := c.Complete(context.Background(), userRequest("hello", 100))
	if got.Kind != domain.OutcomeFailure {
		t.Fatalf("Kind = %q, want failure", got.Kind)
	}
	if got.Message == "" {
		t.Error("expected a descriptive failure message")
	}
}

func TestClient_MissingCredential(t *testing.T) {
	f := &fakeProvider{body: `{"choices":[{"message":{"content":"nope"}}]}`}
	srv := httptest.NewServer(f)
	defer srv.Close()

	c := New("   ", WithBaseURL(srv.URL), WithLogger(discardLogger))

	if err := c.Ready(); err == nil {
		t.Fatal("Ready() = nil, want configuration error")
	}

	got := c.Complete(context.Background(), userRequest("hello", 100))
	if got.Kind != domain.OutcomeFailure || got.Message != domain.ErrMissingCredential.Error() {
		t.Errorf("Complete() = %+v", got)
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestClient_Complete_Replay(t *testing.T) {
	dir := t.TempDir()
	f := &fakeProvider{body: `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":"Paris"}}],"usage":{"prompt_tokens":9,"completion_tokens":1,"total_tokens":10}}`}
	srv := httptest.NewServer(f)

	rec, stop := testutil.NewVCRRecorder(t, dir, "capital", recorder.ModeRecording, http.DefaultTransport)
	c := New("hf_test", WithBaseURL(srv.URL), WithHTTPClient(testutil.VCRHTTPClient(rec)), WithLogger(discardLogger))
	if got := c.Complete(context.Background(), userRequest("What is the capital of France?", 100)); got != domain.Success("Paris") {
		t.Fatalf("recorded Complete() = %+v", got)
	}
	stop()
	srv.Close()

	rec, stop = testutil.NewVCRRecorder(t, dir, "capital", recorder.ModeReplaying, nil)
	defer stop()
	c = New("hf_test", WithBaseURL(srv.URL), WithHTTPClient(testutil.VCRHTTPClient(rec)), WithLogger(discardLogger))

	if got := c.Complete(context.Background(), userRequest("What is the capital of France?", 100)); got != domain.Success("Paris") {
		t.Errorf("replayed Complete() = %+v", got)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
}
