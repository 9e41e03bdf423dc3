package observability

import (
	"context"
	"testing"
	"time"
)

type recordingHTTPHooks struct {
	requests  int
	responses int
	errors    int
}

func (r *recordingHTTPHooks) OnRequest(context.Context, string, string, string) { r.requests++ }
func (r *recordingHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {
	r.responses++
}
func (r *recordingHTTPHooks) OnError(context.Context, string, string, string, error) { r.errors++ }

func TestHooksDefaultToNoop(t *testing.T) {
	// Must not panic with defaults.
	ctx := context.Background()
	HTTP().OnRequest(ctx, "GET", "api.github.com", "/users/octocat")
	Cache().OnCacheHit(ctx, "search")
	Search().OnSearchStart(ctx, "jane", 1)
}

func TestSetHTTPHooks(t *testing.T) {
	rec := &recordingHTTPHooks{}
	SetHTTPHooks(rec)
	defer SetHTTPHooks(nil)

	ctx := context.Background()
	HTTP().OnRequest(ctx, "GET", "api.github.com", "/search/users")
	HTTP().OnResponse(ctx, "GET", "api.github.com", "/search/users", 200, time.Millisecond)

	if rec.requests != 1 || rec.responses != 1 {
		t.Errorf("expected 1 request and 1 response, got %d/%d", rec.requests, rec.responses)
	}
}

func TestSetNilRestoresNoop(t *testing.T) {
	SetHTTPHooks(&recordingHTTPHooks{})
	SetHTTPHooks(nil)

	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("expected NoopHTTPHooks after SetHTTPHooks(nil), got %T", HTTP())
	}
}
