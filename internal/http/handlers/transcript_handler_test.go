package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
)

func TestAppendTranscript_IdempotentReplay(t *testing.T) {
	env := newEnv(t, false)
	conv := seed(t, env, "u-1", "c-1")
	key := map[string]string{middleware.HeaderIdempotencyKey: "act-0001"}

	w := appendLine(t, env, "c-1", "hello", key)
	if w.Code != http.StatusNoContent || w.Header().Get(headerReplayed) != "" {
		t.Fatalf("first append = %d replayed=%q", w.Code, w.Header().Get(headerReplayed))
	}
	w = appendLine(t, env, "c-1", "hello", key)
	if w.Code != http.StatusNoContent || w.Header().Get(headerReplayed) != "true" {
		t.Fatalf("redelivery = %d replayed=%q", w.Code, w.Header().Get(headerReplayed))
	}
	if w := appendLine(t, env, "c-1", "second", nil); w.Code != http.StatusNoContent {
		t.Fatalf("unkeyed append = %d", w.Code)
	}

	w = do(t, env.r, http.MethodGet, "/conversations/"+conv.ID+"/transcript", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	got := decode[ListTranscriptResponse](t, w)
	if got.Pagination.Total != 2 || len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", got)
	}
	if got.Lines[0].Text != "hello" || got.Lines[1].Text != "second" {
		t.Fatalf("lines out of order: %q, %q", got.Lines[0].Text, got.Lines[1].Text)
	}
	if got.Lines[0].From != domain.FromCustomer || got.Lines[0].SentimentScore != domain.SentimentNotComputed {
		t.Fatalf("unexpected line: %+v", got.Lines[0])
	}
}

func TestAppendTranscript_Errors(t *testing.T) {
	env := newEnv(t, false)

	if w := appendLine(t, env, "nope", "hi", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation = %d", w.Code)
	}

	w := do(t, env.r, http.MethodPost, "/transcript", AppendTranscriptRequest{
		By:      domain.By{CustomerConversationID: "c-1"},
		Message: domain.InboundMessage{Text: "hi"},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing from = %d", w.Code)
	}

	w = do(t, env.r, http.MethodPost, "/transcript", AppendTranscriptRequest{
		By:      domain.By{CustomerConversationID: "c-1"},
		Message: domain.InboundMessage{Text: "hi"},
		From:    domain.FromCustomer,
	}, map[string]string{middleware.HeaderIdempotencyKey: "has spaces"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key = %d", w.Code)
	}
}

func TestListTranscript_PagingAndETag(t *testing.T) {
	env := newEnv(t, false)
	conv := seed(t, env, "u-1", "c-1")
	for _, text := range []string{"one", "two", "three"} {
		if w := appendLine(t, env, "c-1", text, nil); w.Code != http.StatusNoContent {
			t.Fatalf("append %q = %d", text, w.Code)
		}
	}
	path := "/conversations/" + conv.ID + "/transcript?page=2&page_size=2"

	w := do(t, env.r, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	got := decode[ListTranscriptResponse](t, w)
	if len(got.Lines) != 1 || got.Lines[0].Text != "three" || got.Pagination.HasNext || got.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected page: %+v", got)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag")
	}
	if w := do(t, env.r, http.MethodGet, path, nil, map[string]string{"If-None-Match": etag}); w.Code != http.StatusNotModified {
		t.Fatalf("conditional = %d, want 304", w.Code)
	}

	appendLine(t, env, "c-1", "four", nil)
	if w := do(t, env.r, http.MethodGet, path, nil, map[string]string{"If-None-Match": etag}); w.Code != http.StatusOK {
		t.Fatalf("stale ETag = %d, want 200", w.Code)
	}
}

func TestListTranscript_BadAndUnknownID(t *testing.T) {
	env := newEnv(t, false)

	if w := do(t, env.r, http.MethodGet, "/conversations/not-a-uuid/transcript", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}
	w := do(t, env.r, http.MethodGet, "/conversations/"+uuid.NewString()+"/transcript", nil, nil)
	if w.Code != http.StatusNotFound || decode[ErrorResponse](t, w).Code != ErrCodeNotFound {
		t.Fatalf("unknown id = %d %s", w.Code, w.Body.String())
	}
}
