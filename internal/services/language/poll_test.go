package language_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scrubber/internal/services"
	"scrubber/internal/services/language"
)

const succeededBody = `{
	"status": "succeeded",
	"tasks": {"items": [{"results": {"conversations": [
		{"id": "call-01", "conversationItems": [
			{"id": "turn_1", "redactedContent": {"text": "Can I have your name?"}},
			{"id": "turn_2", "redactedContent": {"text": "Sure, that is ********."}}
		]}
	]}}]}
}`

func TestAwaitPollsUntilSucceeded(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "secret" {
			t.Fatalf("unexpected subscription key: %q", got)
		}
		polls++
		switch polls {
		case 1:
			fmt.Fprint(w, `{"status": "notStarted"}`)
		case 2:
			fmt.Fprint(w, `{"status": "running"}`)
		default:
			fmt.Fprint(w, succeededBody)
		}
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL, nil)
	job := &language.Job{LocationURL: server.URL + "/jobs/123", State: language.JobPending}
	result, err := client.Await(context.Background(), job)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if job.State != language.JobSucceeded {
		t.Fatalf("unexpected job state: %q", job.State)
	}
	if len(result.Tasks.Items) != 1 {
		t.Fatalf("unexpected task items: %d", len(result.Tasks.Items))
	}
	conversations := result.Tasks.Items[0].Results.Conversations
	if len(conversations) != 1 || conversations[0].ID != "call-01" {
		t.Fatalf("unexpected conversations: %#v", conversations)
	}
	if got := conversations[0].ConversationItems[1].RedactedContent.Text; got != "Sure, that is ********." {
		t.Fatalf("unexpected redacted text: %q", got)
	}
	// Inter-poll waits grow by the backoff factor: 1s then 2s.
	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("unexpected poll waits: %v", *delays)
	}
}

func TestAwaitPropagatesServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "failed", "error": {"code": "InvalidRequest", "message": "document too large"}}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, nil)
	job := &language.Job{LocationURL: server.URL + "/jobs/123"}
	_, err := client.Await(context.Background(), job)
	if !errors.Is(err, services.ErrJobFailed) {
		t.Fatalf("expected job failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "document too large") {
		t.Fatalf("expected service error detail, got %v", err)
	}
	if job.State != language.JobFailed {
		t.Fatalf("unexpected job state: %q", job.State)
	}
}

func TestAwaitToleratesTransientStatuses(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		switch polls {
		case 1:
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, succeededBody)
		}
	}))
	defer server.Close()

	client, delays := newTestClient(t, server.URL, nil)
	job := &language.Job{LocationURL: server.URL + "/jobs/123"}
	if _, err := client.Await(context.Background(), job); err != nil {
		t.Fatalf("Await: %v", err)
	}
	// Retry-After wait stacks before the standard inter-poll wait.
	want := []time.Duration{3 * time.Second, time.Second, 2 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("unexpected waits: %v", *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Fatalf("wait %d: got %v, want %v (all: %v)", i, (*delays)[i], d, *delays)
		}
	}
}

func TestAwaitFatalStatusAborts(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, nil)
	job := &language.Job{LocationURL: server.URL + "/jobs/123"}
	_, err := client.Await(context.Background(), job)
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if polls != 1 {
		t.Fatalf("expected polling to abort immediately, got %d polls", polls)
	}
}

func TestAwaitTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "running"}`)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, func(cfg *language.Config) {
		cfg.PollTimeout = 50 * time.Millisecond
	})
	job := &language.Job{LocationURL: server.URL + "/jobs/123"}
	_, err := client.Await(context.Background(), job)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if job.State != language.JobTimedOut {
		t.Fatalf("unexpected job state: %q", job.State)
	}
}

func TestAwaitToleratesNetworkBlips(t *testing.T) {
	var polls int
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			// Drop the connection so the client sees a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking unsupported")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		fmt.Fprint(w, succeededBody)
	}))
	defer proxy.Close()

	client, _ := newTestClient(t, proxy.URL, nil)
	job := &language.Job{LocationURL: proxy.URL + "/jobs/123"}
	if _, err := client.Await(context.Background(), job); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if polls != 2 {
		t.Fatalf("expected retry after network error, got %d polls", polls)
	}
}

func TestAwaitRejectsEmptyJob(t *testing.T) {
	client, _ := newTestClient(t, "https://example", nil)
	if _, err := client.Await(context.Background(), nil); !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}
