package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) Backoff {
	return Backoff{Attempts: attempts, Base: time.Millisecond, Max: 5 * time.Millisecond}
}

func organic(n int) []map[string]string {
	out := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]string{
			"title":   "Title " + string(rune('A'+i)),
			"snippet": "Snippet " + string(rune('A'+i)),
			"link":    "https://example.com/" + string(rune('a'+i)),
		})
	}
	return out
}

func TestSerper_Search(t *testing.T) {
	var gotKey, gotQuery, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotKey = r.Header.Get("X-API-KEY")
		gotType = r.Header.Get("Content-Type")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body["q"]
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": organic(5)})
	}))
	defer srv.Close()

	s := NewSerper(Config{Endpoint: srv.URL, APIKey: "secret"})
	got := s.Search(context.Background(), "  internship statistics ")

	want := " Title A\nSnippet A\n https://example.com/a\n\n" +
		" Title B\nSnippet B\n https://example.com/b\n\n" +
		" Title C\nSnippet C\n https://example.com/c"
	assert.Equal(t, want, got)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "internship statistics", gotQuery)
}

func TestSerper_NoOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"searchParameters":{"q":"x"}}`))
	}))
	defer srv.Close()

	s := NewSerper(Config{Endpoint: srv.URL, APIKey: "k"})
	assert.Equal(t, "", s.Search(context.Background(), "x"))
}

func TestSerper_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"organic": organic(1)})
	}))
	defer srv.Close()

	s := NewSerper(Config{Endpoint: srv.URL, APIKey: "k"}, WithBackoff(fastRetry(3)))
	got := s.Search(context.Background(), "x")

	assert.Equal(t, " Title A\nSnippet A\n https://example.com/a", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSerper_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSerper(Config{Endpoint: srv.URL, APIKey: "k"}, WithBackoff(fastRetry(3)))

	assert.Equal(t, "", s.Search(context.Background(), "x"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSerper_FailuresYieldEmpty(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		s := NewSerper(Config{Endpoint: srv.URL, APIKey: "k"})
		assert.Equal(t, "", s.Search(context.Background(), "x"))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		s := NewSerper(Config{Endpoint: url, APIKey: "k"}, WithBackoff(fastRetry(2)))
		assert.Equal(t, "", s.Search(context.Background(), "x"))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		s := NewSerper(Config{Endpoint: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond},
			WithBackoff(fastRetry(1)))
		assert.Equal(t, "", s.Search(context.Background(), "x"))
	})
}

func TestSerper_SkipsWithoutKeyOrQuery(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	assert.Equal(t, "", NewSerper(Config{Endpoint: srv.URL}).Search(context.Background(), "x"))
	assert.Equal(t, "", NewSerper(Config{Endpoint: srv.URL, APIKey: "k"}).Search(context.Background(), "   "))
	assert.Zero(t, calls.Load())
}

func TestFormat(t *testing.T) {
	results := []OrganicResult{
		{Title: "Go", Snippet: "A language", Link: "https://go.dev"},
		{Title: "Python", Snippet: "Another", Link: "https://python.org"},
	}

	assert.Equal(t, " Go\nA language\n https://go.dev", Format(results, 1))
	assert.Equal(t, " Go\nA language\n https://go.dev\n\n Python\nAnother\n https://python.org", Format(results, 0))
	assert.Equal(t, "", Format(nil, 3))
}

func TestNewSerper_Defaults(t *testing.T) {
	s := NewSerper(Config{Retries: -1})
	require.NotNil(t, s)
	assert.Equal(t, DefaultEndpoint, s.cfg.Endpoint)
	assert.Equal(t, DefaultMaxResults, s.cfg.MaxResults)
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
	assert.Equal(t, 1, s.retry.Attempts)
}
