package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gardenshed/seedscout/internal/plant"
)

func newTestClient(timeout time.Duration) *Client {
	return NewClient(Config{
		UserAgent:   "test-agent",
		Timeout:     timeout,
		PerHostRate: 100,
	}, zap.NewNop())
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.UserAgent())
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Write([]byte("<html><body>Brandywine Tomato</body></html>"))
	}))
	defer srv.Close()

	page, err := newTestClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "Brandywine Tomato")
}

func TestFetchChallengeOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><title>Just a moment...</title><div>Checking your browser</div></html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	var blocked *plant.BotBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "127.0.0.1", blocked.Host)

	var status *plant.HTTPStatusError
	assert.False(t, errors.As(err, &status), "challenge must win over the status error")
}

func TestFetchChallengeOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("please wait while we verify your browser"))
	}))
	defer srv.Close()

	_, err := newTestClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	var blocked *plant.BotBlockedError
	require.ErrorAs(t, err, &blocked)
}

func TestFetchHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(5 * time.Second).Fetch(context.Background(), srv.URL)
	var status *plant.HTTPStatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.Status)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	_, err := newTestClient(50 * time.Millisecond).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, plant.ErrTimeout)
}

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"cloudflare interstitial", "<title>Just a Moment...</title>", true},
		{"challenge form", `<form id="cf-challenge">`, true},
		{"ordinary page", "<html><body>Tomato seeds $3.50</body></html>", false},
		{"empty body", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsChallenge([]byte(tt.body)))
		})
	}
}
