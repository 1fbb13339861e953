package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise/spendwise/internal/token"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, []any{})
	}))
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore("T1"))
	_, err := client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "Bearer T1", gotAuth)
}

func TestClient_NoTokenSendsUnauthenticated(t *testing.T) {
	var sawAuthHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuthHeader = r.Header["Authorization"]
		writeJSON(t, w, []any{})
	}))
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore(""))
	_, err := client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})
	require.NoError(t, err)
	assert.False(t, sawAuthHeader)
}

func TestClient_RefreshesAndReplaysOnUnauthorized(t *testing.T) {
	var refreshAuth string
	var refreshBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, []map[string]any{{"id": 1, "name": "Lunch", "amount": 12.5}})
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		refreshAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&refreshBody))
		writeJSON(t, w, map[string]string{"access_token": "T2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := token.NewMemoryStore("T1")
	client := NewClient(server.URL, tokens)

	expenses, err := client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Lunch", expenses[0].Name)

	// The stale token travels as both the refresh credential and the bearer
	// header, and the new token lands in the store.
	assert.Equal(t, "Bearer T1", refreshAuth)
	assert.Equal(t, map[string]string{"refresh_token": "T1"}, refreshBody)
	assert.Equal(t, "T2", tokens.Get())
}

func TestClient_SingleFlightRefresh(t *testing.T) {
	const concurrent = 3

	var (
		mu           sync.Mutex
		replayAuths  []string
		unauthorized int32
		refreshCalls int32
	)
	allFailed := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			if atomic.AddInt32(&unauthorized, 1) == concurrent {
				close(allFailed)
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		replayAuths = append(replayAuths, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(t, w, []map[string]any{{"id": 1}})
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		// Hold the refresh until every request has failed auth once, so all
		// of them contend for the same in-flight refresh.
		<-allFailed
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(t, w, map[string]string{"access_token": "T2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore("T1"))

	var wg sync.WaitGroup
	errs := make([]error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})
		}(i)
	}
	wg.Wait()

	// Exactly one refresh, every request resolved, every replay carried the
	// new token.
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	require.Len(t, replayAuths, concurrent)
	for _, auth := range replayAuths {
		assert.Equal(t, "Bearer T2", auth)
	}
}

func TestClient_RefreshFailureRejectsAllQueued(t *testing.T) {
	const concurrent = 3

	var unauthorized int32
	allFailed := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&unauthorized, 1) == concurrent {
			close(allFailed)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		<-allFailed
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore("T1"))

	var wg sync.WaitGroup
	errs := make([]error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})
		}(i)
	}
	wg.Wait()

	// Nobody hangs and everyone sees the refresh's own failure.
	for i, err := range errs {
		require.Error(t, err, "request %d", i)
		assert.ErrorIs(t, err, ErrRefreshFailed, "request %d", i)
	}
}

func TestClient_RetriesAtMostOnce(t *testing.T) {
	var expenseHits, refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&expenseHits, 1)
		// Still unauthorized after refresh; the client must give up rather
		// than loop.
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(t, w, map[string]string{"access_token": "T2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore("T1"))
	_, err := client.ListExpenses(context.Background(), ExpenseQuery{Limit: 10})

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.Equal(t, int32(2), atomic.LoadInt32(&expenseHits), "original plus exactly one replay")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestClient_OtherStatusesPropagate(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/expenses/42", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such expense", http.StatusNotFound)
	})
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(t, w, map[string]string{"access_token": "T2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, token.NewMemoryStore("T1"))
	_, err := client.GetExpense(context.Background(), 42)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls), "404 must not trigger a refresh")
}
