package oada

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherRetry(t *testing.T) {
	t.Run("retries transient failures", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				http.Error(w, "flaky", http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"_id": "resources/x"})
		}))
		fetcher := NewFetcher(client, DefaultRetryPolicy(), nil)

		var got struct {
			ID string `json:"_id"`
		}
		err := fetcher.GetJSON(context.Background(), "/bookmarks/x", &got)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, "resources/x", got.ID)
	})

	t.Run("not-found fails immediately", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.NotFound(w, r)
		}))
		fetcher := NewFetcher(client, DefaultRetryPolicy(), nil)

		_, err := fetcher.Get(context.Background(), "/bookmarks/missing")
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 1, attempts)
	})

	t.Run("returns last error after exhausting attempts", func(t *testing.T) {
		attempts := 0
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		fetcher := NewFetcher(client, RetryPolicy{
			MaxAttempts: 2,
			IsRetryable: func(err error) bool { return !IsNotFound(err) },
		}, nil)

		_, err := fetcher.Get(context.Background(), "/bookmarks/down")
		require.Error(t, err)
		assert.Equal(t, 2, attempts)

		var statusErr *StatusError
		assert.ErrorAs(t, err, &statusErr)
	})

	t.Run("default policy uses five attempts", func(t *testing.T) {
		policy := DefaultRetryPolicy()
		assert.Equal(t, 5, policy.MaxAttempts)
		assert.True(t, policy.IsRetryable(assert.AnError))
	})
}
