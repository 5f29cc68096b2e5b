package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_ReturnsAtMostThree(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("api_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_results":[
			{"title":"T1","snippet":"S1","link":"https://a","position":1},
			{"title":"T2","snippet":"S2","link":"https://b"},
			{"title":"T3","snippet":"S3","link":"https://c"},
			{"title":"T4","snippet":"S4","link":"https://d"}
		]}`))
	}))
	defer srv.Close()

	svc := NewSearchService("key-123", srv.URL, srv.Client())
	results, err := svc.Search(context.Background(), "weather in Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "weather in Tokyo", gotQuery)
	assert.Equal(t, "key-123", gotKey)
	require.Len(t, results, 3)
	assert.Equal(t, "T1", results[0].Title)
	assert.Equal(t, "S3", results[2].Snippet)
	assert.Equal(t, "https://c", results[2].Link)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"search_metadata":{"status":"Success"}}`))
	}))
	defer srv.Close()

	results, err := NewSearchService("k", srv.URL, srv.Client()).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_Failures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("q") == "bad json" {
			_, _ = w.Write([]byte(`{not json`))
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewSearchService("k", srv.URL, srv.Client())

	_, err := svc.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, 1, calls, "no retries")

	_, err = svc.Search(context.Background(), "bad json")
	assert.ErrorIs(t, err, ErrSearchFailed)

	_, err = NewSearchService("k", "http://127.0.0.1:1", nil).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_NotConfiguredAndValidation(t *testing.T) {
	svc := NewSearchService("", "http://unused.invalid", nil)

	_, err := svc.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSearchNotConfigured)

	_, err = NewSearchService("k", "http://unused.invalid", nil).Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}
