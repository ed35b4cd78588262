package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func generateBody(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"parts": []map[string]string{{"text": text}}}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestEnhance_NoCredential(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	enhancer := NewEnhancer("", server.URL, []string{"model-a"}, time.Second)
	result := enhancer.Enhance(context.Background(), "buy milk", "")

	assert.Equal(t, "Buy milk", result.Title)
	assert.Equal(t, placeholderDescription, result.Description)
	assert.True(t, result.Meta.UsedFallback)
	assert.Empty(t, result.Meta.ModelsTried)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls), "no network call expected without a credential")
}

func TestEnhance_NoCredentialEmptyTitle(t *testing.T) {
	enhancer := NewEnhancer("", "http://unused", nil, time.Second)
	result := enhancer.Enhance(context.Background(), "   ", "  ")

	assert.Equal(t, placeholderTitle, result.Title)
	assert.Equal(t, placeholderDescription, result.Description)
}

func TestEnhance_SecondCandidateSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "model-a") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`)
			return
		}
		fmt.Fprint(w, generateBody(`{"title":"Buy milk","description":"Pick up milk from the store."}`))
	}))
	defer server.Close()

	enhancer := NewEnhancer("test-key", server.URL, []string{"model-a", "model-b"}, time.Second)
	result := enhancer.Enhance(context.Background(), "buy milk", "")

	assert.Equal(t, "Buy milk", result.Title)
	assert.Equal(t, "Pick up milk from the store.", result.Description)
	assert.False(t, result.Meta.UsedFallback)
	assert.Equal(t, "model-b", result.Meta.ModelUsed)
	assert.Equal(t, []string{"model-a", "model-b"}, result.Meta.ModelsTried)
	assert.Len(t, result.Meta.ErrorChain, 1)
	assert.Contains(t, result.Meta.ErrorChain[0], "model-a")
}

func TestEnhance_AllCandidatesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	candidates := []string{"model-a", "model-b", "model-c"}
	enhancer := NewEnhancer("test-key", server.URL, candidates, time.Second)
	result := enhancer.Enhance(context.Background(), "buy milk", "from the corner shop")

	assert.True(t, result.Meta.UsedFallback)
	assert.Equal(t, "Buy milk", result.Title)
	assert.Equal(t, "from the corner shop", result.Description)
	assert.Equal(t, candidates, result.Meta.ModelsTried)
	assert.Len(t, result.Meta.ErrorChain, 3)
}

func TestEnhance_ProseAroundJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, generateBody("Sure! Here you go:\n```json\n{\"title\":\"Walk dog\",\"description\":\"Take the dog around the block.\"}\n```\nLet me know."))
	}))
	defer server.Close()

	enhancer := NewEnhancer("test-key", server.URL, []string{"model-a"}, time.Second)
	result := enhancer.Enhance(context.Background(), "walk dog", "")

	assert.False(t, result.Meta.UsedFallback)
	assert.Equal(t, "Walk dog", result.Title)
	assert.Equal(t, "Take the dog around the block.", result.Description)
}

func TestEnhance_MissingFieldsTreatedAsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, generateBody(`{"title":"Only a title"}`))
	}))
	defer server.Close()

	enhancer := NewEnhancer("test-key", server.URL, []string{"model-a"}, time.Second)
	result := enhancer.Enhance(context.Background(), "buy milk", "")

	assert.True(t, result.Meta.UsedFallback)
	assert.True(t, result.Meta.ParsingFailed)
	assert.Equal(t, "Buy milk", result.Title)
}

func TestEnhance_OneAttemptPerCandidate(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	enhancer := NewEnhancer("test-key", server.URL, []string{"model-a", "model-b"}, time.Second)
	enhancer.Enhance(context.Background(), "buy milk", "")

	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestGenerateFromPrompt(t *testing.T) {
	enhancer := NewEnhancer("", "http://unused", nil, time.Second)
	draft := enhancer.GenerateFromPrompt(context.Background(), "plan the sprint")

	assert.Equal(t, "Plan the sprint", draft.Title)
	assert.Equal(t, time.Now().Format("2006-01-02"), draft.StartDate)
	assert.NotEmpty(t, draft.Description)
}

func TestStatus(t *testing.T) {
	assert.False(t, NewEnhancer("", "", nil, time.Second).Status().Available)
	assert.True(t, NewEnhancer("key", "", nil, time.Second).Status().Available)
}

func TestExtractTaskJSON(t *testing.T) {
	_, ok := extractTaskJSON("no json here")
	assert.False(t, ok)

	_, ok = extractTaskJSON(`{"title":"","description":"x"}`)
	assert.False(t, ok)

	parsed, ok := extractTaskJSON(`{"title":"a","description":"b"}`)
	assert.True(t, ok)
	assert.Equal(t, "a", parsed.Title)
	assert.Equal(t, "b", parsed.Description)
}
