package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"modelhub-backend/internal/models"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"try alpha"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL+"/v1/", "secret", "grok-3-mini-beta", 5*time.Second)
	reply, err := p.Complete(context.Background(), []models.ChatMessage{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hi"},
	}, CompletionOptions{MaxTokens: 800, Temperature: 0.7})

	require.NoError(t, err)
	require.Equal(t, "try alpha", reply)
	require.Equal(t, "grok-3-mini-beta", got.Model)
	require.Equal(t, 800, got.MaxTokens)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`overloaded`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.URL, "k", "m", 5*time.Second).Complete(context.Background(),
		[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, CompletionOptions{})

	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "overloaded")
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.URL, "k", "m", 5*time.Second).Complete(context.Background(),
		[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, CompletionOptions{})
	require.EqualError(t, err, "no choices in response")
}

func TestToGeminiContents(t *testing.T) {
	system, history, last, err := toGeminiContents([]models.ChatMessage{
		{Role: models.RoleSystem, Content: "prompt"},
		{Role: models.RoleUser, Content: "q1"},
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleUser, Content: "q2"},
	})

	require.NoError(t, err)
	require.Equal(t, "prompt", system)
	require.Equal(t, "q2", last)
	require.Len(t, history, 2)
	require.Equal(t, "user", history[0].Role)
	require.Equal(t, "model", history[1].Role)
	require.Equal(t, genai.Text("a1"), history[1].Parts[0])
}

func TestToGeminiContents_RequiresTrailingUserTurn(t *testing.T) {
	_, _, _, err := toGeminiContents([]models.ChatMessage{{Role: models.RoleSystem, Content: "prompt"}})
	require.Error(t, err)
}

func TestNewLLMProvider_Unknown(t *testing.T) {
	_, err := NewLLMProvider(context.Background(), "claude-via-fax", "", "", "", time.Second)
	require.Error(t, err)
}

func TestOpenAIProvider_TimeoutBoundsOneCall(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewOpenAIProvider(srv.URL, "k", "m", 100*time.Millisecond).Complete(context.Background(),
		[]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, CompletionOptions{})

	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
