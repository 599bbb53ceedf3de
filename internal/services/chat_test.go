package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modelhub-backend/internal/models"
)

type staticPrompt string

func (p staticPrompt) SystemPrompt() string { return string(p) }

// stubProvider fails the first failures calls, then answers with reply.
type stubProvider struct {
	mu       sync.Mutex
	failures int
	calls    int
	reply    string
	seen     [][]models.ChatMessage
	opts     CompletionOptions
}

func (p *stubProvider) Complete(ctx context.Context, messages []models.ChatMessage, opts CompletionOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.opts = opts
	cp := make([]models.ChatMessage, len(messages))
	copy(cp, messages)
	p.seen = append(p.seen, cp)

	if p.calls <= p.failures {
		return "", fmt.Errorf("provider down (call %d)", p.calls)
	}
	return p.reply, nil
}

func newTestChat(provider LLMProvider) *ChatService {
	return NewChatService(provider, staticPrompt("SYSTEM"), RetryPolicy{MaxAttempts: 3}, CompletionOptions{MaxTokens: 800, Temperature: 0.7})
}

func TestChatService_NewSessionStartsWithSystemPrompt(t *testing.T) {
	provider := &stubProvider{reply: "use alpha"}
	svc := newTestChat(provider)

	reply, err := svc.Chat(context.Background(), "s1", "need a vision model")
	require.NoError(t, err)
	require.Equal(t, "use alpha", reply)

	history, ok := svc.History("s1")
	require.True(t, ok)
	require.Equal(t, []models.ChatMessage{
		{Role: models.RoleSystem, Content: "SYSTEM"},
		{Role: models.RoleUser, Content: "need a vision model"},
		{Role: models.RoleAssistant, Content: "use alpha"},
	}, history)

	require.Len(t, provider.seen[0], 2)
	require.Equal(t, 800, provider.opts.MaxTokens)
	require.InDelta(t, 0.7, provider.opts.Temperature, 1e-9)
}

func TestChatService_SecondTurnSendsWholeHistory(t *testing.T) {
	provider := &stubProvider{reply: "ok"}
	svc := newTestChat(provider)

	_, err := svc.Chat(context.Background(), "s1", "one")
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), "s1", "two")
	require.NoError(t, err)

	require.Len(t, provider.seen[1], 4)
	history, _ := svc.History("s1")
	require.Len(t, history, 5)
}

func TestChatService_RetriesThenSucceeds(t *testing.T) {
	provider := &stubProvider{failures: 2, reply: "finally"}
	svc := newTestChat(provider)

	reply, err := svc.Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.Equal(t, "finally", reply)
	require.Equal(t, 3, provider.calls)

	history, _ := svc.History("s1")
	require.Len(t, history, 3)
}

func TestChatService_ExhaustedRetriesKeepUserTurnOnly(t *testing.T) {
	provider := &stubProvider{failures: 10}
	svc := newTestChat(provider)

	_, err := svc.Chat(context.Background(), "s1", "hello")
	require.Error(t, err)
	require.Equal(t, "provider down (call 3)", err.Error())

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	require.Equal(t, 3, retryErr.Attempts)
	require.Equal(t, 3, provider.calls)

	history, _ := svc.History("s1")
	require.Equal(t, []models.ChatMessage{
		{Role: models.RoleSystem, Content: "SYSTEM"},
		{Role: models.RoleUser, Content: "hello"},
	}, history)
}

func TestChatService_EmptySessionIDUsesDefault(t *testing.T) {
	svc := newTestChat(&stubProvider{reply: "x"})

	_, err := svc.Chat(context.Background(), "", "hi")
	require.NoError(t, err)

	_, ok := svc.History(DefaultSessionID)
	require.True(t, ok)
}

func TestChatService_ConcurrentTurnsOnOneSessionDoNotInterleave(t *testing.T) {
	svc := newTestChat(&stubProvider{reply: "r"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Chat(context.Background(), "shared", fmt.Sprintf("m%d", i))
		}(i)
	}
	wg.Wait()

	history, _ := svc.History("shared")
	require.Len(t, history, 41)
	for i := 1; i < len(history); i += 2 {
		require.Equal(t, models.RoleUser, history[i].Role)
		require.Equal(t, models.RoleAssistant, history[i+1].Role)
	}
}

func TestChatService_ResetAndSweep(t *testing.T) {
	svc := newTestChat(&stubProvider{reply: "r"})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	svc.Chat(context.Background(), "old", "hi")
	current = base.Add(50 * time.Minute)
	svc.Chat(context.Background(), "fresh", "hi")

	require.Equal(t, 0, svc.SweepIdle(current, 0))
	require.Equal(t, 1, svc.SweepIdle(current, 30*time.Minute))
	_, ok := svc.History("old")
	require.False(t, ok)
	_, ok = svc.History("fresh")
	require.True(t, ok)

	require.True(t, svc.Reset("fresh"))
	require.False(t, svc.Reset("fresh"))
	require.Equal(t, 0, svc.SessionCount())
}

// blockingProvider holds every call until release is closed or, when
// honourCtx is set, until the call's context ends.
type blockingProvider struct {
	started   chan struct{}
	once      sync.Once
	release   chan struct{}
	honourCtx bool
}

func newBlockingProvider(honourCtx bool) *blockingProvider {
	return &blockingProvider{
		started:   make(chan struct{}),
		release:   make(chan struct{}),
		honourCtx: honourCtx,
	}
}

func (p *blockingProvider) Complete(ctx context.Context, messages []models.ChatMessage, opts CompletionOptions) (string, error) {
	p.once.Do(func() { close(p.started) })
	if p.honourCtx {
		select {
		case <-p.release:
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	<-p.release
	return "late", nil
}

func TestChatService_TurnTimeoutEndsSlowProvider(t *testing.T) {
	provider := newBlockingProvider(true)
	defer close(provider.release)
	svc := newTestChat(provider).WithTurnTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := svc.Chat(context.Background(), "s1", "hello")

	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)

	history, _ := svc.History("s1")
	require.Len(t, history, 2)
}

func TestChatService_TurnTimeoutCoversWaitForBusySession(t *testing.T) {
	provider := newBlockingProvider(false)
	svc := newTestChat(provider)

	first := make(chan error, 1)
	go func() {
		_, err := svc.Chat(context.Background(), "s1", "first")
		first <- err
	}()
	<-provider.started

	svc.WithTurnTimeout(50 * time.Millisecond)
	_, err := svc.Chat(context.Background(), "s1", "second")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "busy")

	close(provider.release)
	require.NoError(t, <-first)

	history, _ := svc.History("s1")
	require.Equal(t, []models.ChatMessage{
		{Role: models.RoleSystem, Content: "SYSTEM"},
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "late"},
	}, history)
}

func TestChatService_HistoryDoesNotWaitForTurn(t *testing.T) {
	provider := newBlockingProvider(false)
	svc := newTestChat(provider)

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Chat(context.Background(), "s1", "hello")
	}()
	<-provider.started

	got := make(chan []models.ChatMessage, 1)
	go func() {
		history, _ := svc.History("s1")
		got <- history
	}()

	select {
	case history := <-got:
		require.Len(t, history, 2)
		require.Equal(t, models.RoleUser, history[1].Role)
	case <-time.After(2 * time.Second):
		t.Fatal("History blocked behind an in-flight turn")
	}

	close(provider.release)
	<-done
}

func TestChatService_LookupRefreshesActivityBeforeSweep(t *testing.T) {
	svc := newTestChat(&stubProvider{reply: "r"})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	_, err := svc.Chat(context.Background(), "s1", "hi")
	require.NoError(t, err)

	// A new turn has looked the session up but not yet started.
	current = base.Add(2 * time.Hour)
	svc.getOrCreate("s1")

	require.Equal(t, 0, svc.SweepIdle(current, time.Hour))
	_, ok := svc.History("s1")
	require.True(t, ok)
}
