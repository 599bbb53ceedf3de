package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"modelhub-backend/internal/models"
)

// DefaultSessionID is used when a chat request names no session.
const DefaultSessionID = "default"

// PromptSource supplies the system prompt new sessions are seeded with.
type PromptSource interface {
	SystemPrompt() string
}

// session holds one conversation. turn admits a single chat turn at a time
// and is acquired with the turn's context; mu guards messages and lastActive
// and is only held briefly, never across a provider call.
type session struct {
	turn chan struct{}

	mu         sync.Mutex
	messages   []models.ChatMessage
	lastActive time.Time
}

func newSession(systemPrompt string, now time.Time) *session {
	return &session{
		turn:       make(chan struct{}, 1),
		messages:   []models.ChatMessage{{Role: models.RoleSystem, Content: systemPrompt}},
		lastActive: now,
	}
}

func (sess *session) acquire(ctx context.Context) error {
	select {
	case sess.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sess *session) tryAcquire() bool {
	select {
	case sess.turn <- struct{}{}:
		return true
	default:
		return false
	}
}

func (sess *session) release() {
	<-sess.turn
}

func (sess *session) append(msg models.ChatMessage, now time.Time) []models.ChatMessage {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.messages = append(sess.messages, msg)
	sess.lastActive = now

	out := make([]models.ChatMessage, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// ChatService keeps per-session conversation history in memory and relays
// each turn to the LLM provider.
type ChatService struct {
	provider    LLMProvider
	prompts     PromptSource
	retry       RetryPolicy
	opts        CompletionOptions
	turnTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewChatService(provider LLMProvider, prompts PromptSource, retry RetryPolicy, opts CompletionOptions) *ChatService {
	return &ChatService{
		provider: provider,
		prompts:  prompts,
		retry:    retry,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// WithTurnTimeout bounds a whole chat turn: waiting for the session, every
// attempt and the pauses between them. Zero means no bound.
func (s *ChatService) WithTurnTimeout(d time.Duration) *ChatService {
	s.turnTimeout = d
	return s
}

// Chat records message in the session, asks the provider for a reply and
// records that too. When every attempt fails the user turn stays in the
// history, no assistant turn is added, and a *RetryError is returned.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (string, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	sess := s.getOrCreate(sessionID)

	// One turn at a time per session; other sessions are unaffected.
	if err := sess.acquire(ctx); err != nil {
		return "", fmt.Errorf("session %s is busy: %w", sessionID, err)
	}
	defer sess.release()

	history := sess.append(models.ChatMessage{Role: models.RoleUser, Content: message}, s.now())

	var reply string
	err := s.retry.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		reply, callErr = s.provider.Complete(ctx, history, s.opts)
		if callErr != nil {
			log.Printf("chat: session %s: completion failed: %v", sessionID, callErr)
		}
		return callErr
	})
	if err != nil {
		return "", err
	}

	sess.append(models.ChatMessage{Role: models.RoleAssistant, Content: reply}, s.now())
	return reply, nil
}

// getOrCreate also marks the session active, under the map lock, so a sweep
// cannot drop it between lookup and the start of the turn.
func (s *ChatService) getOrCreate(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(s.prompts.SystemPrompt(), now)
		s.sessions[id] = sess
		return sess
	}

	sess.mu.Lock()
	sess.lastActive = now
	sess.mu.Unlock()
	return sess
}

// History returns a copy of the session's turns and whether it exists. It
// does not wait for an in-flight turn.
func (s *ChatService) History(sessionID string) ([]models.ChatMessage, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.ChatMessage, len(sess.messages))
	copy(out, sess.messages)
	return out, true
}

// Reset forgets a session. It reports whether the session existed.
func (s *ChatService) Reset(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}

func (s *ChatService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepIdle drops sessions whose last activity is older than ttl and returns
// how many were removed. A non-positive ttl keeps everything.
func (s *ChatService) SweepIdle(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		// Skip sessions mid-turn.
		if !sess.tryAcquire() {
			continue
		}
		sess.mu.Lock()
		idle := now.Sub(sess.lastActive) > ttl
		sess.mu.Unlock()
		sess.release()

		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
