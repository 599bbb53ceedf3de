package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"modelhub-backend/internal/middleware"
	"modelhub-backend/internal/models"
	"modelhub-backend/internal/services"
)

type chatService interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
	History(sessionID string) ([]models.ChatMessage, bool)
	Reset(sessionID string) bool
}

type catalogCounter interface {
	Total() int
}

type ChatHandler struct {
	chat    chatService
	catalog catalogCounter
}

func NewChatHandler(chat chatService, catalog catalogCounter) *ChatHandler {
	return &ChatHandler{chat: chat, catalog: catalog}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	// Bodies are not validated: anything undecodable is an empty request.
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = models.ChatRequest{}
	}
	if req.SessionID == "" {
		req.SessionID = services.DefaultSessionID
	}

	reply, err := h.chat.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		log.Printf("chat: request %s failed: %v", r.Header.Get(middleware.RequestIDHeader), err)
		writeJSON(w, http.StatusInternalServerError, errorResp(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply, TotalModels: h.catalog.Total()})
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	messages, ok := h.chat.History(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("session not found"))
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{SessionID: id, Messages: messages})
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.chat.Reset(id) {
		writeJSON(w, http.StatusNotFound, errorResp("session not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session cleared"})
}
