// ABOUTME: HTTP API handlers for operator and customer endpoints
// ABOUTME: Covers login, presence, conversation access, and the customer chat ingress

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/caliber/livechat/internal/auth"
	"github.com/caliber/livechat/internal/bus"
	"github.com/caliber/livechat/internal/store"
)

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	Token       string `json:"token"`
	OperatorID  string `json:"operator_id"`
	DisplayName string `json:"display_name"`
}

// PresenceRequest is the JSON body for PUT /api/presence.
type PresenceRequest struct {
	Online bool `json:"online"`
}

// PresenceResponse is the JSON response for presence reads and updates.
type PresenceResponse struct {
	Online     bool   `json:"online"`
	Available  bool   `json:"available"`
	OperatorID string `json:"operator_id,omitempty"`
	LastSeen   string `json:"last_seen,omitempty"`
}

// PostMessageRequest is the JSON body for posting a message.
type PostMessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse is one message in a JSON listing.
type MessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

// ConversationResponse is one conversation in the operator's inbox listing.
type ConversationResponse struct {
	CustomerID    string `json:"customer_id"`
	LastMessage   string `json:"last_message"`
	LastMessageAt string `json:"last_message_at"`
	LastSender    string `json:"last_sender"`
	HumanActive   bool   `json:"human_active"`
}

// handleLogin handles POST /api/login requests.
// Valid credentials yield a bearer token for the operator endpoints.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		g.sendJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	op, err := g.store.GetOperatorByUsername(r.Context(), req.Username)
	if err != nil {
		// Same response for unknown user and wrong password.
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.CheckPassword(op.PasswordHash, req.Password) {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := g.verifier.Generate(op.ID, tokenLifetime)
	if err != nil {
		g.logger.Error("token generation failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.logger.Info("operator logged in", "operator_id", op.ID, "username", op.Username)
	g.writeJSON(w, LoginResponse{
		Token:       token,
		OperatorID:  op.ID,
		DisplayName: op.DisplayName,
	})
}

// handlePresence handles PUT and GET /api/presence requests.
// PUT declares the operator online or offline; GET reports current liveness.
func (g *Gateway) handlePresence(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		g.handleSetPresence(w, r)
	case http.MethodGet:
		g.handleGetPresence(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleSetPresence(w http.ResponseWriter, r *http.Request) {
	op := auth.FromContext(r.Context())

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g.presence.Set(op.OperatorID, req.Online)
	g.logger.Info("presence updated", "operator_id", op.OperatorID, "online", req.Online)
	g.writeJSON(w, g.presenceSnapshot())
}

func (g *Gateway) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, g.presenceSnapshot())
}

// handleHeartbeat handles POST /api/presence/heartbeat requests.
// Heartbeats keep a declared-online operator counted as live.
func (g *Gateway) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	op := auth.FromContext(r.Context())
	g.presence.Heartbeat(op.OperatorID)
	g.writeJSON(w, g.presenceSnapshot())
}

func (g *Gateway) presenceSnapshot() PresenceResponse {
	available, err := g.presence.Available()
	if err != nil {
		available = false
	}

	resp := PresenceResponse{Available: available}
	if rec := g.presence.Snapshot(); rec != nil {
		resp.Online = rec.Online
		resp.OperatorID = rec.OperatorID
		resp.LastSeen = rec.LastSeen.UTC().Format(time.RFC3339)
	}
	return resp
}

// handleListConversations handles GET /api/conversations requests.
// Conversations are ordered by most recent activity.
func (g *Gateway) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	conversations, err := g.store.ListConversations(r.Context())
	if err != nil {
		g.logger.Error("listing conversations failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	response := make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		response = append(response, ConversationResponse{
			CustomerID:    c.CustomerID,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt.UTC().Format(time.RFC3339),
			LastSender:    string(c.LastSender),
			HumanActive:   c.HumanActive,
		})
	}
	g.writeJSON(w, response)
}

// handleConversationRoutes dispatches /api/conversations/{id}/messages.
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	conversationID, rest, ok := splitResourcePath(r.URL.Path, "/api/conversations/")
	if !ok || rest != "messages" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		g.handleOperatorReadMessages(w, r, conversationID)
	case http.MethodPost:
		g.handleOperatorPostMessage(w, r, conversationID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleOperatorReadMessages returns a conversation's messages and marks the
// customer's messages as read.
func (g *Gateway) handleOperatorReadMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	messages, err := g.store.ListMessages(r.Context(), conversationID, parseLimit(r))
	if err != nil {
		g.logger.Error("listing messages failed", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := g.store.MarkRead(r.Context(), conversationID); err != nil {
		g.logger.Warn("marking messages read failed", "conversation_id", conversationID, "error", err)
	}

	g.writeJSON(w, messagesResponse(messages))
}

// handleOperatorPostMessage appends an operator reply. Posting also claims
// the conversation for human handling so the assistant stays quiet.
func (g *Gateway) handleOperatorPostMessage(w http.ResponseWriter, r *http.Request, conversationID string) {
	op := auth.FromContext(r.Context())

	text, ok := g.decodeMessageBody(w, r)
	if !ok {
		return
	}

	if _, err := g.store.GetConversation(r.Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			g.sendJSONError(w, http.StatusNotFound, "conversation not found")
			return
		}
		g.logger.Error("loading conversation failed", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	msg, err := g.store.AppendMessage(r.Context(), conversationID, store.SenderOperator, text)
	if err != nil {
		g.logger.Error("appending operator message failed", "conversation_id", conversationID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := g.store.SetHumanActive(r.Context(), conversationID, true); err != nil {
		g.logger.Error("claiming conversation failed", "conversation_id", conversationID, "error", err)
	}

	g.publishMessage(msg)
	g.logger.Info("operator message posted", "conversation_id", conversationID, "operator_id", op.OperatorID)
	g.writeJSONStatus(w, http.StatusCreated, toMessageResponse(msg))
}

// handleChatRoutes dispatches /api/chat/{customerID}/messages.
// These endpoints serve customers and require no authentication.
func (g *Gateway) handleChatRoutes(w http.ResponseWriter, r *http.Request) {
	customerID, rest, ok := splitResourcePath(r.URL.Path, "/api/chat/")
	if !ok || rest != "messages" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPost:
		g.handleCustomerPostMessage(w, r, customerID)
	case http.MethodGet:
		g.handleCustomerReadMessages(w, r, customerID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCustomerPostMessage accepts a customer message and hands it to the
// router via the event bus. The routing decision happens asynchronously.
func (g *Gateway) handleCustomerPostMessage(w http.ResponseWriter, r *http.Request, customerID string) {
	text, ok := g.decodeMessageBody(w, r)
	if !ok {
		return
	}

	msg, err := g.store.AppendMessage(r.Context(), customerID, store.SenderCustomer, text)
	if err != nil {
		g.logger.Error("appending customer message failed", "conversation_id", customerID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	g.publishMessage(msg)
	g.writeJSONStatus(w, http.StatusCreated, toMessageResponse(msg))
}

// handleCustomerReadMessages returns the conversation history for polling
// customers.
func (g *Gateway) handleCustomerReadMessages(w http.ResponseWriter, r *http.Request, customerID string) {
	messages, err := g.store.ListMessages(r.Context(), customerID, parseLimit(r))
	if err != nil {
		g.logger.Error("listing messages failed", "conversation_id", customerID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	g.writeJSON(w, messagesResponse(messages))
}

// decodeMessageBody parses and validates a message post body. On failure it
// writes the error response and returns ok=false.
func (g *Gateway) decodeMessageBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return text, true
}

// publishMessage emits an append event for the router and any other listener.
func (g *Gateway) publishMessage(msg *store.Message) {
	g.events.Publish(bus.MessageEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Text:           msg.Text,
		AppendedAt:     msg.CreatedAt,
	})
}

// parseLimit reads an optional ?limit= query parameter. Zero means the
// store's default page size.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// splitResourcePath extracts the resource ID and trailing segment from paths
// like /api/chat/{id}/messages. Returns ok=false if the shape doesn't match.
func splitResourcePath(path, prefix string) (id, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (g *Gateway) writeJSON(w http.ResponseWriter, v interface{}) {
	g.writeJSONStatus(w, http.StatusOK, v)
}

func (g *Gateway) writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("encoding response failed", "error", err)
	}
}

// sendJSONError writes an error response as JSON with the given status code.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func messagesResponse(messages []*store.Message) []MessageResponse {
	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, toMessageResponse(m))
	}
	return response
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Sender:    string(m.Sender),
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		Read:      m.Read,
	}
}
