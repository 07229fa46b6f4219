package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"arenta/marketplace/internal/pkg/auth"
	"arenta/marketplace/internal/pkg/httputils"
	"arenta/marketplace/internal/service"
	"arenta/marketplace/internal/ws"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chatService service.ChatService
	userService service.UserService
	tokens      auth.TokenService
	registry    *ws.Registry
	presence    ws.Presence
}

func NewChatHandler(
	chatService service.ChatService,
	userService service.UserService,
	tokens auth.TokenService,
	registry *ws.Registry,
	presence ws.Presence,
) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
		tokens:      tokens,
		registry:    registry,
		presence:    presence,
	}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chats", h.createChat).Methods("POST", "OPTIONS")
	router.HandleFunc("/chats", h.getChats).Methods("GET", "OPTIONS")
	router.HandleFunc("/chats", h.deleteChats).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/chats/id", h.getChatID).Methods("GET", "OPTIONS")
	router.HandleFunc("/chats/{id:[0-9]+}", h.getChat).Methods("GET", "OPTIONS")
	router.HandleFunc("/chats/{id:[0-9]+}/messages", h.getMessages).Methods("GET", "OPTIONS")
	router.HandleFunc("/chats/{id:[0-9]+}/online", h.onlineUsers).Methods("GET", "OPTIONS")
	router.HandleFunc("/chats/{id:[0-9]+}/clear", h.clearChat).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/ws/chats/{id:[0-9]+}", h.chatSocket).Methods("GET")
}

// currentUser resolves the requesting user from the Bearer header.
func (h *ChatHandler) currentUser(r *http.Request) (uint, error) {
	claims, err := h.tokens.Decode(r.Header.Get("Bearer"))
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

type createChatRequest struct {
	UserID uint `json:"user_id"`
}

// @Summary Create chat
// @Description Create the chat between the current user and another user
// @ID create-chat
// @Accept json
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param chatData body createChatRequest true "Second participant"
// @Success 201 {object} model.Chat
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /chats [post]
func (h *ChatHandler) createChat(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	var request createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	r.Body.Close()

	chat, err := h.chatService.CreateChat(userID, request.UserID)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusCreated, chat)
}

// @Summary List chats
// @Description List all chats of the current user
// @ID get-chats
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Success 200 {object} []model.Chat
// @Failure 401 {object} response.ErrorResponse
// @Router /chats [get]
func (h *ChatHandler) getChats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	chats, err := h.chatService.GetChatsForUser(userID)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, chats)
}

// @Summary Delete chats
// @Description Delete every chat of the current user, messages included
// @ID delete-chats
// @Param Bearer header string true "Auth Token"
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Router /chats [delete]
func (h *ChatHandler) deleteChats(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	if err := h.chatService.DeleteChatsForUser(userID); err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Resolve chat id
// @Description Resolve the chat id for the current user and another user
// @ID get-chat-id
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param user_id query int true "Second participant ID"
// @Success 200 {integer} int
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/id [get]
func (h *ChatHandler) getChatID(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	otherID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	chatID, err := h.chatService.GetChatID(userID, uint(otherID))
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, chatID)
}

// @Summary Get chat
// @Description Get one chat of the current user
// @ID get-chat
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Chat ID"
// @Success 200 {object} model.Chat
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{id} [get]
func (h *ChatHandler) getChat(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	chatID, err := h.pathID(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse chat ID")
		return
	}

	chat, err := h.chatService.GetChat(userID, chatID)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, chat)
}

// @Summary Get messages
// @Description Get the messages of a chat, oldest first
// @ID get-messages
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Chat ID"
// @Success 200 {object} []ws.OutMessage
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	if _, err := h.currentUser(r); err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	chatID, err := h.pathID(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse chat ID")
		return
	}

	messages, err := h.chatService.GetMessages(chatID)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	// History uses the same wire shape as live broadcast.
	out := make([]ws.OutMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		out = append(out, ws.OutMessage{
			ID:        msg.ID,
			ChatID:    msg.ChatID,
			Sender:    msg.Sender.Profile(),
			Content:   msg.Content,
			Timestamp: msg.WireTimestamp(),
		})
	}

	httputils.ResponseJSON(w, http.StatusOK, out)
}

// @Summary Online users
// @Description List the user ids currently connected to a chat
// @ID online-users
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Chat ID"
// @Success 200 {object} []int
// @Failure 401 {object} response.ErrorResponse
// @Router /chats/{id}/online [get]
func (h *ChatHandler) onlineUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := h.currentUser(r); err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	chatID, err := h.pathID(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse chat ID")
		return
	}

	// Without a presence backend every chat reads as empty.
	users := []uint{}
	if h.presence != nil {
		users, err = h.presence.GetChatUsers(r.Context(), chatID)
		if err != nil {
			httputils.ResponseAppError(w, err)
			return
		}
		if users == nil {
			users = []uint{}
		}
	}

	httputils.ResponseJSON(w, http.StatusOK, users)
}

// @Summary Clear chat
// @Description Delete all messages of a chat, keeping the chat itself
// @ID clear-chat
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Chat ID"
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{id}/clear [delete]
func (h *ChatHandler) clearChat(w http.ResponseWriter, r *http.Request) {
	if _, err := h.currentUser(r); err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	chatID, err := h.pathID(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse chat ID")
		return
	}

	if err := h.chatService.ClearChat(chatID); err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// chatSocket upgrades to a websocket session for one chat. The token comes in
// as a query parameter because browsers cannot set headers on websocket
// dials. An invalid token rejects the connection before it is ever
// registered.
func (h *ChatHandler) chatSocket(w http.ResponseWriter, r *http.Request) {
	chatID, err := h.pathID(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse chat ID")
		return
	}

	claims, err := h.tokens.Decode(r.URL.Query().Get("token"))
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	sender, err := h.userService.GetProfile(claims.UserID)
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed for chat %d: %v", chatID, err)
		return
	}

	session := ws.NewSession(h.registry, h.chatService, h.presence, chatID, sender, conn)
	session.Run()
}

func (h *ChatHandler) pathID(r *http.Request) (uint, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
