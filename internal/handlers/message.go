package handlers

import (
	"net/http"
	"strconv"

	"matchme-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	chat     *services.ChatService
	presence *services.PresenceService
	push     *services.PushService
}

type SendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

type TypingRequest struct {
	ReceiverID uint `json:"receiver_id" binding:"required"`
}

type DeviceTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func NewMessageHandler(chat *services.ChatService, presence *services.PresenceService, push *services.PushService) *MessageHandler {
	return &MessageHandler{chat: chat, presence: presence, push: push}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	message, err := h.chat.Send(c.Request.Context(), currentUserID(c), req.ReceiverID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Sent successfully", "data": message})
}

func (h *MessageHandler) Typing(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	if err := h.chat.SendTyping(c.Request.Context(), currentUserID(c), req.ReceiverID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// History returns one page of the thread with the given user, oldest-first,
// plus whether the start of the chat has been reached.
func (h *MessageHandler) History(c *gin.Context) {
	otherUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	messages, lastPage, err := h.chat.History(c.Request.Context(), currentUserID(c), uint(otherUserID), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":           messages,
		"startOfChatReached": lastPage,
	})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	senderID, err := strconv.ParseUint(c.Param("sender_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sender ID"})
		return
	}

	if err := h.chat.MarkRead(c.Request.Context(), currentUserID(c), uint(senderID)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OnlineStatus answers whether a user currently counts as online.
func (h *MessageHandler) OnlineStatus(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   uint(userID),
		"is_online": h.presence.IsOnline(uint(userID)),
	})
}

func (h *MessageHandler) RegisterDeviceToken(c *gin.Context) {
	if h.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications not configured"})
		return
	}

	var req DeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	if err := h.push.RegisterDeviceToken(c.Request.Context(), currentUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
