package handlers

import (
	"net/http"
	"strconv"
	"time"

	"matchme-server/internal/models"
	"matchme-server/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ConnectionHandler struct {
	db          *gorm.DB
	connections *services.ConnectionService
	profiles    *services.ProfileService
}

// ConnectionResponse is a connection enriched with the partner's display
// data. The partner is derived by identity comparison against the caller.
type ConnectionResponse struct {
	ID          uint                    `json:"id"`
	Status      models.ConnectionStatus `json:"status"`
	Partner     PartnerInfo             `json:"partner"`
	CreatedAt   time.Time               `json:"created_at"`
	IsRequester bool                    `json:"is_requester"`
}

type PartnerInfo struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	PictureURL string `json:"picture_url"`
}

func NewConnectionHandler(db *gorm.DB, connections *services.ConnectionService, profiles *services.ProfileService) *ConnectionHandler {
	return &ConnectionHandler{db: db, connections: connections, profiles: profiles}
}

func (h *ConnectionHandler) SendRequest(c *gin.Context) {
	receiverID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var receiver models.User
	if err := h.db.First(&receiver, uint(receiverID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	connection, err := h.connections.SendRequest(c.Request.Context(), currentUserID(c), uint(receiverID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"connection": connection})
}

func (h *ConnectionHandler) Accept(c *gin.Context) {
	connectionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection ID"})
		return
	}

	connection, err := h.connections.AcceptRequest(c.Request.Context(), uint(connectionID), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connection": connection})
}

func (h *ConnectionHandler) Reject(c *gin.Context) {
	connectionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection ID"})
		return
	}

	if err := h.connections.RejectRequest(c.Request.Context(), uint(connectionID), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request rejected"})
}

func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	connectionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connection ID"})
		return
	}

	if err := h.connections.Disconnect(c.Request.Context(), uint(connectionID), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Disconnected"})
}

func (h *ConnectionHandler) ListPending(c *gin.Context) {
	userID := currentUserID(c)

	connections, err := h.connections.ListPending(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": h.enrich(c, userID, connections)})
}

func (h *ConnectionHandler) ListAccepted(c *gin.Context) {
	userID := currentUserID(c)

	connections, err := h.connections.ListAccepted(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connections": h.enrich(c, userID, connections)})
}

func (h *ConnectionHandler) enrich(c *gin.Context, userID uint, connections []models.Connection) []ConnectionResponse {
	responses := make([]ConnectionResponse, 0, len(connections))
	for _, conn := range connections {
		partnerID := conn.Partner(userID)

		info := PartnerInfo{UserID: partnerID}
		var partner models.User
		if err := h.db.First(&partner, partnerID).Error; err == nil {
			info.Username = partner.Username
		}
		if profile, err := h.profiles.Get(c.Request.Context(), partnerID); err == nil {
			info.FirstName = profile.FirstName
			info.LastName = profile.LastName
			info.PictureURL = profile.PictureURL
		}

		responses = append(responses, ConnectionResponse{
			ID:          conn.ID,
			Status:      conn.Status,
			Partner:     info,
			CreatedAt:   conn.CreatedAt,
			IsRequester: conn.RequesterID == userID,
		})
	}
	return responses
}
