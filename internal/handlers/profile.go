package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"matchme-server/internal/config"
	"matchme-server/internal/models"
	"matchme-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	storage  *services.StorageService
	cfg      *config.Config
}

func NewProfileHandler(profiles *services.ProfileService, storage *services.StorageService, cfg *config.Config) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, storage: storage, cfg: cfg}
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfile merges a partial update; absent fields stay untouched.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var update services.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err)})
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), currentUserID(c), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "profile": profile})
}

func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID := currentUserID(c)

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo provided"})
		return
	}
	defer file.Close()

	if err := h.validateImageFile(header); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext := filepath.Ext(header.Filename)
	filename := fmt.Sprintf("profile_photos/%d_%s%s", userID, uuid.New().String(), ext)

	url, err := h.storage.UploadFile(c.Request.Context(), file, filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, models.NewInternalError(err))
		return
	}

	if err := h.profiles.SetPictureURL(c.Request.Context(), userID, url); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Photo uploaded successfully", "url": url})
}

// DeletePhoto clears the picture URL; the profile row itself stays.
func (h *ProfileHandler) DeletePhoto(c *gin.Context) {
	userID := currentUserID(c)

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if profile.PictureURL != "" {
		if err := h.storage.DeleteFile(c.Request.Context(), profile.PictureURL); err != nil {
			// The URL reference is the source of truth; storage cleanup is
			// best-effort.
			logrus.WithError(err).Warn("Failed to delete photo from storage")
		}
	}

	if err := h.profiles.ClearPictureURL(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted successfully"})
}

func (h *ProfileHandler) validateImageFile(header *multipart.FileHeader) error {
	if header.Size > h.cfg.MaxFileSize {
		return fmt.Errorf("file too large (max %d bytes)", h.cfg.MaxFileSize)
	}

	contentType := header.Header.Get("Content-Type")
	for _, allowed := range h.cfg.AllowedImageTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported image type %q", contentType)
}
