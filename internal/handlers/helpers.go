package handlers

import (
	"errors"
	"net/http"

	"matchme-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// respondError maps application error codes to HTTP statuses. Internal detail
// is logged, never serialized.
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case models.CodeNotFound:
		status = http.StatusNotFound
	case models.CodeForbidden:
		status = http.StatusForbidden
	case models.CodeConflict:
		status = http.StatusConflict
	case models.CodeInvalidState:
		status = http.StatusConflict
	case models.CodeInvalidOperation:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("Request failed")
	}

	c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
}

// bindingErrorMessage turns validator failures into a readable message
// without leaking struct internals.
func bindingErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return "invalid field: " + first.Field()
	}
	return err.Error()
}

func currentUserID(c *gin.Context) uint {
	userID, _ := c.Get("user_id")
	return userID.(uint)
}
