package preparations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/interview-ace/internal/auth"
	"github.com/jimdaga/interview-ace/internal/models"
	"github.com/jimdaga/interview-ace/internal/steps"
)

// RegisterRoutes mounts the preparation API on rg. rg must run auth.RequireAuth.
func RegisterRoutes(rg *gin.RouterGroup, store *Store, logger *slog.Logger) {
	rg.POST("", CreateHandler(store, logger))
	rg.GET("", ListHandler(store, logger))
	rg.GET("/:id", GetHandler(store, logger))
	rg.PATCH("/:id", UpdateHandler(store, logger))
	rg.DELETE("/:id", DeleteHandler(store, logger))
	rg.PUT("/:id/steps/:step", ReplaceStepHandler(store, logger))
	rg.PATCH("/:id/steps/:step", MergeStepHandler(store, logger))
}

// CreateHandler creates an empty preparation.
func CreateHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		// A bodiless POST creates an untitled preparation
		var in CreateInput
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
				return
			}
		}

		prep, err := store.Create(c.Request.Context(), userID, in)
		if err != nil {
			WriteError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, prep)
	}
}

// ListHandler lists the caller's preparations.
func ListHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.CurrentUserID(c)
		if !ok {
			c.Status(http.StatusUnauthorized)
			return
		}

		preps, err := store.List(c.Request.Context(), userID)
		if err != nil {
			WriteError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": preps})
	}
}

// GetHandler returns one preparation.
func GetHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, id, ok := ownerAndID(c)
		if !ok {
			return
		}

		prep, err := store.Get(c.Request.Context(), userID, id)
		if err != nil {
			WriteError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, prep)
	}
}

// UpdateHandler changes title and job URL.
func UpdateHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, id, ok := ownerAndID(c)
		if !ok {
			return
		}

		var in UpdateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		prep, err := store.Update(c.Request.Context(), userID, id, in)
		if err != nil {
			WriteError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, prep)
	}
}

// DeleteHandler permanently deletes a preparation.
func DeleteHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, id, ok := ownerAndID(c)
		if !ok {
			return
		}

		if err := store.Delete(c.Request.Context(), userID, id); err != nil {
			WriteError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ReplaceStepHandler replaces one step slot with the request body.
func ReplaceStepHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return stepHandler(logger, store.ReplaceStep)
}

// MergeStepHandler merges the request body into one step slot.
func MergeStepHandler(store *Store, logger *slog.Logger) gin.HandlerFunc {
	return stepHandler(logger, store.MergeStep)
}

type stepWriter func(ctx context.Context, userID uint, id uuid.UUID, n int, raw []byte) (*models.Preparation, error)

func stepHandler(logger *slog.Logger, write stepWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, id, ok := ownerAndID(c)
		if !ok {
			return
		}

		n, err := strconv.Atoi(c.Param("step"))
		if err != nil || n < 1 || n > steps.Count {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step", "details": "step must be between 1 and 6"})
			return
		}

		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}

		prep, err := write(c.Request.Context(), userID, id, n, raw)
		if err != nil {
			WriteError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, prep)
	}
}

// ownerAndID reads the caller and the :id parameter. Malformed ids are
// answered like missing ones.
func ownerAndID(c *gin.Context) (uint, uuid.UUID, bool) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
		return 0, uuid.Nil, false
	}
	return userID, id, true
}

// WriteError maps store errors onto responses. A foreign preparation gets the
// same 404 as a missing one.
func WriteError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *steps.ValidationError
	switch {
	case errors.Is(err, ErrForbidden):
		logger.Warn("Preparation access denied", "preparation_id", c.Param("id"), "user_id", c.GetUint(auth.ContextUserID))
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Error(), "fields": verr.Fields})
	default:
		logger.Error("Preparation request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": "the request could not be completed"})
	}
}
