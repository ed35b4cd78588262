package handlers

import (
	"net/http"
	"time"

	"day-planner/backend/internal/middleware"
	"day-planner/backend/internal/models"
	"day-planner/backend/internal/store"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	store      store.Service
	jwtSecret  string
	sessionTTL time.Duration
}

func NewAuthHandler(taskStore store.Service, jwtSecret string, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{store: taskStore, jwtSecret: jwtSecret, sessionTTL: sessionTTL}
}

// SignIn consumes the identity triple produced by the external sign-in
// widget and swaps in the remote task collection for that identity.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var input struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required,email"`
		Picture string `json:"picture"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := models.Session{
		Name:    input.Name,
		Email:   input.Email,
		Picture: input.Picture,
	}

	h.store.SignIn(c.Request.Context(), session)

	token, err := middleware.IssueSessionToken(h.jwtSecret, session.Email, session.Name, h.sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"session": session,
	})
}

// SignOut destroys the session; the local task collection survives.
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.store.SignOut()
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

func (h *AuthHandler) GetSession(c *gin.Context) {
	session := h.store.Session()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, session)
}
