package handlers

import (
	"net/http"

	"day-planner/backend/internal/ai"

	"github.com/gin-gonic/gin"
)

type AIHandler struct {
	enhancer *ai.Enhancer
}

func NewAIHandler(enhancer *ai.Enhancer) *AIHandler {
	return &AIHandler{enhancer: enhancer}
}

// Enhance rewrites task text. Provider trouble never turns into an
// HTTP error; the deterministic transform is always returned.
func (h *AIHandler) Enhance(c *gin.Context) {
	var input struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.enhancer.Enhance(c.Request.Context(), input.Title, input.Description)
	c.JSON(http.StatusOK, result)
}

// Generate shapes a task draft from a one-line prompt.
func (h *AIHandler) Generate(c *gin.Context) {
	var input struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := h.enhancer.GenerateFromPrompt(c.Request.Context(), input.Prompt)
	c.JSON(http.StatusOK, draft)
}

func (h *AIHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.enhancer.Status())
}
