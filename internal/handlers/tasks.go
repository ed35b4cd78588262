package handlers

import (
	"net/http"
	"time"

	"day-planner/backend/internal/models"
	"day-planner/backend/internal/store"
	"day-planner/backend/internal/views"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	store store.Service
}

func NewTaskHandler(taskStore store.Service) *TaskHandler {
	return &TaskHandler{store: taskStore}
}

// CreateTask enforces the non-empty title at this edge; the store
// itself does not validate.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		StartDate   string `json:"startDate"`
		Deadline    string `json:"deadline"`
		Priority    string `json:"priority"`
		Category    string `json:"category"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Priority == "" {
		input.Priority = string(models.PriorityMedium)
	}
	if input.Category == "" {
		input.Category = string(models.CategoryPersonal)
	}

	priority := models.Priority(input.Priority)
	category := models.Category(input.Category)
	if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	if input.StartDate != "" {
		if _, err := time.Parse("2006-01-02", input.StartDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate, expected YYYY-MM-DD"})
			return
		}
	}

	task := h.store.Create(store.CreateInput{
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate,
		Deadline:    input.Deadline,
		Priority:    priority,
		Category:    category,
	})

	c.JSON(http.StatusCreated, task)
}

// GetTasks returns the collection narrowed by the optional date and
// search query parameters, insertion order preserved.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	date := c.Query("date")
	search := c.Query("search")

	tasks := views.FilterTasks(h.store.Tasks(), date, search)

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *TaskHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, views.ComputeStats(h.store.Tasks()))
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id := c.Param("id")

	var input models.Task
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := h.store.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	input.ID = id
	h.store.Update(input)

	c.JSON(http.StatusOK, gin.H{"message": "task updated successfully"})
}

// DeleteTask removes the task; deleting an unknown id is a no-op.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	h.store.Delete(c.Param("id"))
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id := c.Param("id")

	if _, ok := h.store.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	h.store.ToggleComplete(id)
	task, _ := h.store.Get(id)

	c.JSON(http.StatusOK, task)
}
