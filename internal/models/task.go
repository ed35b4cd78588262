package models

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type Category string

const (
	CategoryLearning Category = "Learning"
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
)

type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// StartDate is the calendar date the task belongs to, "YYYY-MM-DD".
	StartDate string `json:"startDate"`
	// Deadline is optional, "YYYY-MM-DD" or "YYYY-MM-DD HH:MM".
	Deadline  string   `json:"deadline,omitempty"`
	Completed bool     `json:"completed"`
	Priority  Priority `json:"priority"`
	Category  Category `json:"category"`
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryLearning, CategoryWork, CategoryPersonal:
		return true
	}
	return false
}

type Stats struct {
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Total     int `json:"total"`
}
