package views

import (
	"strings"

	"day-planner/backend/internal/models"
)

// ComputeStats derives completion counts from the collection.
func ComputeStats(tasks []models.Task) models.Stats {
	completed := 0
	for _, task := range tasks {
		if task.Completed {
			completed++
		}
	}

	return models.Stats{
		Completed: completed,
		Pending:   len(tasks) - completed,
		Total:     len(tasks),
	}
}

// FilterTasks narrows the collection by calendar date and search term.
// A task with a deadline is matched against the deadline date, never
// its start date. Order is preserved; no filters returns the
// collection unchanged.
func FilterTasks(tasks []models.Task, selectedDate, searchTerm string) []models.Task {
	filtered := tasks

	if selectedDate != "" {
		matched := make([]models.Task, 0, len(filtered))
		for _, task := range filtered {
			if task.Deadline != "" {
				if strings.HasPrefix(task.Deadline, selectedDate) {
					matched = append(matched, task)
				}
			} else if task.StartDate == selectedDate {
				matched = append(matched, task)
			}
		}
		filtered = matched
	}

	if searchTerm != "" {
		term := strings.ToLower(searchTerm)
		matched := make([]models.Task, 0, len(filtered))
		for _, task := range filtered {
			if strings.Contains(strings.ToLower(task.Title), term) ||
				strings.Contains(strings.ToLower(task.Description), term) {
				matched = append(matched, task)
			}
		}
		filtered = matched
	}

	return filtered
}
