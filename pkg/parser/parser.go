// Package parser extracts task lists from free-text model responses.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/breadoorr/SmartPlan/pkg/model"
)

var (
	// ErrTaskParsingFailed means the response held no extractable JSON task array.
	ErrTaskParsingFailed = errors.New("failed to parse tasks from model response")
	// ErrInvalidTask means the array parsed but a task breaks the Task schema.
	ErrInvalidTask = errors.New("invalid task")
)

// arrayPattern matches from the first '[' to the last ']' so that prose or
// markdown fences around the array are ignored.
var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ParseTasks parses the JSON task array embedded in raw. When no bracketed
// span exists the whole text is parsed. Order is preserved.
func ParseTasks(raw string) ([]model.Task, error) {
	candidate := raw
	if match := arrayPattern.FindString(raw); match != "" {
		candidate = match
	}

	var tasks []model.Task
	if err := json.Unmarshal([]byte(candidate), &tasks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskParsingFailed, err)
	}
	if tasks == nil {
		// a literal "null" decodes without error
		return nil, fmt.Errorf("%w: no task array", ErrTaskParsingFailed)
	}
	return tasks, nil
}

// Normalize trims text fields and assigns an id to tasks the model left without one.
func Normalize(tasks []model.Task) []model.Task {
	for i := range tasks {
		t := &tasks[i]
		t.ID = strings.TrimSpace(t.ID)
		t.Title = strings.TrimSpace(t.Title)
		t.StartDate = strings.TrimSpace(t.StartDate)
		t.EndDate = strings.TrimSpace(t.EndDate)
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
	}
	return tasks
}

// Validate checks every task against the Task schema: non-empty id and title,
// YYYY-MM-DD dates with startDate <= endDate, and ids unique in the batch.
func Validate(tasks []model.Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: empty task list", ErrInvalidTask)
	}

	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task %d has no id", ErrInvalidTask, i)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidTask, t.ID)
		}
		seen[t.ID] = true

		if t.Title == "" {
			return fmt.Errorf("%w: task %q has no title", ErrInvalidTask, t.ID)
		}
		start, err := t.Start()
		if err != nil {
			return fmt.Errorf("%w: task %q startDate %q: %v", ErrInvalidTask, t.ID, t.StartDate, err)
		}
		end, err := t.End()
		if err != nil {
			return fmt.Errorf("%w: task %q endDate %q: %v", ErrInvalidTask, t.ID, t.EndDate, err)
		}
		if end.Before(start) {
			return fmt.Errorf("%w: task %q ends (%s) before it starts (%s)", ErrInvalidTask, t.ID, t.EndDate, t.StartDate)
		}
	}
	return nil
}
