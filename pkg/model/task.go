package model

import "time"

const (
	// DateLayout is the wire format of StartDate and EndDate.
	DateLayout = "2006-01-02"

	DefaultStartClock = "09:00"
	DefaultEndClock   = "10:00"

	// DefaultPlanKey matches the key the browser client caches its batch under.
	DefaultPlanKey = "smartplan-tasks"
)

// Task is a single roadmap item as exchanged with clients.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	// StartTime and EndTime are ISO datetimes set by the client when a task is edited.
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Completed bool   `json:"completed"`
}

// Start returns the parsed StartDate.
func (t Task) Start() (time.Time, error) {
	return time.Parse(DateLayout, t.StartDate)
}

// End returns the parsed EndDate.
func (t Task) End() (time.Time, error) {
	return time.Parse(DateLayout, t.EndDate)
}

// Plan is one batch of tasks stored wholesale under a key.
type Plan struct {
	Key       string    `json:"key"`
	Tasks     []Task    `json:"tasks"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Find returns the index of the task with the given id, or -1.
func (p *Plan) Find(taskID string) int {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}
