package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/breadoorr/SmartPlan/pkg/config"
)

const indexFile = "events.json"

// EventIndex remembers which calendar event each synced task became.
// Entries are keyed by plan key and task id, since generated ids are only
// unique within one plan.
type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// DefaultPath is events.json in the smartplan config directory.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, indexFile), nil
}

// NewEventIndex loads the index at path, starting empty if the file does not exist.
func NewEventIndex(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func Key(planKey, taskID string) string {
	return planKey + "/" + taskID
}

func (idx *EventIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return json.NewDecoder(f).Decode(&idx.Mappings)
}

// Save writes the index if anything changed since the last save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(planKey, taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[Key(planKey, taskID)]
}

func (idx *EventIndex) Set(planKey, taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	k := Key(planKey, taskID)
	if idx.Mappings[k] != eventID {
		idx.Mappings[k] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(planKey, taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	k := Key(planKey, taskID)
	if _, exists := idx.Mappings[k]; exists {
		delete(idx.Mappings, k)
		idx.dirty = true
	}
}

// Tasks returns the task id to event id mappings of one plan.
func (idx *EventIndex) Tasks(planKey string) map[string]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	prefix := Key(planKey, "")
	tasks := make(map[string]string)
	for k, eventID := range idx.Mappings {
		// nested plan keys share the prefix
		if taskID, ok := strings.CutPrefix(k, prefix); ok && !strings.Contains(taskID, "/") {
			tasks[taskID] = eventID
		}
	}
	return tasks
}
