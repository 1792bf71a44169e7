// Package overdue remembers synced pending tasks so their calendar events can
// be flagged once the end date passes, without re-syncing the whole plan.
package overdue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/breadoorr/SmartPlan/pkg/config"
	"github.com/breadoorr/SmartPlan/pkg/model"
)

const tableFile = "pending_tasks.json"

type Entry struct {
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Due     time.Time `json:"due"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// DefaultPath is pending_tasks.json in the smartplan config directory.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tableFile), nil
}

func NewTable(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string]Entry),
	}

	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(t)
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

// DueAfter is the instant a task becomes overdue: midnight UTC after its end date.
func DueAfter(task model.Task) (time.Time, error) {
	end, err := task.End()
	if err != nil {
		return time.Time{}, err
	}
	return end.AddDate(0, 0, 1), nil
}

// Track records a synced task. Completed tasks, tasks already overdue at now
// and tasks without a valid end date are dropped from the table.
func (t *Table) Track(key, eventID string, task model.Task, now time.Time) {
	due, err := DueAfter(task)
	if err != nil || task.Completed || !due.After(now) {
		t.Remove(key)
		return
	}

	entry := Entry{EventID: eventID, Title: task.Title, Due: due}
	if old, exists := t.Entries[key]; !exists || old != entry {
		t.Entries[key] = entry
		t.dirty = true
	}
}

func (t *Table) Remove(key string) {
	if _, exists := t.Entries[key]; exists {
		delete(t.Entries, key)
		t.dirty = true
	}
}

// Sweep returns the entries that have become overdue and removes them.
func (t *Table) Sweep(now time.Time) []Entry {
	var swept []Entry
	for key, entry := range t.Entries {
		if !entry.Due.After(now) {
			swept = append(swept, entry)
			delete(t.Entries, key)
			t.dirty = true
		}
	}
	return swept
}
