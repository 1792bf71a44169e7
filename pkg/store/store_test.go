package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/breadoorr/SmartPlan/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "smartplan.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Set up hosting", StartDate: "2024-01-01", EndDate: "2024-01-03"},
		{ID: "2", Title: "Pick a theme", StartDate: "2024-01-04", EndDate: "2024-01-05", StartTime: "2024-01-04T10:00:00Z", EndTime: "2024-01-04T12:00:00Z"},
	}
}

func TestSaveAndLoadPlan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.SavePlan(ctx, model.DefaultPlanKey, sampleTasks())
	if err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}

	plan, err := s.LoadPlan(ctx, model.DefaultPlanKey)
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(plan.Tasks))
	}
	if plan.Tasks[1].StartTime != "2024-01-04T10:00:00Z" {
		t.Errorf("Expected start time preserved, got %q", plan.Tasks[1].StartTime)
	}
	if !plan.UpdatedAt.Equal(saved.UpdatedAt) {
		t.Errorf("Expected UpdatedAt %v, got %v", saved.UpdatedAt, plan.UpdatedAt)
	}
}

func TestSavePlanReplacesBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlan(ctx, "k", sampleTasks()); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}
	replacement := []model.Task{{ID: "9", Title: "Write first post", StartDate: "2024-02-01", EndDate: "2024-02-02"}}
	if _, err := s.SavePlan(ctx, "k", replacement); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	plan, err := s.LoadPlan(ctx, "k")
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].ID != "9" {
		t.Errorf("Expected batch to be replaced, got %+v", plan.Tasks)
	}
}

func TestSavePlanNilTasks(t *testing.T) {
	s := openTestStore(t)
	plan, err := s.SavePlan(context.Background(), "empty", nil)
	if err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}
	if plan.Tasks == nil || len(plan.Tasks) != 0 {
		t.Errorf("Expected empty non-nil tasks, got %#v", plan.Tasks)
	}
}

func TestLoadPlanNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadPlan(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetCompleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.SavePlan(ctx, "k", sampleTasks()); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	plan, err := s.SetCompleted(ctx, "k", "2", true)
	if err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	if !plan.Tasks[1].Completed || plan.Tasks[0].Completed {
		t.Errorf("Expected only task 2 completed, got %+v", plan.Tasks)
	}

	reloaded, _ := s.LoadPlan(ctx, "k")
	if !reloaded.Tasks[1].Completed {
		t.Error("Expected completion to persist")
	}

	if _, err := s.SetCompleted(ctx, "k", "nope", true); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.SetCompleted(ctx, "missing", "1", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReplaceTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.SavePlan(ctx, "k", sampleTasks()); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	edited := model.Task{ID: "1", Title: "Set up VPS hosting", StartDate: "2024-01-02", EndDate: "2024-01-06"}
	plan, err := s.ReplaceTask(ctx, "k", edited)
	if err != nil {
		t.Fatalf("ReplaceTask failed: %v", err)
	}
	if plan.Tasks[0] != edited {
		t.Errorf("Expected %+v, got %+v", edited, plan.Tasks[0])
	}
	if plan.Tasks[1].ID != "2" {
		t.Errorf("Other tasks must be untouched, got %+v", plan.Tasks[1])
	}
}

func TestKeysMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"old", "new"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		if _, err := s.SavePlan(ctx, key, sampleTasks()); err != nil {
			t.Fatalf("SavePlan(%s) failed: %v", key, err)
		}
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "new" || keys[1] != "old" {
		t.Errorf("Expected [new old], got %v", keys)
	}
}

func TestOpenMemoryAndReopen(t *testing.T) {
	mem, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer mem.Close()
	if _, err := mem.SavePlan(context.Background(), "k", sampleTasks()); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plans.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.SavePlan(context.Background(), "k", sampleTasks()); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}
	s.Close()

	// migrations are not reapplied
	s, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Expected path %s, got %s", path, s.Path())
	}
	if _, err := s.LoadPlan(context.Background(), "k"); err != nil {
		t.Errorf("Expected plan to survive reopen, got %v", err)
	}
}
