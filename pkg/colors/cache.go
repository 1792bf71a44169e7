package colors

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/breadoorr/SmartPlan/pkg/config"
)

// Google Calendar event colors 1 to 11 are handed out to plans.
const (
	firstColor = 1
	lastColor  = 11

	// CompletedColorID is graphite, used for finished tasks regardless of plan.
	CompletedColorID = "8"

	cacheFile = "plan_colors.json"
)

type PlanState struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache gives every plan a stable event color, recycling the least
// recently used color once all of them are taken.
type ColorCache struct {
	Path  string
	Plans map[string]*PlanState `json:"plans"`
	dirty bool
	now   func() time.Time
}

// DefaultPath is plan_colors.json in the smartplan config directory.
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, cacheFile), nil
}

func NewColorCache(path string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:  path,
		Plans: make(map[string]*PlanState),
		now:   time.Now,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(&c.Plans)
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		log.Printf("Error creating color cache directory: %v", err)
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		log.Printf("Error creating color cache file: %v", err)
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Plans)
	if err == nil {
		c.dirty = false
	}
	return err
}

// GetColorID returns the color of planKey, assigning one on first use.
func (c *ColorCache) GetColorID(planKey string) string {
	if state, ok := c.Plans[planKey]; ok {
		// not saved here; the caller saves once per sync
		state.LastUsed = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(planKey)
}

func (c *ColorCache) assignColor(planKey string) string {
	used := make(map[string]bool)
	for _, s := range c.Plans {
		used[s.ColorID] = true
	}

	for i := firstColor; i <= lastColor; i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			return c.claim(planKey, id)
		}
	}

	// all colors taken: evict the least recently used plan
	var oldest string
	var oldestTime time.Time
	for key, s := range c.Plans {
		if oldest == "" || s.LastUsed.Before(oldestTime) {
			oldest, oldestTime = key, s.LastUsed
		}
	}
	recycled := c.Plans[oldest].ColorID
	delete(c.Plans, oldest)
	return c.claim(planKey, recycled)
}

func (c *ColorCache) claim(planKey, colorID string) string {
	c.Plans[planKey] = &PlanState{ColorID: colorID, LastUsed: c.now()}
	c.dirty = true
	return colorID
}
