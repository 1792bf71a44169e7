// Package timeline computes the vertical layout of tasks in the day view.
package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/breadoorr/SmartPlan/pkg/model"
)

const (
	DefaultSlotHeight = 40.0
	DefaultMinHeight  = 20.0
	// MinDurationMinutes keeps short tasks legible.
	MinDurationMinutes = 30
)

// Options holds the pixel geometry: SlotHeight per hour, MinHeight per block.
type Options struct {
	SlotHeight float64
	MinHeight  float64
}

func (o Options) withDefaults() Options {
	if o.SlotHeight <= 0 {
		o.SlotHeight = DefaultSlotHeight
	}
	if o.MinHeight <= 0 {
		o.MinHeight = DefaultMinHeight
	}
	return o
}

// Block is the rendered position of one task.
type Block struct {
	TaskID          string  `json:"taskId"`
	Title           string  `json:"title"`
	Start           string  `json:"start"`
	End             string  `json:"end"`
	StartMinutes    int     `json:"startMinutes"`
	DurationMinutes int     `json:"durationMinutes"`
	TopPixels       float64 `json:"top"`
	HeightPixels    float64 `json:"height"`
	Completed       bool    `json:"completed"`
}

// Clock extracts HH:MM from a datetime string such as 2024-01-01T09:30:00.000Z,
// or accepts a bare HH:MM. Anything else yields fallback.
func Clock(value, fallback string) string {
	s := value
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[i+1:]
	}
	if len(s) < 5 {
		return fallback
	}
	s = s[:5]
	if _, ok := parseClock(s); !ok {
		return fallback
	}
	return s
}

// ClockMinutes returns minutes since midnight of Clock(value, fallback).
func ClockMinutes(value, fallback string) int {
	m, _ := parseClock(Clock(value, fallback))
	return m
}

func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Layout positions one task. Missing or malformed times fall back to 09:00-10:00.
// Overlapping tasks are not rearranged.
func Layout(task model.Task, opts Options) Block {
	opts = opts.withDefaults()

	start := Clock(task.StartTime, model.DefaultStartClock)
	end := Clock(task.EndTime, model.DefaultEndClock)
	startMinutes, _ := parseClock(start)
	endMinutes, _ := parseClock(end)

	duration := endMinutes - startMinutes
	if duration < MinDurationMinutes {
		duration = MinDurationMinutes
	}

	height := float64(duration) / 60 * opts.SlotHeight
	if height < opts.MinHeight {
		height = opts.MinHeight
	}

	return Block{
		TaskID:          task.ID,
		Title:           task.Title,
		Start:           start,
		End:             end,
		StartMinutes:    startMinutes,
		DurationMinutes: duration,
		TopPixels:       float64(startMinutes) / 60 * opts.SlotHeight,
		HeightPixels:    height,
		Completed:       task.Completed,
	}
}

// ForDay lays out the tasks whose startDate falls on day, in input order.
// Tasks with an unparsable startDate are skipped.
func ForDay(tasks []model.Task, day time.Time, opts Options) []Block {
	want := day.Format(model.DateLayout)
	blocks := make([]Block, 0)
	for _, task := range tasks {
		start, err := task.Start()
		if err != nil || start.Format(model.DateLayout) != want {
			continue
		}
		blocks = append(blocks, Layout(task, opts))
	}
	return blocks
}

// HourLabels returns the 24 slot labels: 12a, 1a ... 11a, 12p, 1p ... 11p.
func HourLabels() []string {
	labels := make([]string, 24)
	for h := range labels {
		switch {
		case h == 0:
			labels[h] = "12a"
		case h < 12:
			labels[h] = fmt.Sprintf("%da", h)
		case h == 12:
			labels[h] = "12p"
		default:
			labels[h] = fmt.Sprintf("%dp", h-12)
		}
	}
	return labels
}
