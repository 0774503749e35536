package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobsweep/internal/config"
)

// Trigger computes when the next run is due.
type Trigger interface {
	// Next returns the first fire time strictly after t.
	Next(t time.Time) time.Time
	String() string
}

// Every fires at a fixed interval after the previous fire.
type Every struct {
	Interval time.Duration
}

func (e Every) Next(t time.Time) time.Time { return t.Add(e.Interval) }
func (e Every) String() string             { return "every " + e.Interval.String() }

// Daily fires once a day at a local wall-clock time.
type Daily struct {
	Hour, Minute int
}

func (d Daily) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string { return fmt.Sprintf("daily at %02d:%02d", d.Hour, d.Minute) }

// Weekly fires once a week on Weekday at a local wall-clock time.
type Weekly struct {
	Weekday      time.Weekday
	Hour, Minute int
}

func (w Weekly) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), w.Hour, w.Minute, 0, 0, t.Location())
	days := (int(w.Weekday) - int(t.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w Weekly) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", w.Weekday, w.Hour, w.Minute)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// NewTrigger builds the trigger described by cfg.
func NewTrigger(cfg config.ScheduleConfig) (Trigger, error) {
	switch cfg.Frequency {
	case "every_30_minutes":
		return Every{Interval: 30 * time.Minute}, nil
	case "hourly":
		return Every{Interval: time.Hour}, nil
	case "interval":
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive")
		}
		return Every{Interval: cfg.Interval}, nil
	case "daily", "weekly":
		at, err := time.Parse("15:04", cfg.At)
		if err != nil {
			return nil, fmt.Errorf("schedule time %q: %w", cfg.At, err)
		}
		if cfg.Frequency == "daily" {
			return Daily{Hour: at.Hour(), Minute: at.Minute()}, nil
		}
		wd, ok := weekdays[strings.ToLower(cfg.Weekday)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", cfg.Weekday)
		}
		return Weekly{Weekday: wd, Hour: at.Hour(), Minute: at.Minute()}, nil
	default:
		return nil, fmt.Errorf("unknown schedule frequency %q", cfg.Frequency)
	}
}
