package processor

import (
	"time"
)

// scheduleTypeLabels maps gateway schedule entry types to reported states.
var scheduleTypeLabels = map[int]string{
	1: "charge",
	2: "discharge",
	3: "idle",
	4: "grid_discharge",
	5: "grid_cycle",
}

// selectSchedule returns the first entry whose [from, to] window contains
// now, or nil when no entry is active. Entries with non-numeric bounds are
// skipped.
func selectSchedule(scheduleList any, now time.Time) map[string]any {
	timestamp := float64(now.Unix())
	for _, entry := range asList(scheduleList) {
		data := asMap(entry)
		start := asFloat(data["from"])
		end := asFloat(data["to"])
		if start == nil || end == nil {
			continue
		}
		if *start <= timestamp && timestamp <= *end {
			return data
		}
	}
	return nil
}

// scheduleLookahead holds the upcoming schedule transitions derived from the
// raw entry list.
type scheduleLookahead struct {
	nextCharge       *time.Time
	nextDischarge    *time.Time
	nextNonIdle      *time.Time
	nextNonIdleState any
}

// lookaheadSchedule scans entries that start strictly after now and reports
// the earliest upcoming charge, discharge, and non-idle windows. Entries with
// unknown types or non-numeric start times are skipped.
func lookaheadSchedule(scheduleList any, now time.Time) scheduleLookahead {
	var ahead scheduleLookahead
	timestamp := float64(now.Unix())
	for _, entry := range asList(scheduleList) {
		data := asMap(entry)
		start := asFloat(data["from"])
		if start == nil || *start <= timestamp {
			continue
		}
		entryType := asFloat(data["type"])
		if entryType == nil {
			continue
		}
		label, ok := scheduleTypeLabels[int(*entryType)]
		if !ok {
			continue
		}
		startTime := time.Unix(int64(*start), 0).UTC()
		switch label {
		case "charge":
			if ahead.nextCharge == nil || startTime.Before(*ahead.nextCharge) {
				ahead.nextCharge = &startTime
			}
		case "discharge":
			if ahead.nextDischarge == nil || startTime.Before(*ahead.nextDischarge) {
				ahead.nextDischarge = &startTime
			}
		}
		if label != "idle" {
			if ahead.nextNonIdle == nil || startTime.Before(*ahead.nextNonIdle) {
				ahead.nextNonIdle = &startTime
				ahead.nextNonIdleState = label
			}
		}
	}
	return ahead
}
