package processor

import (
	"github.com/homevolt/homevolt/pkg/types"
)

// injectErrorSummary folds the gateway error report into health metrics and
// the errors attribute category. hasReport distinguishes "endpoint
// unavailable" from "report fetched and empty": without a report the health
// state is unknown rather than ok.
func injectErrorSummary(metrics map[string]any, target map[string]any, report []any, hasReport bool) {
	activeItems := []map[string]any{}
	subsystems := map[string]map[string]any{}

	warningCount := 0
	errorCount := 0

	for _, item := range report {
		entry := asMap(item)
		status, _ := entry["activated"].(string)
		if status != "warning" && status != "error" {
			continue
		}
		if status == "warning" {
			warningCount++
		} else {
			errorCount++
		}
		subsystem := "unknown"
		if s := asString(entry["sub_system_name"]); s != nil && s != "" {
			subsystem = s.(string)
		}
		activeItem := map[string]any{
			"sub_system_name": subsystem,
			"error_name":      entry["error_name"],
			"activated":       status,
			"message":         entry["message"],
			"details":         asList(entry["details"]),
		}
		activeItems = append(activeItems, activeItem)
		bucket, ok := subsystems[subsystem]
		if !ok {
			bucket = map[string]any{"active_items": []map[string]any{}}
			subsystems[subsystem] = bucket
		}
		bucket["active_items"] = append(bucket["active_items"].([]map[string]any), activeItem)
	}

	healthState := "ok"
	switch {
	case !hasReport:
		healthState = "unknown"
	case errorCount > 0:
		healthState = "error"
	case warningCount > 0:
		healthState = "warning"
	}

	subsystemStatus := map[string]bool{}
	for name, data := range subsystems {
		subsystemStatus[name] = len(data["active_items"].([]map[string]any)) > 0
	}

	metrics[types.MetricHealthState] = healthState
	metrics[types.MetricWarningCount] = warningCount
	metrics[types.MetricErrorCount] = errorCount
	metrics[types.MetricSubsystemStatus] = subsystemStatus

	target["warning_count"] = warningCount
	target["error_count"] = errorCount
	target["active_items"] = activeItems
	target["subsystems"] = subsystems
}
