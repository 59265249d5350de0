// Package processor flattens raw Homevolt gateway documents into the
// normalized snapshot the rest of the system consumes. Everything in this
// package is pure: no I/O, no clocks beyond the caller-supplied time, and no
// mutation of the input payload.
package processor

import (
	"time"

	"github.com/homevolt/homevolt/pkg/types"
)

// Summarize flattens a raw gateway payload into a snapshot at the given
// time. Every declared metric key and attribute category is present in the
// result; missing or malformed gateway data yields nil values, never an
// error.
func Summarize(payload types.Payload, now time.Time) types.Snapshot {
	metrics := make(map[string]any, len(types.MetricKeys))
	for _, key := range types.MetricKeys {
		metrics[key] = nil
	}
	attributes := make(map[string]map[string]any, len(types.AttributeCategories))
	for _, category := range types.AttributeCategories {
		attributes[category] = map[string]any{}
	}

	status := payload.Status
	if status == nil {
		status = map[string]any{}
	}
	ems := payload.EMS
	if ems == nil {
		ems = map[string]any{}
	}
	schedule := payload.Schedule
	if schedule == nil {
		schedule = map[string]any{}
	}

	emsBlock := firstEntry(ems["ems"])
	emsData := asMap(emsBlock["ems_data"])
	emsAggregate := asMap(emsBlock["ems_aggregate"])
	emsVoltage := asMap(emsBlock["ems_voltage"])

	// System
	systemState := emsData["state_str"]
	if systemState == nil || systemState == "" {
		systemState = asMap(ems["aggregated"])["state_str"]
	}
	metrics[types.MetricSystemState] = asString(systemState)
	metrics[types.MetricWifiStatus] = asString(status["wifi_status"])
	metrics[types.MetricLTEStatus] = asString(status["lte_status"])

	attributes[types.AttrSystem]["uptime"] = status["uptime"]
	attributes[types.AttrSystem]["wifi_status"] = status["wifi_status"]
	attributes[types.AttrSystem]["lte_status"] = status["lte_status"]
	attributes[types.AttrSystem]["mqtt_status"] = status["mqtt_status"]
	attributes[types.AttrSystem]["w868_status"] = status["w868_status"]
	attributes[types.AttrSystem]["ems_status"] = status["ems_status"]
	attributes[types.AttrSystem]["warnings"] = asList(emsData["warning_str"])
	attributes[types.AttrSystem]["info"] = asList(emsData["info_str"])
	attributes[types.AttrSystem]["error"] = emsBlock["error_str"]

	// Battery
	setFloat(metrics, types.MetricBatterySOC, scaled(emsData["soc_avg"], 100))
	setFloat(metrics, types.MetricBatteryTemperature, scaled(emsData["sys_temp"], 10))
	setFloat(metrics, types.MetricBatteryPower, asFloat(emsData["power"]))

	modules := []types.BatteryModule{}
	for _, module := range asList(emsBlock["bms_data"]) {
		data := asMap(module)
		modules = append(modules, types.BatteryModule{
			SOC:             scaled(data["soc"], 100),
			CycleCount:      data["cycle_count"],
			EnergyAvailable: roundTo(kilowattHours(data["energy_avail"]), 2),
			TemperatureMin:  scaled(data["tmin"], 10),
			TemperatureMax:  scaled(data["tmax"], 10),
			State:           data["state"],
			StateStr:        data["state_str"],
			Alarm:           data["alarm"],
			AlarmFlags:      asList(data["alarm_str"]),
		})
	}
	attributes[types.AttrBattery]["modules"] = modules
	attributes[types.AttrBattery]["warning_flags"] = asList(emsData["warning_str"])
	attributes[types.AttrBattery]["info_flags"] = asList(emsData["info_str"])

	// Grid/solar/load channels use fixed indexes in the EMS sensor list.
	sensors := ems["sensors"]
	gridSensor := listAt(sensors, 0)
	solarSensor := listAt(sensors, 1)
	loadSensor := listAt(sensors, 2)

	injectPower(metrics, attributes[types.AttrGrid], gridSensor, types.MetricGridPower)
	injectPower(metrics, attributes[types.AttrSolar], solarSensor, types.MetricSolarPower)
	injectPower(metrics, attributes[types.AttrLoad], loadSensor, types.MetricLoadPower)

	setFloat(metrics, types.MetricGridEnergyImported, asFloat(gridSensor["energy_imported"]))
	setFloat(metrics, types.MetricGridEnergyExported, asFloat(gridSensor["energy_exported"]))
	setFloat(metrics, types.MetricSolarEnergyUsed, asFloat(solarSensor["energy_imported"]))
	setFloat(metrics, types.MetricSolarEnergyMade, asFloat(solarSensor["energy_exported"]))

	// Battery energy counters prefer the aggregate kWh fields; older
	// firmware only exposes the Wh counters on ems_data.
	batteryIn := asFloat(emsAggregate["imported_kwh"])
	if batteryIn == nil {
		batteryIn = kilowattHours(emsData["energy_consumed"])
	}
	setFloat(metrics, types.MetricBatteryEnergyIn, batteryIn)
	batteryOut := asFloat(emsAggregate["exported_kwh"])
	if batteryOut == nil {
		batteryOut = kilowattHours(emsData["energy_produced"])
	}
	setFloat(metrics, types.MetricBatteryEnergyOut, batteryOut)

	// Frequency and voltages
	setFloat(metrics, types.MetricFrequency, scaled(emsData["frequency"], 1000))
	setFloat(metrics, types.MetricVoltageL1, scaled(emsVoltage["l1"], 10))
	setFloat(metrics, types.MetricVoltageL2, scaled(emsVoltage["l2"], 10))
	setFloat(metrics, types.MetricVoltageL3, scaled(emsVoltage["l3"], 10))

	// Schedule
	if active := selectSchedule(schedule["schedule"], now); active != nil {
		var scheduleState any
		if entryType := asFloat(active["type"]); entryType != nil {
			if label, ok := scheduleTypeLabels[int(*entryType)]; ok {
				scheduleState = label
				metrics[types.MetricScheduleState] = label
			}
		}
		setpoint := asFloat(asMap(active["params"])["setpoint"])
		if setpoint == nil {
			metrics[types.MetricScheduleSetpoint] = float64(0)
		} else {
			metrics[types.MetricScheduleSetpoint] = *setpoint
		}
		attributes[types.AttrSchedule]["state"] = scheduleState
		attributes[types.AttrSchedule]["setpoint"] = metrics[types.MetricScheduleSetpoint]
		attributes[types.AttrSchedule]["from"] = active["from"]
		attributes[types.AttrSchedule]["to"] = active["to"]
		attributes[types.AttrSchedule]["local_mode"] = schedule["local_mode"]
	} else {
		attributes[types.AttrSchedule]["local_mode"] = schedule["local_mode"]
	}

	ahead := lookaheadSchedule(schedule["schedule"], now)
	setTime(metrics, types.MetricNextChargeStart, ahead.nextCharge)
	setTime(metrics, types.MetricNextDischargeStart, ahead.nextDischarge)
	setTime(metrics, types.MetricNextNonIdleStart, ahead.nextNonIdle)
	metrics[types.MetricNextNonIdleState] = ahead.nextNonIdleState

	// Error report
	report := payload.ErrorReport
	injectErrorSummary(metrics, attributes[types.AttrErrors], report, report != nil)

	return types.Snapshot{Metrics: metrics, Attributes: attributes}
}

func injectPower(metrics map[string]any, target map[string]any, sensor map[string]any, metricKey string) {
	setFloat(metrics, metricKey, asFloat(sensor["total_power"]))
	target["phase"] = sensor["phase"]
	target["energy_imported"] = floatOrNil(asFloat(sensor["energy_imported"]))
	target["energy_exported"] = floatOrNil(asFloat(sensor["energy_exported"]))
}

// setFloat stores the dereferenced value, keeping the metric nil-valued when
// the pointer is nil.
func setFloat(metrics map[string]any, key string, v *float64) {
	if v == nil {
		metrics[key] = nil
		return
	}
	metrics[key] = *v
}

func setTime(metrics map[string]any, key string, t *time.Time) {
	if t == nil {
		metrics[key] = nil
		return
	}
	metrics[key] = *t
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
