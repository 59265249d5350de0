package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/homevolt/homevolt/pkg/monitor"
	"github.com/homevolt/homevolt/pkg/types"
)

// Collector implements prometheus.Collector over the monitor's latest
// snapshot. It never talks to the gateway itself, so a scrape is cheap and a
// down gateway shows up as scrape_success=0 with the last good values gone.
type Collector struct {
	monitor *monitor.Monitor

	batterySOC         *prometheus.Desc
	batteryPower       *prometheus.Desc
	batteryTemperature *prometheus.Desc
	batteryEnergyIn    *prometheus.Desc
	batteryEnergyOut   *prometheus.Desc
	gridPower          *prometheus.Desc
	solarPower         *prometheus.Desc
	loadPower          *prometheus.Desc
	gridEnergyIn       *prometheus.Desc
	gridEnergyOut      *prometheus.Desc
	solarEnergyMade    *prometheus.Desc
	solarEnergyUsed    *prometheus.Desc
	frequency          *prometheus.Desc
	voltage            *prometheus.Desc
	scheduleSetpoint   *prometheus.Desc
	warningCount       *prometheus.Desc
	errorCount         *prometheus.Desc
	moduleSOC          *prometheus.Desc
	moduleEnergy       *prometheus.Desc
	soh                *prometheus.Desc
	sohStdDev          *prometheus.Desc
	baseline           *prometheus.Desc
	capacitySample     *prometheus.Desc
	info               *prometheus.Desc
	scrapeSuccess      *prometheus.Desc
}

// NewCollector creates a collector reading from the given monitor.
func NewCollector(m *monitor.Monitor) *Collector {
	return &Collector{
		monitor: m,
		batterySOC: prometheus.NewDesc(
			"homevolt_battery_soc_percent",
			"Average battery state of charge in percent",
			nil, nil,
		),
		batteryPower: prometheus.NewDesc(
			"homevolt_battery_power_watts",
			"Battery power in watts (positive=charging)",
			nil, nil,
		),
		batteryTemperature: prometheus.NewDesc(
			"homevolt_battery_temperature_celsius",
			"Battery system temperature in degrees Celsius",
			nil, nil,
		),
		batteryEnergyIn: prometheus.NewDesc(
			"homevolt_battery_energy_imported_kwh",
			"Lifetime energy charged into the battery in kilowatt-hours",
			nil, nil,
		),
		batteryEnergyOut: prometheus.NewDesc(
			"homevolt_battery_energy_exported_kwh",
			"Lifetime energy discharged from the battery in kilowatt-hours",
			nil, nil,
		),
		gridPower: prometheus.NewDesc(
			"homevolt_grid_power_watts",
			"Grid power in watts (positive=importing)",
			nil, nil,
		),
		solarPower: prometheus.NewDesc(
			"homevolt_solar_power_watts",
			"Solar production in watts",
			nil, nil,
		),
		loadPower: prometheus.NewDesc(
			"homevolt_load_power_watts",
			"House load in watts",
			nil, nil,
		),
		gridEnergyIn: prometheus.NewDesc(
			"homevolt_grid_energy_imported_kwh",
			"Lifetime energy imported from the grid in kilowatt-hours",
			nil, nil,
		),
		gridEnergyOut: prometheus.NewDesc(
			"homevolt_grid_energy_exported_kwh",
			"Lifetime energy exported to the grid in kilowatt-hours",
			nil, nil,
		),
		solarEnergyMade: prometheus.NewDesc(
			"homevolt_solar_energy_produced_kwh",
			"Lifetime solar production in kilowatt-hours",
			nil, nil,
		),
		solarEnergyUsed: prometheus.NewDesc(
			"homevolt_solar_energy_consumed_kwh",
			"Lifetime energy consumed by the solar installation in kilowatt-hours",
			nil, nil,
		),
		frequency: prometheus.NewDesc(
			"homevolt_grid_frequency_hertz",
			"Grid frequency in hertz",
			nil, nil,
		),
		voltage: prometheus.NewDesc(
			"homevolt_grid_voltage_volts",
			"Grid voltage in volts per phase",
			[]string{"phase"}, nil,
		),
		scheduleSetpoint: prometheus.NewDesc(
			"homevolt_schedule_setpoint_watts",
			"Setpoint of the active schedule entry in watts",
			nil, nil,
		),
		warningCount: prometheus.NewDesc(
			"homevolt_warning_count",
			"Number of active warnings",
			nil, nil,
		),
		errorCount: prometheus.NewDesc(
			"homevolt_error_count",
			"Number of active errors",
			nil, nil,
		),
		moduleSOC: prometheus.NewDesc(
			"homevolt_module_soc_percent",
			"Battery pack state of charge in percent",
			[]string{"module"}, nil,
		),
		moduleEnergy: prometheus.NewDesc(
			"homevolt_module_energy_available_kwh",
			"Battery pack available energy in kilowatt-hours",
			[]string{"module"}, nil,
		),
		soh: prometheus.NewDesc(
			"homevolt_soh_percent",
			"Estimated state of health in percent",
			[]string{"entity"}, nil,
		),
		sohStdDev: prometheus.NewDesc(
			"homevolt_soh_stddev_percent",
			"Standard deviation of the smoothed state of health estimate",
			[]string{"entity"}, nil,
		),
		baseline: prometheus.NewDesc(
			"homevolt_capacity_baseline_kwh",
			"Capacity baseline used for the state of health estimate in kilowatt-hours",
			[]string{"entity"}, nil,
		),
		capacitySample: prometheus.NewDesc(
			"homevolt_capacity_sample_kwh",
			"Most recent full-charge capacity sample in kilowatt-hours",
			[]string{"entity"}, nil,
		),
		info: prometheus.NewDesc(
			"homevolt_info",
			"Homevolt system state information",
			[]string{"system_state", "schedule_state", "health_state"}, nil,
		),
		scrapeSuccess: prometheus.NewDesc(
			"homevolt_scrape_success",
			"Whether the last gateway poll was successful",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.batterySOC
	ch <- c.batteryPower
	ch <- c.batteryTemperature
	ch <- c.batteryEnergyIn
	ch <- c.batteryEnergyOut
	ch <- c.gridPower
	ch <- c.solarPower
	ch <- c.loadPower
	ch <- c.gridEnergyIn
	ch <- c.gridEnergyOut
	ch <- c.solarEnergyMade
	ch <- c.solarEnergyUsed
	ch <- c.frequency
	ch <- c.voltage
	ch <- c.scheduleSetpoint
	ch <- c.warningCount
	ch <- c.errorCount
	ch <- c.moduleSOC
	ch <- c.moduleEnergy
	ch <- c.soh
	ch <- c.sohStdDev
	ch <- c.baseline
	ch <- c.capacitySample
	ch <- c.info
	ch <- c.scrapeSuccess
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot, _, lastErr := c.monitor.Current()

	success := 0.0
	if snapshot != nil && lastErr == nil {
		success = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, success)
	if snapshot == nil {
		return
	}

	emit := func(desc *prometheus.Desc, valueType prometheus.ValueType, v *float64, labels ...string) {
		if v == nil {
			return
		}
		ch <- prometheus.MustNewConstMetric(desc, valueType, *v, labels...)
	}

	emit(c.batterySOC, prometheus.GaugeValue, snapshot.Float(types.MetricBatterySOC))
	emit(c.batteryPower, prometheus.GaugeValue, snapshot.Float(types.MetricBatteryPower))
	emit(c.batteryTemperature, prometheus.GaugeValue, snapshot.Float(types.MetricBatteryTemperature))
	emit(c.batteryEnergyIn, prometheus.CounterValue, snapshot.Float(types.MetricBatteryEnergyIn))
	emit(c.batteryEnergyOut, prometheus.CounterValue, snapshot.Float(types.MetricBatteryEnergyOut))
	emit(c.gridPower, prometheus.GaugeValue, snapshot.Float(types.MetricGridPower))
	emit(c.solarPower, prometheus.GaugeValue, snapshot.Float(types.MetricSolarPower))
	emit(c.loadPower, prometheus.GaugeValue, snapshot.Float(types.MetricLoadPower))
	emit(c.gridEnergyIn, prometheus.CounterValue, snapshot.Float(types.MetricGridEnergyImported))
	emit(c.gridEnergyOut, prometheus.CounterValue, snapshot.Float(types.MetricGridEnergyExported))
	emit(c.solarEnergyMade, prometheus.CounterValue, snapshot.Float(types.MetricSolarEnergyMade))
	emit(c.solarEnergyUsed, prometheus.CounterValue, snapshot.Float(types.MetricSolarEnergyUsed))
	emit(c.frequency, prometheus.GaugeValue, snapshot.Float(types.MetricFrequency))
	emit(c.voltage, prometheus.GaugeValue, snapshot.Float(types.MetricVoltageL1), "l1")
	emit(c.voltage, prometheus.GaugeValue, snapshot.Float(types.MetricVoltageL2), "l2")
	emit(c.voltage, prometheus.GaugeValue, snapshot.Float(types.MetricVoltageL3), "l3")
	emit(c.scheduleSetpoint, prometheus.GaugeValue, snapshot.Float(types.MetricScheduleSetpoint))
	emit(c.warningCount, prometheus.GaugeValue, snapshot.Float(types.MetricWarningCount))
	emit(c.errorCount, prometheus.GaugeValue, snapshot.Float(types.MetricErrorCount))

	for i, module := range snapshot.BatteryModules() {
		label := strconv.Itoa(i + 1)
		emit(c.moduleSOC, prometheus.GaugeValue, module.SOC, label)
		emit(c.moduleEnergy, prometheus.GaugeValue, module.EnergyAvailable, label)
	}

	for _, estimate := range c.monitor.Estimates() {
		emit(c.soh, prometheus.GaugeValue, estimate.SOH, estimate.Entity)
		emit(c.sohStdDev, prometheus.GaugeValue, estimate.SOHStdDev, estimate.Entity)
		emit(c.baseline, prometheus.GaugeValue, estimate.Baseline, estimate.Entity)
		emit(c.capacitySample, prometheus.GaugeValue, estimate.LastSample, estimate.Entity)
	}

	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1,
		labelOrUnknown(snapshot.String(types.MetricSystemState)),
		labelOrUnknown(snapshot.String(types.MetricScheduleState)),
		labelOrUnknown(snapshot.String(types.MetricHealthState)),
	)
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
