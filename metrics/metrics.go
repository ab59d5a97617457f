package metrics

import (
  "strconv"
  "time"

  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-victron-exporter/collector/model"
  "github.com/robertof/go-victron-exporter/readout"
)

const kelvinOffset = 273.15

func newDesc(name, help string, labels ...string) *prometheus.Desc {
  return prometheus.NewDesc(name, help, append([]string{"name"}, labels...), nil)
}

var (
  descDeviceInfo = newDesc("victron_device_info",
    "Record type reported by the device. Always 1.", "type")
  descRSSI = newDesc("victron_rssi_dbm",
    "Signal strength of the last advertisement.")
  descMode = newDesc("victron_device_mode_info",
    "Operation mode of the device. Always 1.", "mode")
  descErrorState = newDesc("victron_device_error_state",
    "Charger error code, 0 when there is no error.")
  descAlarm = newDesc("victron_alarm_active",
    "Alarms raised by the device, one series per active alarm. Always 1.", "alarm")
  descAlarmNotification = newDesc("victron_alarm_notification",
    "VE.Bus alarm notification. 0 = none, 1 = warning, 2 = alarm.")

  descBatteryVoltage = newDesc("victron_battery_voltage_volts",
    "Battery voltage.", "output")
  descBatteryCurrent = newDesc("victron_battery_current_amperes",
    "Battery current, negative when discharging.", "output")
  descStateOfCharge = newDesc("victron_state_of_charge_ratio",
    "Battery state of charge.")
  descTimeToGo = newDesc("victron_time_to_go_minutes",
    "Estimated time until the battery is empty.")
  descConsumed = newDesc("victron_consumed_amp_hours",
    "Charge consumed from the battery, negative by convention.")
  descTemperature = newDesc("victron_temperature_celsius",
    "Temperature reported by the device.", "sensor")
  descAuxVoltage = newDesc("victron_aux_voltage_volts",
    "Voltage measured on the auxiliary input.", "kind")

  descPVPower = newDesc("victron_pv_power_watts",
    "Solar array power.")
  descYieldToday = newDesc("victron_yield_today_kwh",
    "Energy harvested today.")
  descLoadCurrent = newDesc("victron_load_current_amperes",
    "Current drawn from the load output.")

  descAcCurrent = newDesc("victron_ac_current_amperes",
    "AC current.")
  descAcVoltage = newDesc("victron_ac_voltage_volts",
    "AC output voltage.")
  descAcApparentPower = newDesc("victron_ac_apparent_power_va",
    "AC output apparent power.")
  descAcInPower = newDesc("victron_ac_in_power_watts",
    "Power drawn from the AC input.")
  descAcOutPower = newDesc("victron_ac_out_power_watts",
    "Power delivered on the AC output.")
  descAcInState = newDesc("victron_ac_in_state_info",
    "Active AC input. Always 1.", "state")

  descUptime = newDesc("victron_uptime_seconds",
    "Uptime reported by test records.")
)

type CollectFunc func() model.Samples

type collector struct {
  CollectFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  out := c.CollectFunc()

  if out == nil {
    panic("collector got empty data!")
  }

  for device, sample := range out {
    if sample.State == nil {
      continue
    }

    e := emitter{ch: ch, ts: sample.Time, name: device.Name()}

    e.gauge(descDeviceInfo, 1, sample.State.RecordType().String())
    e.gauge(descRSSI, float64(sample.RSSI))

    collectState(e, sample.State)
  }
}

// emitter writes gauges for a single device sample.
type emitter struct {
  ch chan<- prometheus.Metric
  ts time.Time
  name string
}

func (e emitter) gauge(desc *prometheus.Desc, v float64, labels ...string) {
  m := prometheus.MustNewConstMetric(
    desc,
    prometheus.GaugeValue,
    v,
    append([]string{e.name}, labels...)...,
  )

  e.ch <- prometheus.NewMetricWithTimestamp(e.ts, m)
}

// value skips absent readings.
func (e emitter) value(desc *prometheus.Desc, v readout.Value, labels ...string) {
  if v.Valid {
    e.gauge(desc, v.Float, labels...)
  }
}

func (e emitter) ratio(desc *prometheus.Desc, pct readout.Value) {
  if pct.Valid {
    e.gauge(desc, pct.Float / 100)
  }
}

func (e emitter) mode(m readout.Mode) {
  e.gauge(descMode, 1, m.String())
}

func (e emitter) alarms(a readout.AlarmReason) {
  for _, alarm := range a.Alarms() {
    e.gauge(descAlarm, 1, alarm)
  }
}

func collectState(e emitter, state readout.DeviceState) {
  const single = "1"

  switch s := state.(type) {
  case readout.TestRecordState:
    e.gauge(descUptime, float64(s.UptimeSeconds))
    e.gauge(descTemperature, float64(s.TemperatureCelsius), "device")

  case readout.SolarChargerState:
    e.mode(s.Mode)
    e.gauge(descErrorState, float64(s.ErrorState))
    e.value(descBatteryVoltage, s.BatteryVoltageV, single)
    e.value(descBatteryCurrent, s.BatteryCurrentA, single)
    e.value(descYieldToday, s.YieldTodayKWh)
    e.value(descPVPower, s.PVPowerW)
    e.value(descLoadCurrent, s.LoadCurrentA)

  case readout.BatteryMonitorState:
    e.alarms(s.AlarmReason)
    e.value(descTimeToGo, s.TimeToGoMinutes)
    e.value(descBatteryVoltage, s.BatteryVoltageV, single)
    e.value(descBatteryCurrent, s.BatteryCurrentA, single)
    e.value(descConsumed, s.ConsumedAh)
    e.ratio(descStateOfCharge, s.StateOfChargePct)

    switch s.AuxInput.Kind {
    case readout.AuxInputVoltage, readout.AuxInputMidVoltage:
      e.gauge(descAuxVoltage, s.AuxInput.Value, s.AuxInput.Kind.String())
    case readout.AuxInputTemperature:
      e.gauge(descTemperature, s.AuxInput.Value - kelvinOffset, "aux")
    }

  case readout.InverterState:
    e.mode(s.Mode)
    e.alarms(s.AlarmReason)
    e.value(descBatteryVoltage, s.BatteryVoltageV, single)
    e.value(descAcApparentPower, s.AcApparentPowerVA)
    e.value(descAcVoltage, s.AcVoltageV)
    e.value(descAcCurrent, s.AcCurrentA)

  case readout.AcChargerState:
    e.mode(s.Mode)
    e.gauge(descErrorState, float64(s.ErrorState))

    for i, output := range s.Outputs {
      e.value(descBatteryVoltage, output.BatteryVoltageV, strconv.Itoa(i + 1))
      e.value(descBatteryCurrent, output.BatteryCurrentA, strconv.Itoa(i + 1))
    }

    e.value(descTemperature, s.TemperatureCelsius, "device")
    e.value(descAcCurrent, s.AcCurrentA)

  case readout.VeBusState:
    e.mode(s.Mode)
    e.gauge(descErrorState, float64(s.ErrorState))
    e.gauge(descAlarmNotification, float64(s.Alarm))
    e.gauge(descAcInState, 1, s.AcInState.String())
    e.value(descBatteryVoltage, s.BatteryVoltageV, single)
    e.value(descBatteryCurrent, s.BatteryCurrentA, single)
    e.value(descAcInPower, s.AcInPowerW)
    e.value(descAcOutPower, s.AcOutPowerW)
    e.value(descTemperature, s.BatteryTemperatureCelsius, "battery")
    e.ratio(descStateOfCharge, s.StateOfChargePct)
  }
}

func RegisterCollector(f CollectFunc, reg prometheus.Registerer) {
  c := &collector{f}

  reg.MustRegister(c)
}
