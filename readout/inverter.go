package readout

import (
	"fmt"

	"github.com/robertof/go-victron-exporter/bitreader"
)

type InverterState struct {
	Mode              Mode        `json:"mode"`
	AlarmReason       AlarmReason `json:"alarm_reason"`
	BatteryVoltageV   Value       `json:"battery_voltage_v"`
	AcApparentPowerVA Value       `json:"ac_apparent_power_va"`
	AcVoltageV        Value       `json:"ac_voltage_v"`
	AcCurrentA        Value       `json:"ac_current_a"`
}

func ParseInverter(payload []byte) (s InverterState, err error) {
	r := bitreader.New(payload)

	m, err := code(&r, "mode", 8)
	if err != nil {
		return InverterState{}, err
	}

	if s.Mode, err = ParseMode(m); err != nil {
		return InverterState{}, err
	}

	if s.AlarmReason, err = readAlarmReason(&r); err != nil {
		return InverterState{}, err
	}

	if s.BatteryVoltageV, err = signedField(&r, "battery voltage", 16, 100); err != nil {
		return InverterState{}, err
	}

	if s.AcApparentPowerVA, err = unsignedField(&r, "ac apparent power", 16, 1, 0); err != nil {
		return InverterState{}, err
	}

	if s.AcVoltageV, err = unsignedField(&r, "ac voltage", 15, 100, 0); err != nil {
		return InverterState{}, err
	}

	if s.AcCurrentA, err = unsignedField(&r, "ac current", 11, 10, 0); err != nil {
		return InverterState{}, err
	}

	return s, nil
}

func (s InverterState) RecordType() RecordType {
	return RecordTypeInverter
}

func (s InverterState) String() string {
	return fmt.Sprintf(
		"Inverter[Mode=%v,Alarms=%v,BatteryVoltage=%vV,AcApparentPower=%vVA,AcVoltage=%vV,AcCurrent=%vA]",
		s.Mode, s.AlarmReason, s.BatteryVoltageV, s.AcApparentPowerVA, s.AcVoltageV, s.AcCurrentA)
}
