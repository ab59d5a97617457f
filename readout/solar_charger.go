package readout

import (
	"fmt"

	"github.com/robertof/go-victron-exporter/bitreader"
)

type SolarChargerState struct {
	Mode            Mode       `json:"mode"`
	ErrorState      ErrorState `json:"error_state"`
	BatteryVoltageV Value      `json:"battery_voltage_v"`
	BatteryCurrentA Value      `json:"battery_current_a"`
	YieldTodayKWh   Value      `json:"yield_today_kwh"`
	PVPowerW        Value      `json:"pv_power_w"`
	LoadCurrentA    Value      `json:"load_current_a"`
}

func ParseSolarCharger(payload []byte) (s SolarChargerState, err error) {
	r := bitreader.New(payload)

	if s.Mode, s.ErrorState, err = readModeAndError(&r); err != nil {
		return SolarChargerState{}, err
	}

	if s.BatteryVoltageV, err = signedField(&r, "battery voltage", 16, 100); err != nil {
		return SolarChargerState{}, err
	}

	if s.BatteryCurrentA, err = signedField(&r, "battery current", 16, 10); err != nil {
		return SolarChargerState{}, err
	}

	if s.YieldTodayKWh, err = unsignedField(&r, "yield today", 16, 100, 0); err != nil {
		return SolarChargerState{}, err
	}

	if s.PVPowerW, err = unsignedField(&r, "pv power", 16, 1, 0); err != nil {
		return SolarChargerState{}, err
	}

	if s.LoadCurrentA, err = unsignedField(&r, "load current", 9, 10, 0); err != nil {
		return SolarChargerState{}, err
	}

	return s, nil
}

// readModeAndError reads the two leading 8-bit codes shared by most chargers.
func readModeAndError(r *bitreader.Reader) (Mode, ErrorState, error) {
	m, err := code(r, "mode", 8)
	if err != nil {
		return 0, 0, err
	}

	mode, err := ParseMode(m)
	if err != nil {
		return 0, 0, err
	}

	e, err := code(r, "error state", 8)
	if err != nil {
		return 0, 0, err
	}

	errorState, err := ParseErrorState(e)
	if err != nil {
		return 0, 0, err
	}

	return mode, errorState, nil
}

func (s SolarChargerState) RecordType() RecordType {
	return RecordTypeSolarCharger
}

func (s SolarChargerState) String() string {
	return fmt.Sprintf(
		"SolarCharger[Mode=%v,Error=%v,BatteryVoltage=%vV,BatteryCurrent=%vA,YieldToday=%vkWh,PVPower=%vW,LoadCurrent=%vA]",
		s.Mode, s.ErrorState, s.BatteryVoltageV, s.BatteryCurrentA, s.YieldTodayKWh, s.PVPowerW, s.LoadCurrentA)
}
