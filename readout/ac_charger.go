package readout

import (
	"fmt"
	"strings"

	"github.com/robertof/go-victron-exporter/bitreader"
)

// AcChargerOutputs is the number of battery outputs an AC charger reports.
const AcChargerOutputs = 3

type AcChargerOutput struct {
	BatteryVoltageV Value `json:"battery_voltage_v"`
	BatteryCurrentA Value `json:"battery_current_a"`
}

type AcChargerState struct {
	Mode               Mode                              `json:"mode"`
	ErrorState         ErrorState                        `json:"error_state"`
	Outputs            [AcChargerOutputs]AcChargerOutput `json:"outputs"`
	TemperatureCelsius Value                             `json:"temperature_c"`
	AcCurrentA         Value                             `json:"ac_current_a"`
}

func ParseAcCharger(payload []byte) (s AcChargerState, err error) {
	r := bitreader.New(payload)

	if s.Mode, s.ErrorState, err = readModeAndError(&r); err != nil {
		return AcChargerState{}, err
	}

	for i := range s.Outputs {
		out := &s.Outputs[i]

		if out.BatteryVoltageV, err = unsignedField(&r, fmt.Sprintf("battery voltage %d", i+1), 13, 100, 0); err != nil {
			return AcChargerState{}, err
		}

		if out.BatteryCurrentA, err = unsignedField(&r, fmt.Sprintf("battery current %d", i+1), 11, 10, 0); err != nil {
			return AcChargerState{}, err
		}
	}

	if s.TemperatureCelsius, err = unsignedField(&r, "temperature", 7, 1, -40); err != nil {
		return AcChargerState{}, err
	}

	if s.AcCurrentA, err = unsignedField(&r, "ac current", 9, 10, 0); err != nil {
		return AcChargerState{}, err
	}

	return s, nil
}

func (s AcChargerState) RecordType() RecordType {
	return RecordTypeAcCharger
}

func (s AcChargerState) String() string {
	outputs := make([]string, 0, len(s.Outputs))

	for i, out := range s.Outputs {
		if !out.BatteryVoltageV.Valid && !out.BatteryCurrentA.Valid {
			continue
		}

		outputs = append(outputs, fmt.Sprintf("Output%d=%vV/%vA", i+1, out.BatteryVoltageV, out.BatteryCurrentA))
	}

	return fmt.Sprintf("AcCharger[Mode=%v,Error=%v,%v,Temperature=%v°C,AcCurrent=%vA]",
		s.Mode, s.ErrorState, strings.Join(outputs, ","), s.TemperatureCelsius, s.AcCurrentA)
}
