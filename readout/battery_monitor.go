package readout

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robertof/go-victron-exporter/bitreader"
)

// AuxInputKind tells what the auxiliary input of a battery monitor is wired to.
type AuxInputKind uint8

const (
	AuxInputVoltage AuxInputKind = iota
	AuxInputMidVoltage
	AuxInputTemperature
	AuxInputNone
)

func (k AuxInputKind) String() string {
	switch k {
	case AuxInputVoltage:
		return "Voltage"
	case AuxInputMidVoltage:
		return "MidVoltage"
	case AuxInputTemperature:
		return "Temperature"
	case AuxInputNone:
		return "None"
	default:
		return fmt.Sprintf("AuxInputKind(%d)", uint8(k))
	}
}

func (k AuxInputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AuxInput is the reading of the auxiliary input. Value is in volts for the voltage kinds,
// in Kelvin for AuxInputTemperature and zero for AuxInputNone.
type AuxInput struct {
	Kind  AuxInputKind
	Value float64
}

func (a AuxInput) String() string {
	switch a.Kind {
	case AuxInputVoltage, AuxInputMidVoltage:
		return fmt.Sprintf("%v(%vV)", a.Kind, a.Value)
	case AuxInputTemperature:
		return fmt.Sprintf("%v(%vK)", a.Kind, a.Value)
	default:
		return a.Kind.String()
	}
}

func (a AuxInput) MarshalJSON() ([]byte, error) {
	if a.Kind == AuxInputNone {
		return json.Marshal(struct {
			Kind AuxInputKind `json:"kind"`
		}{a.Kind})
	}

	return json.Marshal(struct {
		Kind  AuxInputKind `json:"kind"`
		Value float64      `json:"value"`
	}{a.Kind, a.Value})
}

type BatteryMonitorState struct {
	TimeToGoMinutes  Value       `json:"time_to_go_min"`
	BatteryVoltageV  Value       `json:"battery_voltage_v"`
	AlarmReason      AlarmReason `json:"alarm_reason"`
	AuxInput         AuxInput    `json:"aux_input"`
	BatteryCurrentA  Value       `json:"battery_current_a"`
	ConsumedAh       Value       `json:"consumed_ah"`
	StateOfChargePct Value       `json:"state_of_charge_pct"`
}

func ParseBatteryMonitor(payload []byte) (s BatteryMonitorState, err error) {
	r := bitreader.New(payload)

	if s.TimeToGoMinutes, err = unsignedField(&r, "time to go", 16, 1, 0); err != nil {
		return BatteryMonitorState{}, err
	}

	if s.BatteryVoltageV, err = signedField(&r, "battery voltage", 16, 100); err != nil {
		return BatteryMonitorState{}, err
	}

	if s.AlarmReason, err = readAlarmReason(&r); err != nil {
		return BatteryMonitorState{}, err
	}

	// the aux value precedes the 2-bit type that tells how to interpret it.
	aux := r.Clone()

	if err = r.Skip(16); err != nil {
		return BatteryMonitorState{}, errors.Wrap(err, "reading aux input")
	}

	kind, err := code(&r, "aux input type", 2)
	if err != nil {
		return BatteryMonitorState{}, err
	}

	if s.AuxInput, err = readAuxInput(&aux, kind); err != nil {
		return BatteryMonitorState{}, err
	}

	if s.BatteryCurrentA, err = signedField(&r, "battery current", 22, 1000); err != nil {
		return BatteryMonitorState{}, err
	}

	if s.ConsumedAh, err = unsignedField(&r, "consumed amp hours", 20, -10, 0); err != nil {
		return BatteryMonitorState{}, err
	}

	if s.StateOfChargePct, err = unsignedField(&r, "state of charge", 10, 10, 0); err != nil {
		return BatteryMonitorState{}, err
	}

	return s, nil
}

func readAuxInput(r *bitreader.Reader, kind uint64) (AuxInput, error) {
	switch AuxInputKind(kind) {
	case AuxInputVoltage:
		raw, err := r.ReadSigned(16)
		if err != nil {
			return AuxInput{}, errors.Wrap(err, "reading aux voltage")
		}

		return AuxInput{Kind: AuxInputVoltage, Value: float64(raw) / 100}, nil
	case AuxInputMidVoltage, AuxInputTemperature:
		raw, err := r.ReadUnsigned(16)
		if err != nil {
			return AuxInput{}, errors.Wrapf(err, "reading aux %v", AuxInputKind(kind))
		}

		return AuxInput{Kind: AuxInputKind(kind), Value: float64(raw) / 100}, nil
	case AuxInputNone:
		return AuxInput{Kind: AuxInputNone}, nil
	default:
		return AuxInput{}, errors.Wrapf(ErrInvalidAuxInputType, "code %d", kind)
	}
}

func readAlarmReason(r *bitreader.Reader) (AlarmReason, error) {
	raw, err := r.ReadSigned(16)
	if err != nil {
		return 0, errors.Wrap(err, "reading alarm reason")
	}

	return ParseAlarmReason(raw)
}

func (s BatteryMonitorState) RecordType() RecordType {
	return RecordTypeBatteryMonitor
}

func (s BatteryMonitorState) String() string {
	return fmt.Sprintf(
		"BatteryMonitor[TimeToGo=%vmin,BatteryVoltage=%vV,Alarms=%v,Aux=%v,BatteryCurrent=%vA,Consumed=%vAh,SoC=%v%%]",
		s.TimeToGoMinutes, s.BatteryVoltageV, s.AlarmReason, s.AuxInput, s.BatteryCurrentA, s.ConsumedAh, s.StateOfChargePct)
}
