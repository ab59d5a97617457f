package readout

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/robertof/go-victron-exporter/bitreader"
)

type AcInState uint8

const (
	AcInStateAcIn1 AcInState = iota
	AcInStateAcIn2
	AcInStateNotConnected
	AcInStateUnknown
)

func ParseAcInState(c uint64) (AcInState, error) {
	if c > uint64(AcInStateUnknown) {
		return 0, errors.Wrapf(ErrInvalidAcInState, "code %d", c)
	}

	return AcInState(c), nil
}

func (s AcInState) String() string {
	switch s {
	case AcInStateAcIn1:
		return "AcIn1"
	case AcInStateAcIn2:
		return "AcIn2"
	case AcInStateNotConnected:
		return "NotConnected"
	case AcInStateUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("AcInState(%d)", uint8(s))
	}
}

func (s AcInState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type AlarmNotification uint8

const (
	AlarmNotificationNoAlarm AlarmNotification = iota
	AlarmNotificationWarning
	AlarmNotificationAlarm
	AlarmNotificationNotApplicable
)

func ParseAlarmNotification(c uint64) (AlarmNotification, error) {
	if c > uint64(AlarmNotificationNotApplicable) {
		return 0, errors.Wrapf(ErrInvalidAlarmNotification, "code %d", c)
	}

	return AlarmNotification(c), nil
}

func (a AlarmNotification) String() string {
	switch a {
	case AlarmNotificationNoAlarm:
		return "NoAlarm"
	case AlarmNotificationWarning:
		return "Warning"
	case AlarmNotificationAlarm:
		return "Alarm"
	case AlarmNotificationNotApplicable:
		return "NotApplicable"
	default:
		return fmt.Sprintf("AlarmNotification(%d)", uint8(a))
	}
}

func (a AlarmNotification) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

type VeBusState struct {
	Mode                      Mode              `json:"mode"`
	ErrorState                ErrorState        `json:"error_state"`
	BatteryCurrentA           Value             `json:"battery_current_a"`
	BatteryVoltageV           Value             `json:"battery_voltage_v"`
	AcInState                 AcInState         `json:"ac_in_state"`
	AcInPowerW                Value             `json:"ac_in_power_w"`
	AcOutPowerW               Value             `json:"ac_out_power_w"`
	Alarm                     AlarmNotification `json:"alarm"`
	BatteryTemperatureCelsius Value             `json:"battery_temperature_c"`
	StateOfChargePct          Value             `json:"state_of_charge_pct"`
}

func ParseVeBus(payload []byte) (s VeBusState, err error) {
	r := bitreader.New(payload)

	if s.Mode, s.ErrorState, err = readModeAndError(&r); err != nil {
		return VeBusState{}, err
	}

	if s.BatteryCurrentA, err = signedField(&r, "battery current", 16, 10); err != nil {
		return VeBusState{}, err
	}

	if s.BatteryVoltageV, err = unsignedField(&r, "battery voltage", 14, 100, 0); err != nil {
		return VeBusState{}, err
	}

	acIn, err := code(&r, "ac in state", 2)
	if err != nil {
		return VeBusState{}, err
	}

	if s.AcInState, err = ParseAcInState(acIn); err != nil {
		return VeBusState{}, err
	}

	if s.AcInPowerW, err = signedField(&r, "ac in power", 19, 1); err != nil {
		return VeBusState{}, err
	}

	if s.AcOutPowerW, err = signedField(&r, "ac out power", 19, 1); err != nil {
		return VeBusState{}, err
	}

	alarm, err := code(&r, "alarm", 2)
	if err != nil {
		return VeBusState{}, err
	}

	if s.Alarm, err = ParseAlarmNotification(alarm); err != nil {
		return VeBusState{}, err
	}

	if s.BatteryTemperatureCelsius, err = unsignedField(&r, "battery temperature", 7, 1, -40); err != nil {
		return VeBusState{}, err
	}

	if s.StateOfChargePct, err = unsignedField(&r, "state of charge", 7, 1, 0); err != nil {
		return VeBusState{}, err
	}

	return s, nil
}

func (s VeBusState) RecordType() RecordType {
	return RecordTypeVeBus
}

func (s VeBusState) String() string {
	return fmt.Sprintf(
		"VeBus[Mode=%v,Error=%v,BatteryCurrent=%vA,BatteryVoltage=%vV,AcIn=%v,AcInPower=%vW,AcOutPower=%vW,Alarm=%v,BatteryTemperature=%v°C,SoC=%v%%]",
		s.Mode, s.ErrorState, s.BatteryCurrentA, s.BatteryVoltageV, s.AcInState, s.AcInPowerW, s.AcOutPowerW,
		s.Alarm, s.BatteryTemperatureCelsius, s.StateOfChargePct)
}
