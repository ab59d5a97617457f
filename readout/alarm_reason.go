package readout

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// AlarmReason is the set of alarms raised by a battery monitor or inverter.
type AlarmReason uint16

const (
	AlarmLowVoltage AlarmReason = 1 << iota
	AlarmHighVoltage
	AlarmLowStateOfCharge
	AlarmLowStarterVoltage
	AlarmHighStarterVoltage
	AlarmLowTemperature
	AlarmHighTemperature
	AlarmMidVoltage
	AlarmOverload
	AlarmDcRipple
	AlarmLowVacOut
	AlarmHighVacOut
	AlarmShortCircuit
	AlarmBmsLockout

	alarmReasonAll = AlarmBmsLockout<<1 - 1
)

var alarmReasonNames = []string{
	"LowVoltage",
	"HighVoltage",
	"LowStateOfCharge",
	"LowStarterVoltage",
	"HighStarterVoltage",
	"LowTemperature",
	"HighTemperature",
	"MidVoltage",
	"Overload",
	"DcRipple",
	"LowVacOut",
	"HighVacOut",
	"ShortCircuit",
	"BmsLockout",
}

// ParseAlarmReason accepts only codes made of known alarm bits. Negative codes (sign bit
// set) and unknown bits are rejected.
func ParseAlarmReason(c int64) (AlarmReason, error) {
	if c < 0 || c&^int64(alarmReasonAll) != 0 {
		return 0, errors.Wrapf(ErrInvalidAlarmReason, "code %#x", c)
	}

	return AlarmReason(c), nil
}

func (a AlarmReason) Has(flag AlarmReason) bool {
	return a&flag == flag
}

// Alarms returns the name of every alarm in the set, lowest bit first.
func (a AlarmReason) Alarms() []string {
	var names []string

	for i, name := range alarmReasonNames {
		if a&(1<<i) != 0 {
			names = append(names, name)
		}
	}

	return names
}

func (a AlarmReason) String() string {
	if a == 0 {
		return "none"
	}

	return strings.Join(a.Alarms(), ", ")
}

func (a AlarmReason) MarshalJSON() ([]byte, error) {
	alarms := a.Alarms()

	if alarms == nil {
		alarms = []string{}
	}

	return json.Marshal(alarms)
}
