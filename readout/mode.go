package readout

import (
	"strconv"

	"github.com/pkg/errors"
)

// Mode is the operating state of a charger, inverter or VE.Bus system.
type Mode uint8

const (
	ModeOff                Mode = 0
	ModeLowPower           Mode = 1
	ModeFault              Mode = 2
	ModeBulk               Mode = 3
	ModeAbsorption         Mode = 4
	ModeFloat              Mode = 5
	ModeStorage            Mode = 6
	ModeEqualize           Mode = 7
	ModeInverting          Mode = 9
	ModePowerSupply        Mode = 11
	ModeStartingUp         Mode = 245
	ModeRepeatedAbsorption Mode = 246
	ModeAutoEqualize       Mode = 247
	ModeBatterySafe        Mode = 248
	ModeExternalControl    Mode = 252
)

var modeNames = map[Mode]string{
	ModeOff:                "Off",
	ModeLowPower:           "LowPower",
	ModeFault:              "Fault",
	ModeBulk:               "Bulk",
	ModeAbsorption:         "Absorption",
	ModeFloat:              "Float",
	ModeStorage:            "Storage",
	ModeEqualize:           "Equalize",
	ModeInverting:          "Inverting",
	ModePowerSupply:        "PowerSupply",
	ModeStartingUp:         "StartingUp",
	ModeRepeatedAbsorption: "RepeatedAbsorption",
	ModeAutoEqualize:       "AutoEqualize",
	ModeBatterySafe:        "BatterySafe",
	ModeExternalControl:    "ExternalControl",
}

func ParseMode(c uint64) (Mode, error) {
	if c <= 0xff {
		if _, ok := modeNames[Mode(c)]; ok {
			return Mode(c), nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidMode, "code %d", c)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}

	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
