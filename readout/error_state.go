package readout

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrorState is the charger error code. NotApplicable is reported by devices without one.
type ErrorState uint8

const (
	ErrorStateNoError                                      ErrorState = 0
	ErrorStateBatteryVoltsTooHigh                          ErrorState = 2
	ErrorStateChargerTemperatureTooHigh                    ErrorState = 17
	ErrorStateChargerOverCurrent                           ErrorState = 18
	ErrorStateChargerCurrentReversed                       ErrorState = 19
	ErrorStateBulkTimeLimitExceeded                        ErrorState = 20
	ErrorStateCurrentSensorIssue                           ErrorState = 21
	ErrorStateTerminalsOverheated                          ErrorState = 26
	ErrorStateConverterIssue                               ErrorState = 28
	ErrorStateInputVoltageTooHigh                          ErrorState = 33
	ErrorStateInputCurrentTooHigh                          ErrorState = 34
	ErrorStateInputShutdownExcessBatteryVoltage            ErrorState = 38
	ErrorStateInputShutdownCurrentFlowWhileOff             ErrorState = 39
	ErrorStateLostCommunicationWithOneOfDevices            ErrorState = 65
	ErrorStateSynchronisedChargingDeviceConfigurationIssue ErrorState = 66
	ErrorStateBMSConnectionLost                            ErrorState = 67
	ErrorStateNetworkMisconfigured                         ErrorState = 68
	ErrorStateFactoryCalibrationDataLost                   ErrorState = 116
	ErrorStateInvalidFirmware                              ErrorState = 117
	ErrorStateUserSettingsInvalid                          ErrorState = 119
	ErrorStateNotApplicable                                ErrorState = 0xff
)

var errorStateNames = map[ErrorState]string{
	ErrorStateNoError:                                      "NoError",
	ErrorStateBatteryVoltsTooHigh:                          "BatteryVoltsTooHigh",
	ErrorStateChargerTemperatureTooHigh:                    "ChargerTemperatureTooHigh",
	ErrorStateChargerOverCurrent:                           "ChargerOverCurrent",
	ErrorStateChargerCurrentReversed:                       "ChargerCurrentReversed",
	ErrorStateBulkTimeLimitExceeded:                        "BulkTimeLimitExceeded",
	ErrorStateCurrentSensorIssue:                           "CurrentSensorIssue",
	ErrorStateTerminalsOverheated:                          "TerminalsOverheated",
	ErrorStateConverterIssue:                               "ConverterIssue",
	ErrorStateInputVoltageTooHigh:                          "InputVoltageTooHigh",
	ErrorStateInputCurrentTooHigh:                          "InputCurrentTooHigh",
	ErrorStateInputShutdownExcessBatteryVoltage:            "InputShutdownExcessBatteryVoltage",
	ErrorStateInputShutdownCurrentFlowWhileOff:             "InputShutdownCurrentFlowWhileOff",
	ErrorStateLostCommunicationWithOneOfDevices:            "LostCommunicationWithOneOfDevices",
	ErrorStateSynchronisedChargingDeviceConfigurationIssue: "SynchronisedChargingDeviceConfigurationIssue",
	ErrorStateBMSConnectionLost:                            "BMSConnectionLost",
	ErrorStateNetworkMisconfigured:                         "NetworkMisconfigured",
	ErrorStateFactoryCalibrationDataLost:                   "FactoryCalibrationDataLost",
	ErrorStateInvalidFirmware:                              "InvalidFirmware",
	ErrorStateUserSettingsInvalid:                          "UserSettingsInvalid",
	ErrorStateNotApplicable:                                "NotApplicable",
}

func ParseErrorState(c uint64) (ErrorState, error) {
	if c <= 0xff {
		if _, ok := errorStateNames[ErrorState(c)]; ok {
			return ErrorState(c), nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidErrorState, "code %d", c)
}

func (e ErrorState) String() string {
	if name, ok := errorStateNames[e]; ok {
		return name
	}

	return "ErrorState(" + strconv.Itoa(int(e)) + ")"
}

func (e ErrorState) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
