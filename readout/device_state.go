package readout

import (
	"fmt"
	"strconv"
)

// RecordType is the byte selecting which parser a record payload is decoded with.
type RecordType uint8

const (
	RecordTypeTestRecord     RecordType = 0x00
	RecordTypeSolarCharger   RecordType = 0x01
	RecordTypeBatteryMonitor RecordType = 0x02
	RecordTypeInverter       RecordType = 0x03
	RecordTypeAcCharger      RecordType = 0x08
	RecordTypeVeBus          RecordType = 0x0c
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeTestRecord:
		return "TestRecord"
	case RecordTypeSolarCharger:
		return "SolarCharger"
	case RecordTypeBatteryMonitor:
		return "BatteryMonitor"
	case RecordTypeInverter:
		return "Inverter"
	case RecordTypeAcCharger:
		return "AcCharger"
	case RecordTypeVeBus:
		return "VeBus"
	default:
		return "RecordType(0x" + strconv.FormatUint(uint64(t), 16) + ")"
	}
}

// DeviceState is one decoded record. It is implemented by TestRecordState,
// SolarChargerState, AcChargerState, BatteryMonitorState, InverterState and VeBusState.
type DeviceState interface {
	fmt.Stringer
	RecordType() RecordType
}

type parseFunc func(payload []byte) (DeviceState, error)

func parserFor(t RecordType) (parseFunc, bool) {
	switch t {
	case RecordTypeTestRecord:
		return func(p []byte) (DeviceState, error) { return ParseTestRecord(p) }, true
	case RecordTypeSolarCharger:
		return func(p []byte) (DeviceState, error) { return ParseSolarCharger(p) }, true
	case RecordTypeBatteryMonitor:
		return func(p []byte) (DeviceState, error) { return ParseBatteryMonitor(p) }, true
	case RecordTypeInverter:
		return func(p []byte) (DeviceState, error) { return ParseInverter(p) }, true
	case RecordTypeAcCharger:
		return func(p []byte) (DeviceState, error) { return ParseAcCharger(p) }, true
	case RecordTypeVeBus:
		return func(p []byte) (DeviceState, error) { return ParseVeBus(p) }, true
	default:
		return nil, false
	}
}

// ParseDeviceState decrypts the record and decodes it with the parser for its record type.
func ParseDeviceState(r Record) (DeviceState, error) {
	parse, ok := parserFor(r.RecordType())

	if !ok {
		return nil, UnsupportedDeviceTypeError{RecordType: r.RecordType()}
	}

	payload, err := r.Decrypt()
	if err != nil {
		return nil, err
	}

	state, err := parse(payload[:])
	if err != nil {
		return nil, fmt.Errorf("failed to parse %v record: %w", r.RecordType(), err)
	}

	return state, nil
}
