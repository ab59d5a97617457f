// Package readout decodes the encrypted Instant Readout status records which Victron
// devices broadcast as BLE manufacturer data.
package readout

import "encoding/binary"

// Decode validates, decrypts and parses one manufacturer data record (without the company
// identifier prefix). A state is returned only when the whole record decodes.
func Decode(data []byte, key []byte) (DeviceState, error) {
	record, err := OpenRecord(data, key)
	if err != nil {
		return nil, err
	}

	return ParseDeviceState(record)
}

// DecodeManufacturerData decodes manufacturer data as reported by the BLE stack, that is
// prefixed by the little endian company identifier.
func DecodeManufacturerData(md []byte, key []byte) (DeviceState, error) {
	companyID, data, ok := SplitManufacturerData(md)

	if !ok || companyID != ManufacturerID {
		return nil, ErrWrongAdvertisement
	}

	return Decode(data, key)
}

func SplitManufacturerData(md []byte) (companyID uint16, data []byte, ok bool) {
	if len(md) < 2 {
		return 0, nil, false
	}

	return binary.LittleEndian.Uint16(md), md[2:], true
}
