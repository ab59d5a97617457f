package readout

import (
	"errors"
	"fmt"

	"github.com/robertof/go-victron-exporter/bitreader"
)

var (
	ErrRecordTooBig = errors.New("manufacturer data record is too big, it cannot exceed 24 bytes")
	// ErrWrongAdvertisement is returned for any broadcast which is not an Instant Readout
	// status record. Devices emit several kinds of advertisements, so callers should simply
	// keep listening.
	ErrWrongAdvertisement           = errors.New("not a Victron Instant Readout record")
	ErrIncorrectDeviceEncryptionKey = errors.New("incorrect device encryption key")
	ErrInvalidDeviceEncryptionKey   = errors.New("device encryption key must be 16 bytes long")
	ErrUnsupportedDeviceType        = errors.New("unsupported device type")
	ErrDecryptionFailed             = errors.New("record could not be decrypted")
	ErrDataTooShort                 = bitreader.ErrOutOfData

	ErrInvalidMode              = errors.New("invalid mode")
	ErrInvalidErrorState        = errors.New("invalid error state")
	ErrInvalidAlarmReason       = errors.New("invalid alarm reason")
	ErrInvalidAuxInputType      = errors.New("invalid aux input type")
	ErrInvalidAcInState         = errors.New("invalid ac in state")
	ErrInvalidAlarmNotification = errors.New("invalid alarm notification")
)

// UnsupportedDeviceTypeError carries the record type byte that no parser is registered for.
type UnsupportedDeviceTypeError struct {
	RecordType RecordType
}

func (e UnsupportedDeviceTypeError) Error() string {
	return fmt.Sprintf("%v: record type 0x%02x", ErrUnsupportedDeviceType, uint8(e.RecordType))
}

func (e UnsupportedDeviceTypeError) Is(target error) bool {
	return target == ErrUnsupportedDeviceType
}

// IsFatal reports whether a listener receiving err should stop listening to the device.
// Only ErrWrongAdvertisement is expected noise.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrWrongAdvertisement)
}
