package device

import (
	"errors"
	"net"

	"github.com/go-ble/ble"
)

var (
  ErrInvalidData = errors.New("invalid data")
  ErrInvalidSpec = errors.New("invalid device spec")
  // ErrNoReading marks advertisements which carry no reading at all. Collectors should
  // keep listening for the next one.
  ErrNoReading = errors.New("advertisement carries no reading")
)

type Flags uint8

const (
  FlagRequiresBleActiveScan Flags = 1 << iota
)

type Device interface {
  Name() string
  Addr() net.HardwareAddr
  Flags() Flags
  ParseAdvertisement(a ble.Advertisement) (Reading, error)
  String() string
}
