// Package bletest provides in-memory stand-ins for go-ble types.
package bletest

import (
  "net"

  "github.com/go-ble/ble"
)

type FakeAdvertisement struct {
  Name              string
  ManufacturerBytes []byte
  Address           ble.Addr
  Signal            int
}

// Advertisement from addr carrying the given manufacturer data.
func NewAdvertisement(addr string, manufacturerData []byte) FakeAdvertisement {
  return FakeAdvertisement{
    ManufacturerBytes: manufacturerData,
    Address:           ble.NewAddr(addr),
  }
}

func MustParseMAC(s string) net.HardwareAddr {
  addr, err := net.ParseMAC(s)

  if err != nil {
    panic(err)
  }

  return addr
}

func (f FakeAdvertisement) LocalName() string {
  return f.Name
}

func (f FakeAdvertisement) ManufacturerData() []byte {
  return f.ManufacturerBytes
}

func (f FakeAdvertisement) ServiceData() []ble.ServiceData {
  return nil
}

func (f FakeAdvertisement) Services() []ble.UUID {
  return nil
}

func (f FakeAdvertisement) OverflowService() []ble.UUID {
  return nil
}

func (f FakeAdvertisement) TxPowerLevel() int {
  return 0
}

func (f FakeAdvertisement) Connectable() bool {
  return false
}

func (f FakeAdvertisement) SolicitedService() []ble.UUID {
  return nil
}

func (f FakeAdvertisement) RSSI() int {
  return f.Signal
}

func (f FakeAdvertisement) Addr() ble.Addr {
  if f.Address == nil {
    return ble.NewAddr("")
  }

  return f.Address
}
