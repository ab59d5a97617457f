package victron

import (
  "fmt"

  "github.com/pkg/errors"
  "github.com/robertof/go-victron-exporter/ble"
  "github.com/robertof/go-victron-exporter/device"
  "github.com/robertof/go-victron-exporter/readout"
)

func (d *Device) ParseAdvertisement(a ble.Advertisement) (reading device.Reading, err error) {
  manufacturerData := a.ManufacturerData()

  if len(manufacturerData) == 0 {
    return reading, fmt.Errorf("%w: %w", device.ErrNoReading, readout.ErrWrongAdvertisement)
  }

  state, err := readout.DecodeManufacturerData(manufacturerData, d.key)

  switch {
  case err == nil:
  case !readout.IsFatal(err):
    return reading, fmt.Errorf("%w: %w", device.ErrNoReading, err)
  case d.skipUnsupported && errors.Is(err, readout.ErrUnsupportedDeviceType):
    return reading, fmt.Errorf("%w: %w", device.ErrNoReading, err)
  default:
    return reading, errors.Wrap(err, "victron")
  }

  return device.Reading{
    State: state,
    RSSI:  a.RSSI(),
  }, nil
}
