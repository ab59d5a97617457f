package victron

import (
  "encoding/hex"
  "fmt"
  "net"
  "strings"

  "github.com/robertof/go-victron-exporter/device"
  "github.com/robertof/go-victron-exporter/readout"
  "github.com/robertof/go-victron-exporter/utils"
  "github.com/rs/zerolog/log"
)

const (
  specFieldActiveScan      = "active-scan"
  specFieldSkipUnsupported = "skip-unsupported"
)

type Factory struct{}

func (f *Factory) FromSpec(spec device.DeviceSpec) (device.Device, error) {
  d := Device{}

  addr := spec.Addr()

  if addr == "" {
    return nil, fmt.Errorf("%w: addr is required", device.ErrInvalidSpec)
  }

  hwAddr, err := net.ParseMAC(addr)
  if err != nil {
    return nil, fmt.Errorf("invalid addr: %w", err)
  }

  d.addr = hwAddr

  if name := spec.Name(); name != "" {
    d.name = name
  } else {
    d.name = "victron-" + strings.ToLower(strings.ReplaceAll(addr, ":", ""))
  }

  d.key, err = ParseKey(spec.Key())
  if err != nil {
    return nil, err
  }

  if active, err := spec.Bool(specFieldActiveScan); err != nil {
    return nil, err
  } else if active {
    d.flags |= device.FlagRequiresBleActiveScan
  }

  if d.skipUnsupported, err = spec.Bool(specFieldSkipUnsupported); err != nil {
    return nil, err
  }

  log.Debug().
    Stringer("Device", &d).
    Str("Key", utils.KeyHint(d.key)).
    Bool("ActiveScan", d.flags & device.FlagRequiresBleActiveScan != 0).
    Msg("victron: created device")

  return &d, nil
}

// ParseKey decodes the 32 hex character key shown by VictronConnect.
func ParseKey(s string) ([]byte, error) {
  if s == "" {
    return nil, fmt.Errorf("%w: key is required", device.ErrInvalidSpec)
  }

  key, err := hex.DecodeString(strings.TrimSpace(s))
  if err != nil {
    return nil, fmt.Errorf("%w: key is not hex: %w", device.ErrInvalidSpec, err)
  }

  if len(key) != readout.KeySize {
    return nil, fmt.Errorf("%w: %w", device.ErrInvalidSpec, readout.ErrInvalidDeviceEncryptionKey)
  }

  return key, nil
}

func (f *Factory) Help() string {
  return `Supported parameters:
addr (string, required): MAC address of this Victron device
key (string, required): Instant Readout encryption key (32 hex characters, see VictronConnect > Product info)
name (string): Name of this Victron device
active-scan (bool): Request scan responses from the device
skip-unsupported (bool): Ignore records of device types without a decoder`
}
