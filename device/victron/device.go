package victron

import (
  "context"
  "fmt"
  "net"

  "github.com/robertof/go-victron-exporter/device"
  "github.com/robertof/go-victron-exporter/stream"
)

type Device struct {
  name            string
  addr            net.HardwareAddr
  key             []byte
  flags           device.Flags
  skipUnsupported bool
}

func (d *Device) Name() string {
  return d.name
}

func (d *Device) Addr() net.HardwareAddr {
  return d.addr
}

func (d *Device) Flags() device.Flags {
  return d.flags
}

// Stream opens a decoded stream of this device's readings.
func (d *Device) Stream(ctx context.Context, src stream.Source, opts stream.Options) <-chan stream.Result {
  opts.SkipUnsupported = opts.SkipUnsupported || d.skipUnsupported

  return stream.Open(ctx, src, d.key, opts)
}

func (d *Device) String() string {
  return fmt.Sprintf("victron[name=%q, addr=%v]", d.name, d.addr.String())
}
