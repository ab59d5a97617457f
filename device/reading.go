package device

import (
  "fmt"

  "github.com/robertof/go-victron-exporter/readout"
)

type Reading struct {
  State readout.DeviceState
  RSSI int
}

func (r Reading) String() string {
  if r.State == nil {
    return fmt.Sprintf("Reading[RSSI=%d]", r.RSSI)
  }

  return fmt.Sprintf("Reading[Type=%v,RSSI=%d,%v]", r.State.RecordType(), r.RSSI, r.State)
}
