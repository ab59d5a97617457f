package model

import (
	"fmt"
	"time"

	"github.com/robertof/go-victron-exporter/device"
)

type Result struct {
  Reading device.Reading
  Error error
}

func (c Result) String() string {
  if c.Error != nil {
    return fmt.Sprintf("result:error(%v)", c.Error)
  } else {
    return fmt.Sprintf("result:success(%v)", c.Reading)
  }
}

type DeviceResult struct {
	device.Device
	Result
}

// Sample is a reading along with the time it was collected at.
type Sample struct {
  device.Reading
  Time time.Time
}

func (s Sample) String() string {
  return fmt.Sprintf("sample(%v@%v)", s.Reading, s.Time.Format(time.RFC3339))
}

type Samples map[device.Device]Sample
