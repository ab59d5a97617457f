package readout

import (
	"fmt"

	"github.com/robertof/go-victron-exporter/bitreader"
)

type TestRecordState struct {
	UptimeSeconds      uint64 `json:"uptime_s"`
	TemperatureCelsius int64  `json:"temperature_c"`
}

func ParseTestRecord(payload []byte) (s TestRecordState, err error) {
	r := bitreader.New(payload)

	if s.UptimeSeconds, err = code(&r, "uptime", 30); err != nil {
		return TestRecordState{}, err
	}

	temp, err := code(&r, "temperature", 7)
	if err != nil {
		return TestRecordState{}, err
	}

	s.TemperatureCelsius = int64(temp) - 40

	return s, nil
}

func (s TestRecordState) RecordType() RecordType {
	return RecordTypeTestRecord
}

func (s TestRecordState) String() string {
	return fmt.Sprintf("TestRecord[Uptime=%ds,Temperature=%d°C]", s.UptimeSeconds, s.TemperatureCelsius)
}
