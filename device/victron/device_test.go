package victron_test

import (
  "context"
  "reflect"
  "testing"

  "github.com/robertof/go-victron-exporter/device/victron"
  "github.com/robertof/go-victron-exporter/readout"
  "github.com/robertof/go-victron-exporter/readout/readouttest"
  "github.com/robertof/go-victron-exporter/stream"
)

type replaySource [][]byte

func (r replaySource) Scan(ctx context.Context, onRecord func(uint16, []byte)) error {
  for _, record := range r {
    onRecord(readout.ManufacturerID, record)
  }

  return nil
}

func TestDevice_StreamHonoursSkipUnsupported(t *testing.T) {
  src := replaySource{
    readouttest.Seal(t, readout.RecordType(0x0d), readouttest.Key, 1, make([]byte, 12)),
    readouttest.TestRecord(t, readouttest.Key, 2, 12, 3),
  }

  dev := newDevice(t, "skip-unsupported", "true").(*victron.Device)

  var got []stream.Result

  for res := range dev.Stream(context.Background(), src, stream.Options{}) {
    got = append(got, res)
  }

  want := []stream.Result{{State: readout.TestRecordState{UptimeSeconds: 12, TemperatureCelsius: 3}}}

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("Stream(): got %+#v, wanted %+#v", got, want)
  }
}
