package victron_test

import (
  "errors"
  "reflect"
  "testing"

  "github.com/robertof/go-victron-exporter/ble/bletest"
  "github.com/robertof/go-victron-exporter/device"
  "github.com/robertof/go-victron-exporter/device/victron"
  "github.com/robertof/go-victron-exporter/readout"
  "github.com/robertof/go-victron-exporter/readout/readouttest"
)

const (
  testAddr = "c4:d1:95:24:7e:01"
  testKeyHex = "1112131415161718191a1b1c1d1e1f20"
)

func newDevice(t *testing.T, extra ...string) device.Device {
  t.Helper()

  spec := device.DeviceSpec{"addr": testAddr, "key": testKeyHex}

  for i := 0; i+1 < len(extra); i += 2 {
    spec[extra[i]] = extra[i+1]
  }

  dev, err := (&victron.Factory{}).FromSpec(spec)

  if err != nil {
    t.Fatalf("FromSpec(%v) got error: %v", spec, err)
  }

  return dev
}

func TestParseAdvertisement_TestRecord(t *testing.T) {
  manufacturerData := readouttest.WithCompanyID(
    readouttest.TestRecord(t, readouttest.Key, 0x0102, 3600, 25),
  )

  advertisement := bletest.NewAdvertisement(testAddr, manufacturerData)
  advertisement.Signal = -71

  got, err := newDevice(t).ParseAdvertisement(advertisement)

  if err != nil {
    t.Fatalf("ParseAdvertisement(%x) got error: %v", manufacturerData, err)
  }

  want := device.Reading{
    State: readout.TestRecordState{UptimeSeconds: 3600, TemperatureCelsius: 25},
    RSSI:  -71,
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseAdvertisement(%x): got %+#v, wanted %+#v", manufacturerData, got, want)
  }
}

func TestParseAdvertisement_SolarCharger(t *testing.T) {
  payload := readouttest.Pack(t,
    readouttest.Unsigned(8, uint64(readout.ModeFloat)),
    readouttest.Unsigned(8, uint64(readout.ErrorStateNoError)),
    readouttest.Signed(16, 1380),
    readouttest.Signed(16, 52),
    readouttest.Unsigned(16, 45),
    readouttest.Unsigned(16, 71),
    readouttest.Unsigned(9, 3),
  )
  manufacturerData := readouttest.WithCompanyID(
    readouttest.Seal(t, readout.RecordTypeSolarCharger, readouttest.Key, 0x0a0b, payload[:12]),
  )

  got, err := newDevice(t).ParseAdvertisement(bletest.NewAdvertisement(testAddr, manufacturerData))

  if err != nil {
    t.Fatalf("ParseAdvertisement(%x) got error: %v", manufacturerData, err)
  }

  want := device.Reading{
    State: readout.SolarChargerState{
      Mode:            readout.ModeFloat,
      ErrorState:      readout.ErrorStateNoError,
      BatteryVoltageV: readout.Some(13.8),
      BatteryCurrentA: readout.Some(5.2),
      YieldTodayKWh:   readout.Some(0.45),
      PVPowerW:        readout.Some(71),
      LoadCurrentA:    readout.Some(0.3),
    },
  }

  if !reflect.DeepEqual(got, want) {
    t.Fatalf("ParseAdvertisement(%x): got %+#v, wanted %+#v", manufacturerData, got, want)
  }
}

func TestParseAdvertisement_NoReading(t *testing.T) {
  cases := [][]byte{
    nil,
    {0xe1, 0x02},
    {0x4c, 0x00, 0x02, 0x15, 0x00},
    {0xe1, 0x02, 0x02, 0x00, 0xa0, 0x58},
  }

  dev := newDevice(t)

  for _, manufacturerData := range cases {
    _, err := dev.ParseAdvertisement(bletest.NewAdvertisement(testAddr, manufacturerData))

    if !errors.Is(err, device.ErrNoReading) || !errors.Is(err, readout.ErrWrongAdvertisement) {
      t.Fatalf("ParseAdvertisement(%x): got %v, wanted %v", manufacturerData, err, device.ErrNoReading)
    }
  }
}

func TestParseAdvertisement_WrongKey(t *testing.T) {
  otherKey := append([]byte{0x42}, readouttest.Key[1:]...)
  manufacturerData := readouttest.WithCompanyID(readouttest.TestRecord(t, otherKey, 1, 1, 1))

  _, err := newDevice(t).ParseAdvertisement(bletest.NewAdvertisement(testAddr, manufacturerData))

  if !errors.Is(err, readout.ErrIncorrectDeviceEncryptionKey) {
    t.Fatalf("ParseAdvertisement(%x): got %v, wanted %v", manufacturerData, err, readout.ErrIncorrectDeviceEncryptionKey)
  }

  if errors.Is(err, device.ErrNoReading) {
    t.Fatalf("ParseAdvertisement(%x): key mismatch must not be ignorable", manufacturerData)
  }
}

func TestParseAdvertisement_SkipUnsupported(t *testing.T) {
  manufacturerData := readouttest.WithCompanyID(
    readouttest.Seal(t, readout.RecordType(0x0d), readouttest.Key, 1, make([]byte, 12)),
  )
  advertisement := bletest.NewAdvertisement(testAddr, manufacturerData)

  if _, err := newDevice(t).ParseAdvertisement(advertisement); errors.Is(err, device.ErrNoReading) ||
      !errors.Is(err, readout.ErrUnsupportedDeviceType) {
    t.Fatalf("ParseAdvertisement(%x): got %v, wanted %v", manufacturerData, err, readout.ErrUnsupportedDeviceType)
  }

  _, err := newDevice(t, "skip-unsupported", "yes").ParseAdvertisement(advertisement)

  if !errors.Is(err, device.ErrNoReading) {
    t.Fatalf("ParseAdvertisement(%x) skipping unsupported: got %v, wanted %v", manufacturerData, err, device.ErrNoReading)
  }
}
