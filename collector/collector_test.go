package collector

import (
  "context"
  "errors"
  "net"
  "reflect"
  "strings"
  "sync"
  "testing"
  "time"

  "github.com/robertof/go-victron-exporter/ble"
  "github.com/robertof/go-victron-exporter/ble/bletest"
  "github.com/robertof/go-victron-exporter/device"
  "github.com/robertof/go-victron-exporter/device/victron"
  "github.com/robertof/go-victron-exporter/readout"
  "github.com/robertof/go-victron-exporter/readout/readouttest"
)

const (
  shuntAddr = "c4:d1:95:24:7e:01"
  solarAddr = "c4:d1:95:24:7e:02"
  testKeyHex = "1112131415161718191a1b1c1d1e1f20"
)

// fakeScanner replays the same advertisements on every scan, then waits for the deadline
// unless every address accepted one.
type fakeScanner struct {
  advertisements []ble.Advertisement

  mu sync.Mutex
  scans int
}

func (f *fakeScanner) ScanAddresses(
  ctx context.Context,
  addresses []net.HardwareAddr,
  onAdvertisement func(ble.Advertisement) bool,
) error {
  f.mu.Lock()
  f.scans++
  f.mu.Unlock()

  pending := make(map[string]bool)

  for _, addr := range addresses {
    pending[strings.ToLower(addr.String())] = true
  }

  for _, a := range f.advertisements {
    addr := strings.ToLower(a.Addr().String())

    if !pending[addr] {
      continue
    }

    if onAdvertisement(a) {
      delete(pending, addr)
    }
  }

  if len(pending) == 0 {
    return nil
  }

  <-ctx.Done()
  return ctx.Err()
}

func (f *fakeScanner) scanCount() int {
  f.mu.Lock()
  defer f.mu.Unlock()

  return f.scans
}

func newTestDevice(t *testing.T, addr string) device.Device {
  t.Helper()

  dev, err := (&victron.Factory{}).FromSpec(device.DeviceSpec{"addr": addr, "key": testKeyHex})

  if err != nil {
    t.Fatalf("FromSpec(%s) got error: %v", addr, err)
  }

  return dev
}

func testRecordAdvertisement(t *testing.T, addr string, key []byte, uptime uint64) ble.Advertisement {
  return bletest.NewAdvertisement(
    addr,
    readouttest.WithCompanyID(readouttest.TestRecord(t, key, uint16(uptime), uptime, 20)),
  )
}

func fastOptions() CollectionOptions {
  return CollectionOptions{
    MaxRetries: 2,
    TimeoutPerAttempt: 20 * time.Millisecond,
    BackoffFactor: time.Millisecond,
  }
}

func TestCollectReadings_SkipsAdvertisementsWithoutReadings(t *testing.T) {
  shunt := newTestDevice(t, shuntAddr)
  solar := newTestDevice(t, solarAddr)

  scanner := &fakeScanner{advertisements: []ble.Advertisement{
    bletest.NewAdvertisement(shuntAddr, []byte{0x4c, 0x00, 0x02, 0x15}),
    bletest.NewAdvertisement("aa:bb:cc:dd:ee:ff", []byte{0xe1, 0x02, 0x10}),
    testRecordAdvertisement(t, shuntAddr, readouttest.Key, 100),
    bletest.NewAdvertisement(solarAddr, []byte{0xe1, 0x02, 0x02, 0x00}),
    testRecordAdvertisement(t, solarAddr, readouttest.Key, 200),
  }}

  got, err := CollectReadingsWithOptions(scanner, context.Background(), []device.Device{shunt, solar}, fastOptions())

  if err != nil {
    t.Fatalf("CollectReadingsWithOptions() got error: %v", err)
  }

  want := map[device.Device]readout.DeviceState{
    shunt: readout.TestRecordState{UptimeSeconds: 100, TemperatureCelsius: 20},
    solar: readout.TestRecordState{UptimeSeconds: 200, TemperatureCelsius: 20},
  }

  if len(got) != len(want) {
    t.Fatalf("CollectReadingsWithOptions(): got %d results, wanted %d: %v", len(got), len(want), got)
  }

  for dev, state := range want {
    if got[dev].Error != nil || !reflect.DeepEqual(got[dev].Reading.State, state) {
      t.Fatalf("CollectReadingsWithOptions()[%v]: got %v, wanted %+#v", dev, got[dev], state)
    }
  }

  if n := scanner.scanCount(); n != 1 {
    t.Fatalf("CollectReadingsWithOptions(): got %d scans, wanted 1", n)
  }
}

func TestCollectReadings_KeyErrorsAreNotRetried(t *testing.T) {
  wrongKey := append([]byte{0x77}, readouttest.Key[1:]...)
  shunt := newTestDevice(t, shuntAddr)

  scanner := &fakeScanner{advertisements: []ble.Advertisement{
    testRecordAdvertisement(t, shuntAddr, wrongKey, 1),
  }}

  got, _ := CollectReadingsWithOptions(scanner, context.Background(), []device.Device{shunt}, fastOptions())

  if !errors.Is(got[shunt].Error, readout.ErrIncorrectDeviceEncryptionKey) {
    t.Fatalf("CollectReadingsWithOptions(): got %v, wanted %v", got[shunt], readout.ErrIncorrectDeviceEncryptionKey)
  }

  if n := scanner.scanCount(); n != 1 {
    t.Fatalf("CollectReadingsWithOptions(): got %d scans, wanted 1", n)
  }
}

func TestCollectReadings_MissingDevicesAreRetried(t *testing.T) {
  shunt := newTestDevice(t, shuntAddr)
  scanner := &fakeScanner{}

  got, err := CollectReadingsWithOptions(scanner, context.Background(), []device.Device{shunt}, fastOptions())

  if !errors.Is(err, context.DeadlineExceeded) {
    t.Fatalf("CollectReadingsWithOptions(): got error %v, wanted %v", err, context.DeadlineExceeded)
  }

  if _, ok := got[shunt]; ok {
    t.Fatalf("CollectReadingsWithOptions(): got unexpected result %v", got[shunt])
  }

  if n := scanner.scanCount(); n != 3 {
    t.Fatalf("CollectReadingsWithOptions(): got %d scans, wanted 3", n)
  }
}

func TestIsRetriable(t *testing.T) {
  cases := []struct {
    err  error
    want bool
  }{
    {readout.ErrDataTooShort, true},
    {readout.ErrInvalidMode, true},
    {readout.ErrIncorrectDeviceEncryptionKey, false},
    {readout.UnsupportedDeviceTypeError{RecordType: 0x0d}, false},
  }

  for _, c := range cases {
    if got := isRetriable(c.err); got != c.want {
      t.Fatalf("isRetriable(%v): got %v, wanted %v", c.err, got, c.want)
    }
  }
}

func TestFailureReason(t *testing.T) {
  cases := []struct {
    err  error
    want string
  }{
    {readout.ErrIncorrectDeviceEncryptionKey, "wrong_key"},
    {readout.UnsupportedDeviceTypeError{RecordType: 0x0d}, "unsupported_device"},
    {readout.ErrDataTooShort, "too_short"},
    {readout.ErrInvalidMode, "invalid_value"},
  }

  for _, c := range cases {
    if got := failureReason(c.err); got != c.want {
      t.Fatalf("failureReason(%v): got %q, wanted %q", c.err, got, c.want)
    }
  }
}
