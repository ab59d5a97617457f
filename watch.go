package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/device"
	"github.com/robertof/go-victron-exporter/device/victron"
	"github.com/robertof/go-victron-exporter/readout"
	"github.com/robertof/go-victron-exporter/stream"
	"github.com/rs/zerolog/log"
)

// streamer is implemented by devices able to stream decoded readings.
type streamer interface {
  device.Device
  Stream(ctx context.Context, src stream.Source, opts stream.Options) <-chan stream.Result
}

var _ streamer = (*victron.Device)(nil)

func doWatch(cfg config, handle *ble.Handle) {
  ctx, cancel := context.WithCancel(context.Background())
  ctx = ble.WrapContextWithSigHandler(ctx, cancel)

  defer cancel()

  opts := stream.DefaultOptions()
  opts.MaxRetries = cfg.MaxRetries
  opts.Backoff = cfg.Backoff
  // one slow consumer must not stall the scan shared by every device.
  opts.Buffer = 16

  router := stream.NewRouter(handle)

  go func() {
    if err := router.Run(ctx); ctx.Err() == nil {
      log.Error().Err(err).Msg("Scan failed, stopping")
      cancel()
    }
  }()

  var wg sync.WaitGroup

  for _, dev := range cfg.Devices {
    s, ok := dev.(streamer)

    if !ok {
      log.Warn().Stringer("Device", dev).Msg("Device does not support streaming, skipping")
      continue
    }

    wg.Add(1)

    go func() {
      defer wg.Done()

      watchDevice(ctx, s, s.Stream(ctx, router.Source(s.Addr(), cfg.DiscoveryTimeout), opts))
    }()
  }

  wg.Wait()

  log.Info().Msg("All streams closed")
}

func watchDevice(ctx context.Context, dev device.Device, results <-chan stream.Result) {
  log.Info().Stringer("Device", dev).Msg("Watching device")

  for res := range results {
    if res.Err != nil {
      log.Error().
        Stringer("Device", dev).
        Err(res.Err).
        Msg("Stream failed")

      continue
    }

    logReading(dev, res.State)
  }

  if ctx.Err() == nil {
    log.Warn().Stringer("Device", dev).Msg("Stream ended")
  }
}

func logReading(dev device.Device, state readout.DeviceState) {
  ev := log.Info().
    Stringer("Device", dev).
    Stringer("Type", state.RecordType())

  if data, err := json.Marshal(state); err == nil {
    ev = ev.RawJSON("State", data)
  } else {
    ev = ev.Stringer("State", state)
  }

  ev.Msg("Received reading")
}
