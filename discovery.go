package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/readout"
	"github.com/robertof/go-victron-exporter/utils"
)

type deviceInfo struct {
  name string
  connectable bool
  services []string
  rssi int

  victron bool
  modelID uint16
  recordTypes []readout.RecordType
}

// inspectVictron reports whether manufacturerData is an Instant Readout status record. The
// header is readable without the key.
func inspectVictron(manufacturerData []byte) (modelID uint16, recordType readout.RecordType, ok bool) {
  companyID, data, ok := readout.SplitManufacturerData(manufacturerData)

  if !ok || companyID != readout.ManufacturerID || len(data) < 5 || data[0] != 0x10 {
    return 0, 0, false
  }

  return binary.LittleEndian.Uint16(data[2:4]), readout.RecordType(data[4]), true
}

func (info *deviceInfo) merge(a ble.Advertisement) {
  if info.name == "" {
    info.name = a.LocalName()
  }

  info.connectable = a.Connectable()
  info.rssi = a.RSSI()

  services := make(map[string]bool)

  for _, uuid := range info.services {
    services[uuid] = true
  }

  for _, uuid := range a.Services() {
    services[uuid.String()] = true
  }

  info.services = maps.Keys(services)
  slices.Sort(info.services)

  if modelID, recordType, ok := inspectVictron(a.ManufacturerData()); ok {
    info.victron = true
    info.modelID = modelID

    if !slices.Contains(info.recordTypes, recordType) {
      info.recordTypes = append(info.recordTypes, recordType)
    }
  }
}

func doDeviceDiscovery(cfg config) {
  log.Info().Msg("Starting in device discovery mode - collecting devices for 5 seconds...")

  handle, err := ble.Init(cfg.BluetoothDeviceId, ble.FlagScanTypeActive)

  if err != nil {
    log.Fatal().Err(err).Msg("Failed to initialize Bluetooth device")
  }

  ctx := ble.WrapContextWithSigHandler(
    context.WithTimeout(
      context.Background(),
      5 * time.Second,
    ),
  )

  devices := make(map[string]*deviceInfo)

  err = handle.ScanAll(ctx, func(a ble.Advertisement) {
    info, ok := devices[a.Addr().String()]

    if !ok {
      info = &deviceInfo{}
      devices[a.Addr().String()] = info
    }

    info.merge(a)

    log.Debug().
      Str("Addr", a.Addr().String()).
      Str("Name", a.LocalName()).
      Bool("Connectable", a.Connectable()).
      Int("RSSI", a.RSSI()).
      Hex("ManufacturerData", a.ManufacturerData()).
      Msg("Received device advertisement")
  })

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    log.Fatal().Err(err).Msg("Failed to initiate scan")
  }

  log.Info().Int("Found", len(devices)).Msg("Finished device discovery")

  addrs := maps.Keys(devices)
  slices.Sort(addrs)

  for _, addr := range addrs {
    data := devices[addr]

    ev := log.Info().
      Str("Addr", addr).
      Str("Name", data.name).
      Bool("Connectable", data.connectable).
      Int("RSSI", data.rssi).
      Strs("Services", data.services)

    if data.victron {
      ev = ev.
        Bool("Victron", true).
        Str("ModelID", fmt.Sprintf("0x%04x", data.modelID)).
        Array("RecordTypes", utils.ToZeroLogArray(data.recordTypes))
    }

    ev.Msg("Found device")
  }
}
