package collector

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/collector/model"
	"github.com/robertof/go-victron-exporter/device"
	"github.com/robertof/go-victron-exporter/readout"
	"github.com/robertof/go-victron-exporter/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

const (
	outcomeDecoded = "decoded"
	outcomeIgnored = "ignored"
	outcomeFailed  = "failed"
)

var decodedRecordsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "victron_exporter_records_total",
	Help: "Advertisements received from configured devices, by decoding outcome",
}, []string{"outcome", "reason"})

var failureReasons = map[error]string{
	readout.ErrIncorrectDeviceEncryptionKey: "wrong_key",
	readout.ErrInvalidDeviceEncryptionKey:   "invalid_key",
	readout.ErrUnsupportedDeviceType:        "unsupported_device",
	readout.ErrRecordTooBig:                 "too_big",
	readout.ErrDataTooShort:                 "too_short",
	readout.ErrDecryptionFailed:             "decryption",
}

// the sentinels are unrelated, so at most one of them matches and order is irrelevant.
var failureTargets = maps.Keys(failureReasons)

// failureReason labels err for decodedRecordsCounter. Anything else is a value outside
// of its enumeration.
func failureReason(err error) string {
	if target, ok := utils.FirstMatch(err, failureTargets...); ok {
		return failureReasons[target]
	}

	return "invalid_value"
}

// Scanner is the part of *ble.Handle used for collection.
type Scanner interface {
	ScanAddresses(ctx context.Context, addresses []net.HardwareAddr, onAdvertisement func(ble.Advertisement) bool) error
}

func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(decodedRecordsCounter)
}

func collectViaScan(
	ctx context.Context,
	scanner Scanner,
	devices []device.Device,
	ch chan model.DeviceResult,
) error {
	type DeviceContext struct {
		device.Device
		sync.Once
	}

	var numLeft int
	var numLeftMu sync.Mutex

	numLeft = len(devices)
	addresses := make([]net.HardwareAddr, len(devices))
	deviceMap := make(map[string]*DeviceContext)

	for i, dev := range devices {
		addresses[i] = dev.Addr()
		deviceMap[strings.ToLower(dev.Addr().String())] = &DeviceContext{Device: dev}
	}

	err := scanner.ScanAddresses(ctx, addresses, func(a ble.Advertisement) bool {
		deviceCtx := deviceMap[strings.ToLower(a.Addr().String())]

		if deviceCtx == nil {
			log.Warn().
				Str("Address", a.Addr().String()).
				Str("LocalName", a.LocalName()).
				Hex("ManufacturerData", a.ManufacturerData()).
				Msg("Received advertisement from unknown device!")

			return false
		}

		reading, err := deviceCtx.ParseAdvertisement(a)

		if errors.Is(err, device.ErrNoReading) {
			decodedRecordsCounter.WithLabelValues(outcomeIgnored, "").Inc()

			log.Trace().
				Err(err).
				Stringer("Device", deviceCtx.Device).
				Hex("ManufacturerData", a.ManufacturerData()).
				Msg("collectViaScan: advertisement carries no reading, waiting for the next one")

			return false
		}

		if err != nil {
			decodedRecordsCounter.WithLabelValues(outcomeFailed, failureReason(err)).Inc()
		} else {
			decodedRecordsCounter.WithLabelValues(outcomeDecoded, "").Inc()
		}

		log.Trace().
			Err(err).
			Stringer("Reading", reading).
			Stringer("Device", deviceCtx.Device).
			Msg("collectViaScan: parsed device advertisement")

		result := model.DeviceResult{
			Device: deviceCtx.Device,
			Result: model.Result{
				Reading: reading,
				Error:   err,
			},
		}

		select {
		case <-ctx.Done():
			return true // context is canceled, let's get out of the way
		case ch <- result:
		}

		deviceCtx.Do(func() {
			numLeftMu.Lock()
			numLeft -= 1
			numLeftMu.Unlock()
		})

		return err == nil // consider ourselves happy when there is no error parsing the advertisement
	})

	numLeftMu.Lock()
	defer numLeftMu.Unlock()

	// swallow deadline exceeded errors if we got results for all devices
	if errors.Is(err, context.DeadlineExceeded) && numLeft == 0 {
		err = nil
	}

	return err
}
