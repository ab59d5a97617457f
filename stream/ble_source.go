package stream

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/readout"
	"github.com/rs/zerolog/log"
)

// BLESource listens for a device by local name or by address. When both are set the
// address wins.
type BLESource struct {
	Handle *ble.Handle
	Name   string
	Addr   net.HardwareAddr
	// Scans which see no matching advertisement within this window fail with
	// ErrDeviceNotFound. Zero waits forever.
	DiscoveryTimeout time.Duration
}

func (s *BLESource) String() string {
	if s.Addr != nil {
		return s.Addr.String()
	}

	return fmt.Sprintf("%q", s.Name)
}

// Matches reports whether a was broadcast by the device this source is listening for.
func (s *BLESource) Matches(a ble.Advertisement) bool {
	if s.Addr != nil {
		return strings.EqualFold(a.Addr().String(), s.Addr.String())
	}

	return s.Name != "" && a.LocalName() == s.Name
}

func (s *BLESource) Scan(ctx context.Context, onRecord func(companyID uint16, data []byte)) error {
	if s.Handle == nil {
		return fmt.Errorf("%w: no bluetooth handle", ErrPermanent)
	}

	if s.Addr == nil && s.Name == "" {
		return fmt.Errorf("%w: either a name or an address is required", ErrPermanent)
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var found, timedOut atomic.Bool

	if s.DiscoveryTimeout > 0 {
		timer := time.AfterFunc(s.DiscoveryTimeout, func() {
			if !found.Load() {
				timedOut.Store(true)
				cancel()
			}
		})

		defer timer.Stop()
	}

	err := s.Handle.Scan(scanCtx, ble.ScanOptions{
		FilterAdvertisement: s.Matches,
		ReportDuplicates:    true,
	}, func(a ble.Advertisement) {
		if found.CompareAndSwap(false, true) {
			log.Debug().
				Stringer("Source", s).
				Str("Addr", a.Addr().String()).
				Str("LocalName", a.LocalName()).
				Msg("stream: found device")
		}

		companyID, data, ok := readout.SplitManufacturerData(a.ManufacturerData())

		if !ok {
			return
		}

		onRecord(companyID, data)
	})

	if timedOut.Load() {
		return fmt.Errorf("%w: no advertisement from %v within %v", ErrDeviceNotFound, s, s.DiscoveryTimeout)
	}

	return err
}
