package ble

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-ble/ble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
  advertisementsCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "victron_exporter_ble_advertisements_total",
    Help: "Number of advertisements delivered to a scan handler",
  })
  scansCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "victron_exporter_ble_scans_total",
  })
  failedScansCounter = prometheus.NewCounter(prometheus.CounterOpts{
    Name: "victron_exporter_ble_failed_scans_total",
  })
)

type ScanOptions struct {
  // Only advertisements for which this returns true reach the handler. nil accepts everything.
  FilterAdvertisement func(Advertisement) bool
  // Overrides FlagReportDuplicates for this scan.
  ReportDuplicates bool
}

func WrapContextWithSigHandler(ctx context.Context, cancel func()) context.Context {
  return ble.WithSigHandler(ctx, cancel)
}

// Perform an active or passive scan and return every advertisement found.
func (h *Handle) ScanAll(ctx context.Context, onDevice func(Advertisement)) error {
  return h.Scan(ctx, ScanOptions{ReportDuplicates: true}, onDevice)
}

// Scan until ctx is done, handing each advertisement accepted by opts to onAdvertisement.
// Cancelling ctx is the normal way to end a scan and is not reported as an error.
func (h *Handle) Scan(ctx context.Context, opts ScanOptions, onAdvertisement func(Advertisement)) error {
  allowDup := opts.ReportDuplicates || h.flags.Has(FlagReportDuplicates)

  callback := func(a Advertisement) {
    if opts.FilterAdvertisement != nil && !opts.FilterAdvertisement(a) {
      return
    }

    advertisementsCounter.Inc()
    onAdvertisement(a)
  }

  scansCounter.Inc()
  err := h.dev.Scan(ctx, allowDup, callback)

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    failedScansCounter.Inc()
    return fmt.Errorf("failed to initiate scan: %w", err)
  }

  return nil
}

// Perform an active or passive scan for the specified addresses and pass it to
// an handler that determines whether to accept it - ending scanning for that address -
// or rejecting it.
func (h *Handle) ScanAddresses(
  parentCtx context.Context,
  addresses []net.HardwareAddr,
  onAdvertisement func(Advertisement) bool,
) error {
  addrMap := make(map[string]chan Advertisement)

  ctx, cancel := context.WithCancel(parentCtx)
  done := make(chan string)

  for _, addr := range addresses {
    addrStr := strings.ToLower(addr.String())
    ch := make(chan ble.Advertisement, 10)
    addrMap[addrStr] = ch

    // spawn a goroutine for each device in order to serialize advertisements coming in.
    go func() {
      for {
        select {
        case next := <-ch:
          if next == nil {
            return
          }

          advertisementsCounter.Inc()
          ok := onAdvertisement(next)

          if ok {
            done <- addrStr
            return
          }
        case <-ctx.Done():
          return
        }
      }
    }()
  }

  callback := func(a Advertisement) {
    addr := strings.ToLower(a.Addr().String())

    // the BLE lib could send an advertisement even after `Scan()` returns. do not waste
    // time enqueueing data if we're done.
    select {
    case <-ctx.Done():
      return
    default:
    }

    if ch, ok := addrMap[addr]; ok {
      log.Trace().
        Str("Advertisement", fmt.Sprintf("%+v", a)).
        Msg("ble: received advertisement, enqueueing")
      ch <- a
    }
  }

  // to avoid locking, spawn a separate goroutine whose job is just to cancel the main context
  // when all advertisements have been successfully processed.
  go func() {
    left := len(addresses)

    for {
      select {
      case <-done:
        left -= 1

        if left == 0 {
          cancel()
          return
        }
      case <-ctx.Done():
        return
      }
    }
  }()

  defer cancel()

  // duplicates are required: a rejected advertisement must be followed by a fresh one.
  scansCounter.Inc()
  err := h.dev.Scan(ctx, true, callback)

  // swallow context.Canceled errors which are caused by our explicit cancellations.
  if errors.Is(err, context.Canceled) {
    err = nil
  }

  if err != nil {
    failedScansCounter.Inc()
  }

  return err
}
