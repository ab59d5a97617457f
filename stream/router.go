package stream

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/robertof/go-victron-exporter/ble"
	"github.com/robertof/go-victron-exporter/readout"
)

// Scanner runs a single scan. *ble.Handle implements it.
type Scanner interface {
	Scan(ctx context.Context, opts ble.ScanOptions, onAdvertisement func(ble.Advertisement)) error
}

// Router shares one scan among the sources of several devices, since a controller can
// only run one scan at a time.
type Router struct {
	scanner Scanner

	mu     sync.Mutex
	routes map[string]*route
	done   chan struct{}
	err    error
}

type route struct {
	onRecord func(companyID uint16, data []byte)
	seen     chan struct{}
	seenOnce sync.Once
}

func NewRouter(scanner Scanner) *Router {
	return &Router{
		scanner: scanner,
		routes:  make(map[string]*route),
		done:    make(chan struct{}),
	}
}

// Run scans until ctx is done. Sources fail with the scan error once Run returns.
func (r *Router) Run(ctx context.Context) error {
	err := r.scanner.Scan(ctx, ble.ScanOptions{ReportDuplicates: true}, r.dispatch)

	r.mu.Lock()
	if err == nil {
		err = fmt.Errorf("%w: scan ended", ErrPermanent)
	}
	r.err = err
	close(r.done)
	r.mu.Unlock()

	return err
}

func (r *Router) dispatch(a ble.Advertisement) {
	r.mu.Lock()
	rt := r.routes[strings.ToLower(a.Addr().String())]
	r.mu.Unlock()

	if rt == nil {
		return
	}

	rt.seenOnce.Do(func() { close(rt.seen) })

	companyID, data, ok := readout.SplitManufacturerData(a.ManufacturerData())
	if !ok {
		return
	}

	rt.onRecord(companyID, data)
}

// Source returns the records of the device at addr. See BLESource for discoveryTimeout.
func (r *Router) Source(addr net.HardwareAddr, discoveryTimeout time.Duration) Source {
	return &routedSource{router: r, addr: strings.ToLower(addr.String()), discoveryTimeout: discoveryTimeout}
}

type routedSource struct {
	router           *Router
	addr             string
	discoveryTimeout time.Duration
}

func (s *routedSource) Scan(ctx context.Context, onRecord func(companyID uint16, data []byte)) error {
	rt := &route{onRecord: onRecord, seen: make(chan struct{})}

	r := s.router
	r.mu.Lock()

	select {
	case <-r.done:
		r.mu.Unlock()
		return r.err
	default:
	}

	if _, taken := r.routes[s.addr]; taken {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s is already being listened to", ErrPermanent, s.addr)
	}

	r.routes[s.addr] = rt
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.routes, s.addr)
		r.mu.Unlock()
	}()

	seen := rt.seen
	var timeout <-chan time.Time

	if s.discoveryTimeout > 0 {
		timer := time.NewTimer(s.discoveryTimeout)
		defer timer.Stop()

		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return r.err
		case <-seen:
			// found; keep waiting for ctx or the scan to end.
			seen, timeout = nil, nil
		case <-timeout:
			return fmt.Errorf("%w: no advertisement from %s within %v", ErrDeviceNotFound, s.addr, s.discoveryTimeout)
		}
	}
}
