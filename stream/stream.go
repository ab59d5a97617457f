// Package stream turns the advertisements of one Victron device into a channel of decoded
// states.
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robertof/go-victron-exporter/readout"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
	DefaultMaxBackoff = 30 * time.Second
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	// Sources wrap ErrPermanent around failures that retrying cannot fix.
	ErrPermanent = errors.New("permanent source failure")
)

// Source yields the manufacturer data records broadcast by a single device until ctx is
// done. Returning nil before that means the source has nothing more to offer.
type Source interface {
	Scan(ctx context.Context, onRecord func(companyID uint16, data []byte)) error
}

// Result is exactly one of a decoded state or the error which ended the stream.
type Result struct {
	State readout.DeviceState
	Err   error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("result:error(%v)", r.Err)
	}

	return fmt.Sprintf("result:success(%v)", r.State)
}

type Options struct {
	// Drop records of device types without a parser instead of ending the stream.
	SkipUnsupported bool
	// Transient source failures tolerated in a row. Negative disables retries.
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Results buffered before the source is blocked.
	Buffer int
}

func DefaultOptions() Options {
	return Options{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultBackoff,
		MaxBackoff: DefaultMaxBackoff,
	}
}

// Open starts listening to src and decoding its records with key. The returned channel is
// closed when ctx is done, when the source is exhausted, or right after the first fatal
// error has been delivered.
func Open(ctx context.Context, src Source, key []byte, opts Options) <-chan Result {
	buffer := opts.Buffer
	if buffer < 0 {
		buffer = 0
	}

	s := &session{
		src:  src,
		key:  bytes.Clone(key),
		opts: opts,
		out:  make(chan Result, buffer),
	}

	go s.run(ctx)

	return s.out
}

type session struct {
	src  Source
	key  []byte
	opts Options

	out    chan Result
	mu     sync.Mutex
	closed bool
}

// emit delivers r unless the session is over. Sources may call back after Scan returned,
// hence the closed flag.
func (s *session) emit(ctx context.Context, r Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	close(s.out)
}

// attempt tracks one call to Source.Scan.
type attempt struct {
	mu       sync.Mutex
	fatal    error
	received bool
}

func (a *attempt) failed() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.fatal
}

func (a *attempt) gotRecords() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.received
}

func (s *session) handle(ctx context.Context, cancel func(), a *attempt, companyID uint16, data []byte) {
	if companyID != readout.ManufacturerID || a.failed() != nil {
		return
	}

	state, err := readout.Decode(data, s.key)

	switch {
	case err == nil:
		a.mu.Lock()
		a.received = true
		a.mu.Unlock()

		s.emit(ctx, Result{State: state})
	case !readout.IsFatal(err):
		log.Trace().Err(err).Hex("Data", data).Msg("stream: dropping record")
	case s.opts.SkipUnsupported && errors.Is(err, readout.ErrUnsupportedDeviceType):
		log.Debug().Err(err).Msg("stream: skipping unsupported record")
	default:
		a.mu.Lock()
		first := a.fatal == nil
		if first {
			a.fatal = err
		}
		a.mu.Unlock()

		if first {
			s.emit(ctx, Result{Err: err})
			cancel()
		}
	}
}

func (s *session) run(parentCtx context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)

	defer func() {
		// cancel first so that a blocked emit() lets go of the lock.
		cancel()
		s.close()
	}()

	if len(s.key) != readout.KeySize {
		s.emit(ctx, Result{Err: readout.ErrInvalidDeviceEncryptionKey})
		return
	}

	failures := 0
	backoff := s.opts.Backoff

	for {
		a := &attempt{}

		err := s.src.Scan(ctx, func(companyID uint16, data []byte) {
			s.handle(ctx, cancel, a, companyID, data)
		})

		if a.failed() != nil || parentCtx.Err() != nil {
			return
		}

		if err == nil {
			log.Debug().Msg("stream: source exhausted")
			return
		}

		if errors.Is(err, ErrDeviceNotFound) || errors.Is(err, ErrPermanent) {
			s.emit(ctx, Result{Err: err})
			return
		}

		if a.gotRecords() {
			failures = 0
			backoff = s.opts.Backoff
		}

		failures++

		if failures > s.opts.MaxRetries {
			s.emit(ctx, Result{Err: fmt.Errorf("giving up after %d attempts: %w", failures, err)})
			return
		}

		log.Warn().
			Err(err).
			Int("Attempt", failures).
			Dur("Backoff", backoff).
			Msg("stream: source failed, retrying")

		if backoff > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}

		backoff *= 2
		if s.opts.MaxBackoff > 0 && backoff > s.opts.MaxBackoff {
			backoff = s.opts.MaxBackoff
		}
	}
}
