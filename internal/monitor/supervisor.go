// Package monitor keeps a live view of the controller's auto-adjust status.
//
// The status endpoint closes after each burst, so the supervisor reopens it
// whenever the controller asks to continue. At most one subscription is
// outstanding: a new one is opened only after the previous stream is closed,
// and starting a new run of the loop tears the old one down first.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ShayCichocki/trimwatch/internal/logging"
	"github.com/ShayCichocki/trimwatch/internal/metrics"
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// DefaultIdleLabel is the progress text shown after monitoring stops.
const DefaultIdleLabel = "Waiting"

// ErrEmptyStream is reported when the controller closes a stream without
// delivering a single document.
var ErrEmptyStream = errors.New("status stream closed without a document")

// Stream is one open subscription. Next returns io.EOF on a clean end and a
// *status.DecodeError for a document that could not be classified.
type Stream interface {
	Next() (status.Envelope, error)
	Close() error
}

// Source opens status subscriptions.
type Source interface {
	Subscribe(ctx context.Context) (Stream, error)
}

// Sink receives the supervisor's rendering requests.
type Sink interface {
	Render(snap status.Snapshot)
	Reset(label string)
	Failure(err error)
}

// Options configures a Supervisor.
type Options struct {
	// IdleLabel is shown when monitoring stops. Defaults to DefaultIdleLabel.
	IdleLabel string
	// NewBackOff builds the retry policy for transport failures. Defaults to
	// an exponential backoff capped at two minutes.
	NewBackOff func() backoff.BackOff
	Logger     *logging.Logger
	Metrics    *metrics.Recorder
}

// DefaultBackOff returns the reconnect policy used when none is configured.
func DefaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
}

// Supervisor owns the single live monitoring loop.
type Supervisor struct {
	src  Source
	sink Sink
	opts Options
	log  *logging.Logger

	mu      sync.Mutex
	current *Handle
}

// New creates a Supervisor reading from src and rendering into sink.
func New(src Source, sink Sink, opts Options) *Supervisor {
	if opts.IdleLabel == "" {
		opts.IdleLabel = DefaultIdleLabel
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}
	return &Supervisor{
		src:  src,
		sink: sink,
		opts: opts,
		log:  opts.Logger.With("monitor"),
	}
}

// Start begins monitoring. A loop that is already running is torn down first
// and its in-flight documents are discarded.
func (s *Supervisor) Start(ctx context.Context) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.halt()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ID:     uuid.New().String(),
		sup:    s,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = h
	s.log.Printf("start %s", h.ID)
	go s.run(loopCtx, h)
	return h
}

// Current returns the most recently started handle, or nil.
func (s *Supervisor) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Stop stops the current loop, if any, and always resets the sink to idle.
func (s *Supervisor) Stop() {
	h := s.Current()
	if h == nil {
		s.log.Printf("stop: no loop running")
		s.sink.Reset(s.opts.IdleLabel)
		return
	}
	h.Stop()
}

// Handle identifies one run of the monitoring loop.
type Handle struct {
	ID string

	sup    *Supervisor
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Stop cancels the loop, waits for it to exit and then renders the idle
// phase with the idle label. Documents still in flight are discarded. Every
// call on the current handle renders idle again, even after the loop exited.
func (h *Handle) Stop() {
	h.halt()
	if h.sup.Current() != h {
		// Replaced by a newer loop; the sink belongs to it now.
		return
	}
	h.sup.log.Printf("stop %s", h.ID)
	h.sup.sink.Reset(h.sup.opts.IdleLabel)
}

// Done is closed when the loop exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the transport error that ended the loop after retries were
// exhausted, or nil.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) halt() {
	h.cancel()
	<-h.done
}

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

type outcome int

const (
	outcomeStop outcome = iota
	outcomeResubscribe
	outcomeFailed
)

func (s *Supervisor) run(ctx context.Context, h *Handle) {
	defer close(h.done)

	bo := backoff.WithContext(s.opts.NewBackOff(), ctx)
	bo.Reset()

	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := s.src.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.retry(ctx, h, bo, fmt.Errorf("subscribe: %w", err)) {
				return
			}
			continue
		}

		res, err := s.drain(ctx, stream, bo)
		stream.Close()

		switch res {
		case outcomeResubscribe:
			continue
		case outcomeFailed:
			if !s.retry(ctx, h, bo, err) {
				return
			}
		default:
			return
		}
	}
}

// drain reads one subscription until it ends or asks to be reopened.
func (s *Supervisor) drain(ctx context.Context, stream Stream, bo backoff.BackOff) (outcome, error) {
	stop := context.AfterFunc(ctx, func() { stream.Close() })
	defer stop()

	delivered := false
	for {
		env, err := stream.Next()
		if ctx.Err() != nil {
			return outcomeStop, nil
		}

		if err != nil {
			var decErr *status.DecodeError
			switch {
			case errors.As(err, &decErr):
				s.log.Printf("skip document: %v", err)
				s.opts.Metrics.DecodeError()
				delivered = true
				continue
			case errors.Is(err, io.EOF):
				if !delivered {
					return outcomeFailed, ErrEmptyStream
				}
				return outcomeStop, nil
			default:
				return outcomeFailed, fmt.Errorf("read status stream: %w", err)
			}
		}

		delivered = true
		bo.Reset()

		switch env.Kind {
		case status.KindAck:
			s.log.Printf("ack: success=%v message=%q error=%q", env.Ack.Success, env.Ack.Message, env.Ack.Error)
			s.opts.Metrics.Ack()
			s.sink.Reset(s.opts.IdleLabel)
			return outcomeStop, nil

		case status.KindStatus:
			s.opts.Metrics.ObserveSnapshot(env.Snapshot.Phase)
			s.sink.Render(*env.Snapshot)
			if env.Continue {
				s.opts.Metrics.Resubscribe()
				return outcomeResubscribe, nil
			}
		}
	}
}

// retry reports the failure and waits for the next attempt. It returns false
// when the loop should exit.
func (s *Supervisor) retry(ctx context.Context, h *Handle, bo backoff.BackOff, err error) bool {
	s.log.Printf("transport failure: %v", err)
	s.opts.Metrics.TransportFailure()
	s.sink.Failure(err)

	next := bo.NextBackOff()
	if next == backoff.Stop {
		if ctx.Err() == nil {
			s.log.Printf("giving up after transport failures: %v", err)
			h.setErr(err)
		}
		return false
	}

	t := time.NewTimer(next)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
