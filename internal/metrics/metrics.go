// Package metrics exposes monitoring counters over Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Recorder holds the monitor's collectors. A nil Recorder records nothing.
type Recorder struct {
	// Snapshots counts rendered status snapshots.
	Snapshots prometheus.Counter
	// DecodeErrors counts stream documents that were skipped.
	DecodeErrors prometheus.Counter
	// Resubscribes counts stream reopenings requested by the controller.
	Resubscribes prometheus.Counter
	// TransportFailures counts failed subscriptions and broken streams.
	TransportFailures prometheus.Counter
	// Acks counts acknowledgments received on the stream.
	Acks prometheus.Counter
	// Phase is 1 for the current phase label and 0 for the others.
	Phase *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

var phaseKinds = []status.PhaseKind{
	status.PhaseIdle,
	status.PhaseSearchingEdge,
	status.PhaseAdjusting,
	status.PhaseDone,
	status.PhaseError,
}

// NewRecorder creates the collectors and registers them with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trimwatch_snapshots_total",
			Help: "Total number of status snapshots rendered",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trimwatch_decode_errors_total",
			Help: "Total number of malformed stream documents skipped",
		}),
		Resubscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trimwatch_resubscribes_total",
			Help: "Total number of stream reopenings requested by the controller",
		}),
		TransportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trimwatch_transport_failures_total",
			Help: "Total number of failed subscriptions or broken streams",
		}),
		Acks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trimwatch_acks_total",
			Help: "Total number of acknowledgments received on the stream",
		}),
		Phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trimwatch_phase",
			Help: "Current calibration phase (1 for the active label)",
		}, []string{"phase"}),
		gatherer: reg,
	}
	reg.MustRegister(r.Snapshots, r.DecodeErrors, r.Resubscribes, r.TransportFailures, r.Acks, r.Phase)
	for _, k := range phaseKinds {
		r.Phase.WithLabelValues(k.String()).Set(0)
	}
	return r
}

// Gatherer returns the registry holding the collectors.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// ObserveSnapshot counts a snapshot and updates the phase gauge.
func (r *Recorder) ObserveSnapshot(p status.Phase) {
	if r == nil {
		return
	}
	r.Snapshots.Inc()
	r.SetPhase(p.Kind)
}

// SetPhase marks kind as the current phase.
func (r *Recorder) SetPhase(kind status.PhaseKind) {
	if r == nil {
		return
	}
	for _, k := range phaseKinds {
		v := 0.0
		if k == kind {
			v = 1
		}
		r.Phase.WithLabelValues(k.String()).Set(v)
	}
}

// DecodeError counts a skipped document.
func (r *Recorder) DecodeError() {
	if r != nil {
		r.DecodeErrors.Inc()
	}
}

// Resubscribe counts a controller-requested reopening.
func (r *Recorder) Resubscribe() {
	if r != nil {
		r.Resubscribes.Inc()
	}
}

// TransportFailure counts a broken or refused stream.
func (r *Recorder) TransportFailure() {
	if r != nil {
		r.TransportFailures.Inc()
	}
}

// Ack counts an acknowledgment and marks the phase idle.
func (r *Recorder) Ack() {
	if r == nil {
		return
	}
	r.Acks.Inc()
	r.SetPhase(status.PhaseIdle)
}

// Handler returns the /metrics handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, r *Recorder) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
