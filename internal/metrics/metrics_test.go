package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ShayCichocki/trimwatch/internal/status"
)

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.ObserveSnapshot(status.Idle())
	r.DecodeError()
	r.Resubscribe()
	r.TransportFailure()
	r.Ack()
	r.SetPhase(status.PhaseDone)
}

func TestRecorder_Exposition(t *testing.T) {
	r := NewRecorder()
	r.ObserveSnapshot(status.Phase{Kind: status.PhaseAdjusting})
	r.ObserveSnapshot(status.Phase{Kind: status.PhaseAdjusting})
	r.DecodeError()
	r.Resubscribe()
	r.TransportFailure()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	wants := []string{
		"trimwatch_snapshots_total 2",
		"trimwatch_decode_errors_total 1",
		"trimwatch_resubscribes_total 1",
		"trimwatch_transport_failures_total 1",
		"trimwatch_acks_total 0",
		`trimwatch_phase{phase="Adjusting"} 1`,
		`trimwatch_phase{phase="Idle"} 0`,
	}
	for _, w := range wants {
		if !strings.Contains(text, w) {
			t.Errorf("expected %q in exposition:\n%s", w, text)
		}
	}
}

func TestRecorder_AckMarksIdle(t *testing.T) {
	r := NewRecorder()
	r.SetPhase(status.PhaseAdjusting)
	r.Ack()

	mfs, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "trimwatch_phase" {
			continue
		}
		for _, m := range mf.GetMetric() {
			label := m.GetLabel()[0].GetValue()
			want := 0.0
			if label == "Idle" {
				want = 1
			}
			if got := m.GetGauge().GetValue(); got != want {
				t.Errorf("phase %s: expected %v, got %v", label, want, got)
			}
		}
	}
}
