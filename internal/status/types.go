// Package status decodes the controller's auto-adjust status stream into typed
// snapshots and acknowledgments.
//
// The stream endpoint delivers newline-delimited JSON documents in bursts. Each
// document is either a status report wrapped with a continuation flag or a
// plain acknowledgment (the controller's answer when no run is active or when a
// control command was processed). Decode classifies every document into an
// explicit Envelope; callers never inspect raw fields.
package status

import (
	"fmt"
)

// ChannelID identifies a resonator channel (0-based).
type ChannelID int

// MaxChannels bounds channel ids accepted from the controller. Ids are used as
// row indexes, so anything outside [0, MaxChannels) is rejected.
const MaxChannels = 1024

// Valid reports whether id is within [0, MaxChannels).
func (id ChannelID) Valid() bool {
	return id >= 0 && id < MaxChannels
}

// PhaseKind is the discriminant of Phase.
type PhaseKind int

const (
	// PhaseIdle means no process is running.
	PhaseIdle PhaseKind = iota
	// PhaseSearchingEdge means the hardware sweeps a channel for a usable starting point.
	PhaseSearchingEdge
	// PhaseAdjusting means a channel is being trimmed toward the target.
	PhaseAdjusting
	// PhaseDone means all channels completed.
	PhaseDone
	// PhaseError means the run aborted.
	PhaseError
)

// String returns the wire name of the phase kind.
func (k PhaseKind) String() string {
	switch k {
	case PhaseIdle:
		return "Idle"
	case PhaseSearchingEdge:
		return "SearchingEdge"
	case PhaseAdjusting:
		return "Adjusting"
	case PhaseDone:
		return "Done"
	case PhaseError:
		return "Error"
	default:
		return fmt.Sprintf("PhaseKind(%d)", int(k))
	}
}

// Phase is the current phase of the calibration process. Channel and Step are
// only meaningful for PhaseSearchingEdge, Message only for PhaseError.
type Phase struct {
	Kind    PhaseKind
	Channel ChannelID
	Step    int
	Message string
}

// Idle returns the idle phase.
func Idle() Phase {
	return Phase{Kind: PhaseIdle}
}

// Terminal reports whether no further transitions are expected in this run.
func (p Phase) Terminal() bool {
	return p.Kind == PhaseDone || p.Kind == PhaseError
}

// Active reports whether the hardware is working on a channel.
func (p Phase) Active() bool {
	return p.Kind == PhaseSearchingEdge || p.Kind == PhaseAdjusting
}

// String renders the phase for humans.
func (p Phase) String() string {
	switch p.Kind {
	case PhaseSearchingEdge:
		return fmt.Sprintf("SearchingEdge(channel %d, step %d)", int(p.Channel)+1, p.Step)
	case PhaseError:
		return fmt.Sprintf("Error(%s)", p.Message)
	default:
		return p.Kind.String()
	}
}

// StateCode is the controller's per-resonator classification. It is displayed
// verbatim and only compared for change.
type StateCode string

// Known state codes emitted by the controller.
const (
	StateUnknown  StateCode = "unknown"
	StateUpper    StateCode = "upper"
	StateOK       StateCode = "ok"
	StateLower    StateCode = "lower"
	StateLowerest StateCode = "lowerest"
)

// Icon returns the status glyph the controller uses in its own reports, or ""
// for codes it does not know.
func (s StateCode) Icon() string {
	switch s {
	case StateUnknown:
		return "-"
	case StateUpper:
		return "▲"
	case StateOK:
		return "✔"
	case StateLower:
		return "▽"
	case StateLowerest:
		return "▼"
	default:
		return ""
	}
}

// ResonatorRecord holds the latest readings of one channel. A nil frequency
// means the controller has not reported one yet.
type ResonatorRecord struct {
	ID          ChannelID `json:"id" yaml:"id"`
	CurrentStep int       `json:"current_step" yaml:"current_step"`
	InitialFreq *float64  `json:"initial_freq" yaml:"initial_freq"`
	CurrentFreq *float64  `json:"current_freq" yaml:"current_freq"`
	State       StateCode `json:"state" yaml:"state"`
}

// Initial returns the initial frequency or 0 when unset.
func (r ResonatorRecord) Initial() float64 {
	if r.InitialFreq == nil {
		return 0
	}
	return *r.InitialFreq
}

// Current returns the current frequency or 0 when unset.
func (r ResonatorRecord) Current() float64 {
	if r.CurrentFreq == nil {
		return 0
	}
	return *r.CurrentFreq
}

// Snapshot is one decoded status report. Snapshots are replaced wholesale on
// every document and must not be mutated after decoding.
type Snapshot struct {
	Phase          Phase             `json:"-" yaml:"-"`
	MeasureChannel *ChannelID        `json:"measure_channel,omitempty" yaml:"measure_channel,omitempty"`
	BurnChannel    *ChannelID        `json:"burn_channel,omitempty" yaml:"burn_channel,omitempty"`
	Resonators     []ResonatorRecord `json:"resonators" yaml:"resonators"`
	ProgressText   string            `json:"progress_text" yaml:"progress_text"`
}

// Acknowledgment is the controller's answer to a control action or to a status
// subscription when no run is active.
type Acknowledgment struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// EnvelopeKind discriminates Envelope.
type EnvelopeKind int

const (
	// KindStatus carries a Snapshot and a continuation flag.
	KindStatus EnvelopeKind = iota + 1
	// KindAck carries an Acknowledgment.
	KindAck
)

// String returns the marker name of the kind.
func (k EnvelopeKind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindAck:
		return "ack"
	default:
		return "invalid"
	}
}

// Envelope is one classified stream document. Exactly one of Snapshot and Ack
// is set, according to Kind.
type Envelope struct {
	Kind     EnvelopeKind
	Snapshot *Snapshot
	// Continue asks the client to reopen the stream right after this document.
	Continue bool
	Ack      *Acknowledgment
}
