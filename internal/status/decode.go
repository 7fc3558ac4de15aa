package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeError reports a structurally malformed document. The stream itself is
// still usable after a DecodeError.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode status document: %s: %v", e.Reason, e.Err)
	}
	return "decode status document: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func decodeErr(reason string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Err: err}
}

// shape is a known document schema identified by its required keys.
type shape struct {
	kind     EnvelopeKind
	required []string
	absent   []string
}

var shapes = []shape{
	{kind: KindStatus, required: []string{"report", "reset_marker"}},
	{kind: KindAck, required: []string{"success"}, absent: []string{"report"}},
}

func (s shape) matches(doc map[string]json.RawMessage) bool {
	for _, k := range s.required {
		if _, ok := doc[k]; !ok {
			return false
		}
	}
	for _, k := range s.absent {
		if _, ok := doc[k]; ok {
			return false
		}
	}
	return true
}

// Decode classifies and decodes one stream document.
//
// An explicit "kind" marker ("status" or "ack") decides the classification when
// present. Otherwise the document must match exactly one known shape by its
// required keys; additional fields are ignored.
func Decode(raw []byte) (Envelope, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Envelope{}, decodeErr("document is not a JSON object", err)
	}
	if doc == nil {
		return Envelope{}, decodeErr("document is null", nil)
	}

	kind, err := classify(doc)
	if err != nil {
		return Envelope{}, err
	}

	switch kind {
	case KindAck:
		ack, err := decodeAck(raw)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: KindAck, Ack: ack}, nil
	default:
		snap, cont, err := decodeStatus(raw)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Kind: KindStatus, Snapshot: snap, Continue: cont}, nil
	}
}

func classify(doc map[string]json.RawMessage) (EnvelopeKind, error) {
	if marker, ok := doc["kind"]; ok {
		var name string
		if err := json.Unmarshal(marker, &name); err != nil {
			return 0, decodeErr("kind marker is not a string", err)
		}
		switch name {
		case KindStatus.String():
			return KindStatus, nil
		case KindAck.String():
			return KindAck, nil
		default:
			return 0, decodeErr(fmt.Sprintf("unknown kind marker %q", name), nil)
		}
	}

	var matched []EnvelopeKind
	for _, s := range shapes {
		if s.matches(doc) {
			matched = append(matched, s.kind)
		}
	}
	switch len(matched) {
	case 1:
		return matched[0], nil
	case 0:
		return 0, decodeErr("document matches no known shape", nil)
	default:
		return 0, decodeErr("document matches more than one shape", nil)
	}
}

type wireAck struct {
	Success *bool   `json:"success"`
	Message *string `json:"message"`
	Error   *string `json:"error"`
}

func decodeAck(raw []byte) (*Acknowledgment, error) {
	var w wireAck
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, decodeErr("malformed acknowledgment", err)
	}
	if w.Success == nil {
		return nil, decodeErr("acknowledgment without success flag", nil)
	}
	ack := &Acknowledgment{Success: *w.Success}
	if w.Message != nil {
		ack.Message = *w.Message
	}
	if w.Error != nil {
		ack.Error = *w.Error
	}
	return ack, nil
}

type wireStatus struct {
	ProgressString *string     `json:"progress_string"`
	Report         *wireReport `json:"report"`
	ResetMarker    *bool       `json:"reset_marker"`
}

type wireReport struct {
	Status           json.RawMessage  `json:"status"`
	MeasureChannelID *int             `json:"measure_channel_id"`
	BurnChannelID    *int             `json:"burn_channel_id"`
	RezonatorInfo    *[]wireResonator `json:"rezonator_info"`
}

type wireResonator struct {
	ID          *int            `json:"id"`
	CurrentStep *int            `json:"current_step"`
	InitialFreq *float64        `json:"initial_freq"`
	CurrentFreq *float64        `json:"current_freq"`
	State       json.RawMessage `json:"state"`
}

func decodeStatus(raw []byte) (*Snapshot, bool, error) {
	var w wireStatus
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, decodeErr("malformed status report", err)
	}
	if w.Report == nil {
		return nil, false, decodeErr("status report without report payload", nil)
	}
	if w.Report.RezonatorInfo == nil {
		return nil, false, decodeErr("report without rezonator_info", nil)
	}

	phase, err := decodePhase(w.Report.Status)
	if err != nil {
		return nil, false, err
	}

	snap := &Snapshot{
		Phase:      phase,
		Resonators: make([]ResonatorRecord, 0, len(*w.Report.RezonatorInfo)),
	}
	if w.ProgressString != nil {
		snap.ProgressText = *w.ProgressString
	}
	if len(*w.Report.RezonatorInfo) > MaxChannels {
		return nil, false, decodeErr(fmt.Sprintf("%d resonators, at most %d supported", len(*w.Report.RezonatorInfo), MaxChannels), nil)
	}
	measure, err := channelRef("measure_channel_id", w.Report.MeasureChannelID)
	if err != nil {
		return nil, false, err
	}
	snap.MeasureChannel = measure
	burn, err := channelRef("burn_channel_id", w.Report.BurnChannelID)
	if err != nil {
		return nil, false, err
	}
	snap.BurnChannel = burn

	for i, r := range *w.Report.RezonatorInfo {
		rec := ResonatorRecord{
			ID:          ChannelID(i),
			InitialFreq: r.InitialFreq,
			CurrentFreq: r.CurrentFreq,
			State:       decodeState(r.State),
		}
		if r.ID != nil {
			rec.ID = ChannelID(*r.ID)
			if !rec.ID.Valid() {
				return nil, false, decodeErr(fmt.Sprintf("resonator id %d out of range [0, %d)", *r.ID, MaxChannels), nil)
			}
		}
		if r.CurrentStep != nil {
			rec.CurrentStep = *r.CurrentStep
		}
		snap.Resonators = append(snap.Resonators, rec)
	}

	cont := false
	if w.ResetMarker != nil {
		cont = *w.ResetMarker
	}
	return snap, cont, nil
}

// channelRef converts an optional channel field, rejecting out-of-range ids.
func channelRef(field string, id *int) (*ChannelID, error) {
	if id == nil {
		return nil, nil
	}
	ch := ChannelID(*id)
	if !ch.Valid() {
		return nil, decodeErr(fmt.Sprintf("%s %d out of range [0, %d)", field, *id, MaxChannels), nil)
	}
	return &ch, nil
}

// decodePhase accepts a bare variant name or a single-key object carrying the
// variant payload.
func decodePhase(raw json.RawMessage) (Phase, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Phase{}, decodeErr("report without status", nil)
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return phaseByName(name, nil)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Phase{}, decodeErr("status is neither a string nor an object", err)
	}
	if len(obj) != 1 {
		return Phase{}, decodeErr(fmt.Sprintf("status object has %d variants, want 1", len(obj)), nil)
	}
	for name, payload := range obj {
		return phaseByName(name, payload)
	}
	return Phase{}, nil
}

func phaseByName(name string, payload json.RawMessage) (Phase, error) {
	switch name {
	case "Idle":
		return Phase{Kind: PhaseIdle}, nil
	case "Adjusting":
		return Phase{Kind: PhaseAdjusting}, nil
	case "Done":
		return Phase{Kind: PhaseDone}, nil
	case "SearchingEdge":
		p := Phase{Kind: PhaseSearchingEdge}
		if len(payload) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
			return p, nil
		}
		var body struct {
			Ch   *int `json:"ch"`
			Step *int `json:"step"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return Phase{}, decodeErr("malformed SearchingEdge payload", err)
		}
		if body.Ch != nil {
			p.Channel = ChannelID(*body.Ch)
		}
		if body.Step != nil {
			p.Step = *body.Step
		}
		return p, nil
	case "Error":
		p := Phase{Kind: PhaseError}
		if len(payload) == 0 {
			return p, nil
		}
		var msg *string
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Phase{}, decodeErr("malformed Error payload", err)
		}
		if msg != nil {
			p.Message = *msg
		}
		return p, nil
	default:
		return Phase{}, decodeErr(fmt.Sprintf("unknown status variant %q", name), nil)
	}
}

// decodeState keeps the state code verbatim. Non-string codes are kept as
// their compact JSON text so that changes remain visible.
func decodeState(raw json.RawMessage) StateCode {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return StateCode(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return StateCode(raw)
	}
	return StateCode(buf.String())
}
