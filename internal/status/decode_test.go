package status

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

const sampleReport = `{"progress_string":"Настройка канала 3","report":{"status":"Adjusting","measure_channel_id":2,"burn_channel_id":5,"rezonator_info":[{"id":0,"current_step":12,"initial_freq":32740.5,"current_freq":32761.25,"state":"ok"},{"id":1,"current_step":0,"initial_freq":null,"current_freq":32700.1,"state":"lower"}]},"reset_marker":false}`

func TestDecode_StatusReport(t *testing.T) {
	env, err := Decode([]byte(sampleReport))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindStatus {
		t.Fatalf("expected KindStatus, got %v", env.Kind)
	}
	if env.Continue {
		t.Error("expected Continue=false")
	}
	if env.Ack != nil {
		t.Error("expected nil Ack for status envelope")
	}

	snap := env.Snapshot
	if snap.Phase.Kind != PhaseAdjusting {
		t.Errorf("expected Adjusting phase, got %v", snap.Phase)
	}
	if snap.ProgressText != "Настройка канала 3" {
		t.Errorf("unexpected progress text %q", snap.ProgressText)
	}
	if snap.MeasureChannel == nil || *snap.MeasureChannel != 2 {
		t.Errorf("expected measure channel 2, got %v", snap.MeasureChannel)
	}
	if snap.BurnChannel == nil || *snap.BurnChannel != 5 {
		t.Errorf("expected burn channel 5, got %v", snap.BurnChannel)
	}
	if len(snap.Resonators) != 2 {
		t.Fatalf("expected 2 resonators, got %d", len(snap.Resonators))
	}

	r0 := snap.Resonators[0]
	if r0.ID != 0 || r0.CurrentStep != 12 || r0.Initial() != 32740.5 || r0.Current() != 32761.25 || r0.State != StateOK {
		t.Errorf("unexpected first resonator %+v", r0)
	}
	r1 := snap.Resonators[1]
	if r1.InitialFreq != nil {
		t.Errorf("expected nil initial frequency, got %v", *r1.InitialFreq)
	}
	if r1.Initial() != 0 {
		t.Errorf("expected Initial()=0 for unset frequency, got %v", r1.Initial())
	}
}

func TestDecode_OptionalHighlightsAbsent(t *testing.T) {
	doc := `{"report":{"status":"Idle","rezonator_info":[]},"reset_marker":true}`
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !env.Continue {
		t.Error("expected Continue=true")
	}
	if env.Snapshot.MeasureChannel != nil || env.Snapshot.BurnChannel != nil {
		t.Error("expected no highlights")
	}
	if env.Snapshot.ProgressText != "" {
		t.Errorf("expected empty progress text, got %q", env.Snapshot.ProgressText)
	}
}

func TestDecode_NullHighlights(t *testing.T) {
	doc := `{"report":{"status":"Done","measure_channel_id":null,"burn_channel_id":null,"rezonator_info":[]},"reset_marker":false}`
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Snapshot.MeasureChannel != nil || env.Snapshot.BurnChannel != nil {
		t.Error("null highlights must decode as not applicable")
	}
	if !env.Snapshot.Phase.Terminal() {
		t.Error("Done must be terminal")
	}
}

func TestDecode_Phases(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   Phase
	}{
		{"idle", `"Idle"`, Phase{Kind: PhaseIdle}},
		{"adjusting", `"Adjusting"`, Phase{Kind: PhaseAdjusting}},
		{"done", `"Done"`, Phase{Kind: PhaseDone}},
		{"bare searching edge", `"SearchingEdge"`, Phase{Kind: PhaseSearchingEdge}},
		{"searching edge", `{"SearchingEdge":{"ch":3,"step":17}}`, Phase{Kind: PhaseSearchingEdge, Channel: 3, Step: 17}},
		{"error", `{"Error":"Таймаут"}`, Phase{Kind: PhaseError, Message: "Таймаут"}},
		{"idle object", `{"Idle":null}`, Phase{Kind: PhaseIdle}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"report":{"status":` + tt.status + `,"rezonator_info":[]},"reset_marker":false}`
			env, err := Decode([]byte(doc))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if env.Snapshot.Phase != tt.want {
				t.Errorf("phase = %+v, want %+v", env.Snapshot.Phase, tt.want)
			}
		})
	}
}

func TestDecode_Acknowledgment(t *testing.T) {
	env, err := Decode([]byte(`{"success":true,"message":"cancelled"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindAck {
		t.Fatalf("expected KindAck, got %v", env.Kind)
	}
	if env.Snapshot != nil {
		t.Error("expected nil Snapshot for ack")
	}
	if !env.Ack.Success || env.Ack.Message != "cancelled" {
		t.Errorf("unexpected ack %+v", env.Ack)
	}
}

func TestDecode_NotActiveAck(t *testing.T) {
	env, err := Decode([]byte(`{"success":false,"error":"Autoadjust not active","message":null}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindAck {
		t.Fatalf("expected KindAck, got %v", env.Kind)
	}
	if env.Ack.Success || env.Ack.Error != "Autoadjust not active" || env.Ack.Message != "" {
		t.Errorf("unexpected ack %+v", env.Ack)
	}
}

func TestDecode_ExtraFieldsDoNotReclassify(t *testing.T) {
	// A status report that happens to carry a success field is still a status report.
	doc := `{"success":true,"report":{"status":"Adjusting","rezonator_info":[]},"reset_marker":true,"server_time":123}`
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindStatus {
		t.Errorf("expected KindStatus, got %v", env.Kind)
	}
}

func TestDecode_KindMarker(t *testing.T) {
	env, err := Decode([]byte(`{"kind":"ack","success":true,"report":null}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Kind != KindAck {
		t.Errorf("explicit marker must win, got %v", env.Kind)
	}

	if _, err := Decode([]byte(`{"kind":"telemetry"}`)); !IsDecodeError(err) {
		t.Errorf("expected DecodeError for unknown marker, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{not json`},
		{"array", `[1,2,3]`},
		{"null", `null`},
		{"no known shape", `{"hello":"world"}`},
		{"missing rezonator_info", `{"report":{"status":"Idle"},"reset_marker":false}`},
		{"null rezonator_info", `{"report":{"status":"Idle","rezonator_info":null},"reset_marker":false}`},
		{"null report", `{"report":null,"reset_marker":false}`},
		{"missing status", `{"report":{"rezonator_info":[]},"reset_marker":false}`},
		{"unknown status", `{"report":{"status":"Sleeping","rezonator_info":[]},"reset_marker":false}`},
		{"two variants", `{"report":{"status":{"Error":"a","Done":null},"rezonator_info":[]},"reset_marker":false}`},
		{"bad frequency", `{"report":{"status":"Idle","rezonator_info":[{"id":0,"current_freq":"fast"}]},"reset_marker":false}`},
		{"bad channel", `{"report":{"status":"Idle","burn_channel_id":"x","rezonator_info":[]},"reset_marker":false}`},
		{"bad step", `{"report":{"status":{"SearchingEdge":{"ch":1,"step":"many"}},"rezonator_info":[]},"reset_marker":false}`},
		{"ack without flag value", `{"success":"yes"}`},
		{"resonator id too large", `{"report":{"status":"Idle","rezonator_info":[{"id":20000000}]},"reset_marker":false}`},
		{"negative resonator id", `{"report":{"status":"Idle","rezonator_info":[{"id":-1}]},"reset_marker":false}`},
		{"burn channel too large", `{"report":{"status":"Adjusting","burn_channel_id":20000000,"rezonator_info":[]},"reset_marker":false}`},
		{"measure channel at bound", `{"report":{"status":"Adjusting","measure_channel_id":1024,"rezonator_info":[]},"reset_marker":false}`},
		{"negative measure channel", `{"report":{"status":"Adjusting","measure_channel_id":-3,"rezonator_info":[]},"reset_marker":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsDecodeError(err) {
				t.Errorf("expected *DecodeError, got %T: %v", err, err)
			}
		})
	}
}

func TestDecode_ChannelBounds(t *testing.T) {
	last := MaxChannels - 1
	doc := fmt.Sprintf(`{"report":{"status":"Adjusting","measure_channel_id":%d,"burn_channel_id":0,"rezonator_info":[{"id":%d}]},"reset_marker":false}`, last, last)
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("expected the highest channel to decode, got %v", err)
	}
	if got := *env.Snapshot.MeasureChannel; got != ChannelID(last) {
		t.Errorf("expected measure channel %d, got %d", last, got)
	}
	if got := env.Snapshot.Resonators[0].ID; got != ChannelID(last) {
		t.Errorf("expected resonator %d, got %d", last, got)
	}
}

func TestDecode_TooManyResonators(t *testing.T) {
	items := make([]string, MaxChannels+1)
	for i := range items {
		items[i] = `{"current_step":0}`
	}
	doc := `{"report":{"status":"Adjusting","rezonator_info":[` + strings.Join(items, ",") + `]},"reset_marker":false}`

	_, err := Decode([]byte(doc))
	if !IsDecodeError(err) {
		t.Errorf("expected *DecodeError, got %v", err)
	}
}

func TestDecode_MissingIDUsesPosition(t *testing.T) {
	doc := `{"report":{"status":"Idle","rezonator_info":[{"current_freq":1},{"current_freq":2}]},"reset_marker":false}`
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i, r := range env.Snapshot.Resonators {
		if int(r.ID) != i {
			t.Errorf("resonator %d has id %d", i, r.ID)
		}
	}
}

func TestDecode_NonStringState(t *testing.T) {
	doc := `{"report":{"status":"Idle","rezonator_info":[{"id":0,"state":{"Custom": 1}}]},"reset_marker":false}`
	env, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := env.Snapshot.Resonators[0].State; got != `{"Custom":1}` {
		t.Errorf("state = %q", got)
	}
}

// =============================================================================
// Reader Tests
// =============================================================================

func TestReader_StreamInOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"report":{"status":"SearchingEdge","rezonator_info":[]},"reset_marker":false}`,
		``,
		`{"report":{"status":"Adjusting","rezonator_info":[]},"reset_marker":false}`,
		`{"report":{"status":"Adjusting","rezonator_info":[]},"reset_marker":true}`,
	}, "\n") + "\n"

	r := NewReader(strings.NewReader(input))

	var kinds []PhaseKind
	var conts []bool
	for {
		env, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		kinds = append(kinds, env.Snapshot.Phase.Kind)
		conts = append(conts, env.Continue)
	}

	want := []PhaseKind{PhaseSearchingEdge, PhaseAdjusting, PhaseAdjusting}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d envelopes, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("envelope %d phase = %v, want %v", i, kinds[i], want[i])
		}
	}
	if conts[0] || conts[1] || !conts[2] {
		t.Errorf("unexpected continuation flags %v", conts)
	}
}

func TestReader_MalformedDocumentIsSkippable(t *testing.T) {
	input := "{broken\n" + `{"success":true}` + "\n"
	r := NewReader(strings.NewReader(input))

	if _, err := r.Next(); !IsDecodeError(err) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	env, err := r.Next()
	if err != nil {
		t.Fatalf("reader must stay usable after a malformed document: %v", err)
	}
	if env.Kind != KindAck {
		t.Errorf("expected ack, got %v", env.Kind)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_TruncatedDocument(t *testing.T) {
	input := `{"report":{"status":"Idle","rezonator_info":[]},"reset_marker":false}` + "\n" + `{"report":{"sta`
	r := NewReader(strings.NewReader(input))

	if _, err := r.Next(); err != nil {
		t.Fatalf("first document failed: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReader_LastDocumentWithoutNewline(t *testing.T) {
	r := NewReader(strings.NewReader(`{"success":true}`))
	env, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if env.Kind != KindAck {
		t.Errorf("expected ack, got %v", env.Kind)
	}
}

// =============================================================================
// Type helpers
// =============================================================================

func TestStateCode_Icon(t *testing.T) {
	tests := []struct {
		code StateCode
		want string
	}{
		{StateUnknown, "-"},
		{StateUpper, "▲"},
		{StateOK, "✔"},
		{StateLower, "▽"},
		{StateLowerest, "▼"},
		{"weird", ""},
	}
	for _, tt := range tests {
		if got := tt.code.Icon(); got != tt.want {
			t.Errorf("%q.Icon() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestPhase_String(t *testing.T) {
	p := Phase{Kind: PhaseSearchingEdge, Channel: 0, Step: 4}
	if got := p.String(); got != "SearchingEdge(channel 1, step 4)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Phase{Kind: PhaseError, Message: "x"}).String(); got != "Error(x)" {
		t.Errorf("String() = %q", got)
	}
}
