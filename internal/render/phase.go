package render

import (
	"github.com/ShayCichocki/trimwatch/internal/status"
)

// Banner texts for terminal phases.
const (
	DoneBannerText  = "Auto-adjust completed successfully."
	ErrorBannerText = "Auto-adjust failed: "
)

// PhaseView is the visual state derived from a phase.
type PhaseView struct {
	Button     ButtonLabel
	Banner     Banner
	ClearMarks bool
}

// ViewFor maps a phase to its visual state.
//
//	Idle          Start  no banner       marks cleared
//	SearchingEdge Stop   no banner       marks per snapshot
//	Adjusting     Stop   no banner       marks per snapshot
//	Done          Start  success banner  marks cleared
//	Error         Start  error banner    marks cleared
func ViewFor(p status.Phase) PhaseView {
	switch p.Kind {
	case status.PhaseSearchingEdge, status.PhaseAdjusting:
		return PhaseView{Button: ButtonStop}
	case status.PhaseDone:
		return PhaseView{
			Button:     ButtonStart,
			Banner:     Banner{Kind: BannerSuccess, Text: DoneBannerText},
			ClearMarks: true,
		}
	case status.PhaseError:
		return PhaseView{
			Button:     ButtonStart,
			Banner:     Banner{Kind: BannerError, Text: ErrorBannerText + p.Message},
			ClearMarks: true,
		}
	default:
		return PhaseView{Button: ButtonStart, ClearMarks: true}
	}
}

// PhaseController renders the current phase onto the button and banner. It
// holds no transition logic; the phase of every snapshot is looked up afresh.
type PhaseController struct {
	surface   Surface
	button    ButtonLabel
	buttonSet bool
	banner    Banner
	bannerSet bool
	phase     status.Phase
}

// NewPhaseController creates a PhaseController writing to surface.
func NewPhaseController(surface Surface) *PhaseController {
	return &PhaseController{surface: surface}
}

// Apply renders p and reports whether row highlights must be cleared.
func (c *PhaseController) Apply(p status.Phase) bool {
	c.phase = p
	view := ViewFor(p)
	if !c.buttonSet || c.button != view.Button {
		c.surface.SetButton(view.Button)
		c.button = view.Button
		c.buttonSet = true
	}
	c.SetBanner(view.Banner)
	return view.ClearMarks
}

// SetBanner writes b unless it is already shown.
func (c *PhaseController) SetBanner(b Banner) {
	if c.bannerSet && c.banner == b {
		return
	}
	c.surface.SetBanner(b)
	c.banner = b
	c.bannerSet = true
}

// Phase returns the last rendered phase.
func (c *PhaseController) Phase() status.Phase {
	return c.phase
}

// Button returns the label currently shown.
func (c *PhaseController) Button() ButtonLabel {
	if !c.buttonSet {
		return ButtonStart
	}
	return c.button
}
