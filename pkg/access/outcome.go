package access

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// OutcomeKind tags the Outcome union.
type OutcomeKind string

const (
	OutcomeLoading      OutcomeKind = "loading"
	OutcomeRedirect     OutcomeKind = "redirect"
	OutcomeInterstitial OutcomeKind = "interstitial"
	OutcomeRender       OutcomeKind = "render"
)

// InterstitialKind selects the blocking view shown instead of content.
type InterstitialKind string

const (
	InterstitialPending    InterstitialKind = "pending"
	InterstitialRejected   InterstitialKind = "rejected"
	InterstitialRestricted InterstitialKind = "restricted"
)

// Outcome is the gate's decision. Only the fields of the active Kind are set.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	// Redirect
	Target string `json:"target,omitempty"`
	Hard   bool   `json:"hard,omitempty"`

	// Interstitial
	Interstitial InterstitialKind `json:"interstitial,omitempty"`
}

// Loading holds the page while the visitor's location or session is still
// being resolved.
func Loading() Outcome {
	return Outcome{Kind: OutcomeLoading}
}

// Render lets the protected content through.
func Render() Outcome {
	return Outcome{Kind: OutcomeRender}
}

// RedirectToLogin is a full-page navigation so session state is re-read after login.
func RedirectToLogin() Outcome {
	return Outcome{Kind: OutcomeRedirect, Target: LoginPath, Hard: true}
}

// Interstitial replaces the content with the notice named by kind, e.g. the
// pending-approval screen.
func Interstitial(kind InterstitialKind) Outcome {
	return Outcome{Kind: OutcomeInterstitial, Interstitial: kind}
}

// Label is a flat name for metrics and logs, e.g. "interstitial_pending".
func (o Outcome) Label() string {
	if o.Kind == OutcomeInterstitial && o.Interstitial != "" {
		return string(o.Kind) + "_" + string(o.Interstitial)
	}
	return string(o.Kind)
}
