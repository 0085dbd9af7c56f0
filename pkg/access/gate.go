package access

// Decide evaluates the gate for one render pass. Checks run in a fixed order
// and the first one that resolves wins; location is always settled before
// auth is consulted so international visitors never wait on a session lookup.
func Decide(ctx Context, level ProtectionLevel) Outcome {
	if level == LevelPublic {
		return Render()
	}

	if !ctx.Location.Resolved() {
		return Loading()
	}

	if ctx.Location == LocationInternational && level != LevelAdminOnly {
		return Render()
	}

	switch ctx.Auth {
	case AuthResolving:
		return Loading()
	case AuthAuthenticated:
	default:
		return RedirectToLogin()
	}

	switch level {
	case LevelApprovedPortugalOnly:
		switch ctx.ApprovalStatus {
		case ApprovalApproved:
		case ApprovalRejected:
			return Interstitial(InterstitialRejected)
		default:
			return Interstitial(InterstitialPending)
		}
	case LevelAdminOnly:
		if !ctx.IsAdmin {
			return Interstitial(InterstitialRestricted)
		}
	}

	return Render()
}
