// Package access decides how a protected page renders for a visitor.
package access

import (
	"fmt"
	"strings"
)

// Location is the visitor's declared region.
type Location string

const (
	LocationUnknown       Location = ""
	LocationPortugal      Location = "portugal"
	LocationInternational Location = "international"
)

// ParseLocation converts raw input into a Location. Empty input yields LocationUnknown.
func ParseLocation(value string) (Location, error) {
	switch Location(strings.ToLower(strings.TrimSpace(value))) {
	case LocationUnknown:
		return LocationUnknown, nil
	case LocationPortugal:
		return LocationPortugal, nil
	case LocationInternational:
		return LocationInternational, nil
	}
	return LocationUnknown, fmt.Errorf("invalid location %q", value)
}

// Resolved reports whether location detection has completed.
func (l Location) Resolved() bool {
	return l == LocationPortugal || l == LocationInternational
}

// AuthState tracks the asynchronous resolution of the visitor's session.
type AuthState int

const (
	AuthResolving AuthState = iota
	AuthAnonymous
	AuthAuthenticated
)

func (a AuthState) String() string {
	switch a {
	case AuthAnonymous:
		return "anonymous"
	case AuthAuthenticated:
		return "authenticated"
	default:
		return "resolving"
	}
}

// ApprovalStatus is the account approval flag.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ProtectionLevel is declared per page by the routing layer.
type ProtectionLevel string

const (
	LevelPublic                    ProtectionLevel = "public"
	LevelAuthenticatedPortugalOnly ProtectionLevel = "authenticated-portugal-only"
	LevelApprovedPortugalOnly      ProtectionLevel = "approved-portugal-only"
	LevelAdminOnly                 ProtectionLevel = "admin-only"
)

var validLevels = []ProtectionLevel{
	LevelPublic,
	LevelAuthenticatedPortugalOnly,
	LevelApprovedPortugalOnly,
	LevelAdminOnly,
}

// ParseProtectionLevel converts raw input into a ProtectionLevel.
func ParseProtectionLevel(value string) (ProtectionLevel, error) {
	for _, candidate := range validLevels {
		if string(candidate) == strings.TrimSpace(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid protection level %q", value)
}

// Context is everything the gate knows about a visitor for one decision.
type Context struct {
	Location       Location
	Auth           AuthState
	ApprovalStatus ApprovalStatus
	IsAdmin        bool
}
