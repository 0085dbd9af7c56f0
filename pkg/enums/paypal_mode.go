package enums

import "fmt"

// PayPalMode selects the PayPal API environment.
type PayPalMode string

const (
	PayPalModeSandbox PayPalMode = "sandbox"
	PayPalModeLive    PayPalMode = "live"
)

var validPayPalModes = []PayPalMode{
	PayPalModeSandbox,
	PayPalModeLive,
}

// String implements fmt.Stringer.
func (p PayPalMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayPalMode.
func (p PayPalMode) IsValid() bool {
	for _, candidate := range validPayPalModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayPalMode converts raw input into a PayPalMode.
func ParsePayPalMode(value string) (PayPalMode, error) {
	for _, candidate := range validPayPalModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid paypal mode %q", value)
}
