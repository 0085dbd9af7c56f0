package enums

import "fmt"

// Location is the region a visitor or account declared.
type Location string

const (
	LocationPortugal      Location = "portugal"
	LocationInternational Location = "international"
)

var validLocations = []Location{
	LocationPortugal,
	LocationInternational,
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return string(l)
}

// IsValid reports whether the value is a known Location.
func (l Location) IsValid() bool {
	for _, candidate := range validLocations {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLocation converts raw input into a Location.
func ParseLocation(value string) (Location, error) {
	for _, candidate := range validLocations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location %q", value)
}
