package identity

import "strings"

// PlaceholderIDs are values that indicate missing/test identifiers
var PlaceholderIDs = map[string]bool{
	"":          true,
	"0":         true,
	"unknown":   true,
	"anonymous": true,
	"test":      true,
	"patient":   true,
	"none":      true,
}

// PlaceholderDOBs are values that indicate missing/test DOB data
var PlaceholderDOBs = map[string]bool{
	"":           true,
	"None":       true,
	"00000000":   true,
	"11111111":   true,
	"19000101":   true,
	"99999999":   true,
	"1900-01-01": true,
}

// IsPlaceholderID reports whether an identifier looks like a dummy value.
// Hashing such a value is still deterministic, but every scan carrying it
// collapses onto the same pseudonym.
func IsPlaceholderID(id string) bool {
	return PlaceholderIDs[strings.ToLower(strings.TrimSpace(id))]
}

// IsPlaceholderDOB reports whether a date of birth looks like a dummy value.
func IsPlaceholderDOB(dob string) bool {
	return PlaceholderDOBs[strings.TrimSpace(dob)]
}
