// Package openflag interprets the OPEN environment toggle that asks the
// server to open the workspace in a browser once it is listening.
package openflag

import "strings"

// EnvVar is the environment variable carrying the toggle.
const EnvVar = "OPEN"

// IsTruthy returns true when the provided value matches an accepted truthy
// form for the OPEN environment variable.
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes":
		return true
	default:
		return false
	}
}
