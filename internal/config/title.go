package config

const (
	// DefaultTitle is shown when no title override is configured.
	DefaultTitle = "Customer Support Workspace"
	// DefaultDescription is the document description metadata.
	DefaultDescription = "White-label customer support workspace."
)

// ResolveDisplayTitle returns the override when one is present, otherwise
// DefaultTitle. Only an absent override falls back: an empty string is a
// present value and is returned unchanged.
func ResolveDisplayTitle(override *string) string {
	if override == nil {
		return DefaultTitle
	}
	return *override
}
