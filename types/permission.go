package types

// PermissionState is the answer a granted handle gives when asked whether it
// may still be read.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionPrompt  PermissionState = "prompt"
	PermissionDenied  PermissionState = "denied"
)

// Granted reports whether the state is an explicit grant. Anything else,
// including a pending prompt, counts as unreadable.
func (s PermissionState) Granted() bool { return s == PermissionGranted }
