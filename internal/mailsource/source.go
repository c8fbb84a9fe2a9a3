package mailsource

import "fmt"

// AuthError indicates the mail server rejected the configured
// credentials. The runner treats it as fatal for the run.
type AuthError struct {
	Server  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed against %s: %s", e.Server, e.Message)
}
