package screener

import "fmt"

// IncompleteDataError reports that a required aggregate could not be fully
// populated. Structural distinguishes "can never succeed" (too few strikes,
// missing right) from "did not arrive in time".
type IncompleteDataError struct {
	Reason     string
	Structural bool
}

func (e *IncompleteDataError) Error() string {
	if e.Structural {
		return fmt.Sprintf("incomplete data (structural): %s", e.Reason)
	}

	return fmt.Sprintf("incomplete data: %s", e.Reason)
}
