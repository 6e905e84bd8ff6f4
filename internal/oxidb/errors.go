package oxidb

import "fmt"

// Error is an error response from the server.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}
