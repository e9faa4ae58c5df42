package contract

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownContract = errors.New("unknown contract type")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrInvalidArgument = errors.New("invalid argument")
)

// RevertError is returned when contract execution is aborted, all its state changes are discarded.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// Revert creates a RevertError with formatted reason.
func Revert(format string, args ...any) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// RevertReason returns the reason of the RevertError in err's chain. Other errors
// are returned as-is since any failure during execution reverts the transaction.
func RevertReason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}
