package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("checkout transition not allowed")
	ErrDetailsInvalid     = errors.New("checkout details invalid")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrNoPendingOrder     = errors.New("no pending order for payment")
	ErrPaymentInProgress  = errors.New("payment already in progress")
)

// RedirectError 前置条件不满足，需要跳转到其他视图
type RedirectError struct {
	Path     string
	ReturnTo string
	Reason   string
}

func (e *RedirectError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("checkout redirect to %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("checkout redirect to %s", e.Path)
}
