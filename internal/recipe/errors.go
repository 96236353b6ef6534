package recipe

import "fmt"

// InvalidArgumentError reports a builder argument that violates the tester
// grammar. The failing builder call appends nothing: the log is exactly as
// it was before the call.
type InvalidArgumentError struct {
	Op     Kind
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Param, e.Reason)
}

func invalid(op Kind, param, reason string) error {
	return &InvalidArgumentError{Op: op, Param: param, Reason: reason}
}

func invalidf(op Kind, param, format string, args ...any) error {
	return &InvalidArgumentError{Op: op, Param: param, Reason: fmt.Sprintf(format, args...)}
}
