package zmachine

import "fmt"

// RuntimeError is a fatal execution fault: an opcode the decoder or
// dispatcher could not carry out. It moves Machine into the Faulted
// state rather than unwinding the Go call stack, per spec.md §7/§9.
type RuntimeError struct {
	PC     uint32
	Reason string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at 0x%x: %s", e.PC, e.Reason)
}

// Warning is a non-fatal anomaly (a pop or peek on an empty evaluation
// stack, a read or write of a local the routine does not have) that the teacher's code would have silently printed and
// continued past. warnOnce keeps these from flooding Display on a tight
// loop.
type Warning struct {
	Message string
}

func (w *Warning) Error() string { return w.Message }

func newWarning(format string, args ...interface{}) *Warning {
	return &Warning{Message: fmt.Sprintf(format, args...)}
}
