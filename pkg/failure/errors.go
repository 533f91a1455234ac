package failure

type Severity int

// scheduler control flow
// Fatal aborts the current operation; recoverable errors may be retried
// by the caller (never by the component that classified them).
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}
