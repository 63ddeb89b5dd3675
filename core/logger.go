package core

// Logger is implemented by the app loggers.
// Args may carry an error, a map[string]interface{} of extra data, or the current Principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  string
}
