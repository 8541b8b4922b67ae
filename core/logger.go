package core

// Logger is the diagnostic channel of the application.
// expected args fmt: error | map[string]interface{} | Person (at most one Person is used)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies who triggered a logged event; for the dashboard it is the browser session.
type Person struct {
	ID    string
	Name  string
	Email string
}
