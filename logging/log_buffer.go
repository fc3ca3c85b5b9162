package logging

// LogBuffer accumulates the arguments of a multi-part log message, such as a validation report, before it is handed
// to a Logger in one call.
type LogBuffer struct {
	args []any
}

// NewLogBuffer creates a new LogBuffer object
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		args: make([]any, 0),
	}
}

// Append appends a variadic set of elements to the list of arguments within the LogBuffer
func (l *LogBuffer) Append(newArgs ...any) {
	l.args = append(l.args, newArgs...)
}

// Args returns the list of arguments stored in this LogBuffer
func (l *LogBuffer) Args() []any {
	return l.args
}

// Len returns the number of arguments stored in this LogBuffer
func (l *LogBuffer) Len() int {
	return len(l.args)
}

// String provides the non-colorized string representation of the LogBuffer
func (l LogBuffer) String() string {
	_, msg, _, _ := buildMsgs(l.args...)
	return msg
}

// ColoredString provides the colorized string representation of the LogBuffer
func (l LogBuffer) ColoredString() string {
	msg, _, _, _ := buildMsgs(l.args...)
	return msg
}
