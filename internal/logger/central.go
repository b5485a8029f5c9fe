package logger

import "io"

// maximum number of entries in the central logger
const maxCentral = 512

var central = NewLogger(maxCentral)

// Log adds an entry to the central logger.
func Log(perm Permission, tag string, detail interface{}) {
	central.Log(perm, tag, detail)
}

// Logf adds a formatted entry to the central logger.
func Logf(perm Permission, tag, format string, args ...interface{}) {
	central.Logf(perm, tag, format, args...)
}

// Clear removes all entries from the central logger.
func Clear() {
	central.Clear()
}

// Write writes the contents of the central logger to output.
func Write(output io.Writer) {
	central.Write(output)
}

// Tail writes the last number entries of the central logger to output.
func Tail(output io.Writer, number int) {
	central.Tail(output, number)
}

// SetEcho prints new central log entries to output.
func SetEcho(output io.Writer) {
	central.SetEcho(output)
}
