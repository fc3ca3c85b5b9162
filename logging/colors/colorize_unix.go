//go:build !windows
// +build !windows

package colors

// EnableColor turns coloring on. Non-windows terminals are assumed to support ANSI escape codes.
func EnableColor() {
	enabled = true
}
