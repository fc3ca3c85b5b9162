package colors

import "os"

// init enables ANSI coloring where the terminal supports it, unless the NO_COLOR convention asks otherwise.
func init() {
	if os.Getenv("NO_COLOR") != "" {
		DisableColor()
		return
	}
	EnableColor()
}
