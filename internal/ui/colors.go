package ui

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

func paint(style, s string) string {
	return style + s + ColorReset
}

// Bold renders s in bold
func Bold(s string) string { return paint(ColorBold, s) }

// Heading is used for the command name at the top of help output
func Heading(s string) string { return paint(ColorBold+ColorCyan, s) }

// Section is used for help section titles
func Section(s string) string { return paint(ColorBold+ColorWhite, s) }

func Success(s string) string { return paint(ColorGreen, s) }

func Info(s string) string { return paint(ColorDim+ColorYellow, s) }

func Warn(s string) string { return paint(ColorYellow, s) }

func Error(s string) string { return paint(ColorRed, s) }

func Dim(s string) string { return paint(ColorDim, s) }

func Cyan(s string) string { return paint(ColorCyan, s) }

func Yellow(s string) string { return paint(ColorYellow, s) }

// Status renders a short ok/failed marker for summaries
func Status(ok bool) string {
	if ok {
		return Success("ok")
	}
	return Error("failed")
}
