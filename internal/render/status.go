package render

import "github.com/charmbracelet/lipgloss"

var (
	statusPlaying = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E1E")).
			Background(lipgloss.Color("#E0B040"))

	statusStopped = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#C8C8C8")).
			Background(lipgloss.Color("#3A3A3A"))
)

// StatusBar pads or truncates text to width and styles it for the playing state.
func StatusBar(text string, width int, playing, useANSI bool) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) > width {
		text = string(runes[:width])
	}
	if !useANSI {
		for i := len([]rune(text)); i < width; i++ {
			text += " "
		}
		return text
	}
	style := statusStopped
	if playing {
		style = statusPlaying
	}
	return style.Width(width).MaxWidth(width).Render(text)
}
