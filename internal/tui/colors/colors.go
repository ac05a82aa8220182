package colors

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type ColorPalette struct {
	Accent lipgloss.Color
	Muted  lipgloss.Color
	Text   lipgloss.Color
	Error  lipgloss.Color
}

func DefaultDarkColorPalette() ColorPalette {
	return ColorPalette{
		Accent: lipgloss.Color("9"),
		Muted:  lipgloss.Color("8"),
		Text:   lipgloss.Color("15"),
		Error:  lipgloss.Color("1"),
	}
}

func DefaultLightColorPalette() ColorPalette {
	return ColorPalette{
		Accent: lipgloss.Color("9"),
		Muted:  lipgloss.Color("8"),
		Text:   lipgloss.Color("0"),
		Error:  lipgloss.Color("1"),
	}
}

// Detect picks a palette based on the terminal background.
func Detect() ColorPalette {
	if termenv.HasDarkBackground() {
		return DefaultDarkColorPalette()
	}
	return DefaultLightColorPalette()
}
