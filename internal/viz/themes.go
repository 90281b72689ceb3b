package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the pendulum drawing and the side panel.
type Theme struct {
	Name    string
	Links   lipgloss.Color
	Trail   lipgloss.Color
	Header  lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
}

var (
	ThemeClassic = Theme{
		Name:    "classic",
		Links:   lipgloss.Color("#ffffff"),
		Trail:   lipgloss.Color("#00ccff"),
		Header:  lipgloss.Color("86"),
		Accent:  lipgloss.Color("205"),
		Muted:   lipgloss.Color("240"),
		Warning: lipgloss.Color("#ffaa00"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Links:   lipgloss.Color("#00ff00"), // Green phosphor
		Trail:   lipgloss.Color("#00cc00"),
		Header:  lipgloss.Color("#88ff88"),
		Accent:  lipgloss.Color("#ffff00"),
		Muted:   lipgloss.Color("#005500"),
		Warning: lipgloss.Color("#ffff00"),
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Links:   lipgloss.Color("#ffd3b6"),
		Trail:   lipgloss.Color("#ff6b6b"),
		Header:  lipgloss.Color("#ffc048"),
		Accent:  lipgloss.Color("#ff4757"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Warning: lipgloss.Color("#ffc048"),
	}

	Themes = []Theme{
		ThemeClassic,
		ThemeRetroGreen,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to classic.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeClassic
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(current string) Theme {
	for i, t := range Themes {
		if t.Name == current {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
