package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("99"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleCast = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	styleChange = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	styleImpact = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	styleEffect = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	styleSurge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("201")).
			Italic(true)

	styleClock = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleCasterInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("99"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindCast
	kindChange
	kindImpact
	kindEffect
	kindSurge
	kindClock
	kindSystem
	kindError
	kindTrace
)

var errorPrefixes = []string{
	"Cannot cast",
	"You don't",
	"I don't know",
	"No active effect",
	"There is no",
	"which ",
}

var effectSuffixes = []string{
	" active",
	" expires",
	" ends",
	" fizzles",
	" is dispelled.",
}

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case hasAnyPrefix(line, errorPrefixes), strings.Contains(line, " fails: "):
		return kindError
	case strings.HasPrefix(line, "You cast "):
		return kindCast
	case strings.HasPrefix(trimmed, "Wild magic:"):
		return kindSurge
	case strings.HasPrefix(line, "t = "):
		return kindClock
	case strings.Contains(line, " hits "), strings.Contains(line, " strikes "):
		return kindImpact
	case strings.HasPrefix(line, "  ") && strings.Contains(line, " -> "):
		return kindChange
	case line == "Active effects:", hasAnySuffix(line, effectSuffixes):
		return kindEffect
	default:
		return kindNarration
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, p := range suffixes {
		if strings.HasSuffix(s, p) {
			return true
		}
	}
	return false
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindCast:
		return styleCast.Render(line)
	case kindChange:
		return styleChange.Render(line)
	case kindImpact:
		return styleImpact.Render(line)
	case kindEffect:
		return styleEffect.Render(line)
	case kindSurge:
		return styleSurge.Render(line)
	case kindClock:
		return styleClock.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
