package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/spellcore/engine"
)

// renderStatusBar produces a full-width inverted status line showing the
// scene, the simulated clock, active effects and the caster's resources.
func (m Model) renderStatusBar() string {
	e := m.engine

	title := e.Catalog.Title
	if title == "" {
		title = "spellcore"
	}
	left := fmt.Sprintf(" %s | t=%.1fs | Effects: %d", title, e.World.Time(), e.Bridge.Len())

	right := ""
	if c := e.Caster(); c != nil {
		right = fmt.Sprintf("HP %d/%d ", c.HP.Current, c.HP.Max)
		if c.Concentration != "" {
			right = fmt.Sprintf("Conc: %s | %s", c.Concentration, right)
		}
		if len(c.SpellSlots) > 0 {
			candidate := fmt.Sprintf("%s| Slots %s ", right, engine.FormatSlots(c.SpellSlots))
			if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
				right = candidate
			}
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
