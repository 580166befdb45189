package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

var (
	accent = lipgloss.Color("#5965E0")
	green  = lipgloss.Color("#4CD62B")
	muted  = lipgloss.Color("#666666")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	xpStyle    = lipgloss.NewStyle().Bold(true).Foreground(green)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center)
)

const barWidth = 30

// renderProfile draws the profile card with the experience bar and counters.
func renderProfile(name string, snap challenge.Snapshot) string {
	lines := []string{
		titleStyle.Render(name),
		fmt.Sprintf("Level %d", snap.Level),
		"",
		renderExperienceBar(snap.CurrentExperience, snap.ExperienceToNextLevel),
		mutedStyle.Render(fmt.Sprintf("Desafios completos: %02d", snap.ChallengesCompleted)),
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func renderExperienceBar(current, next int) string {
	filled := 0
	if next > 0 {
		filled = current * barWidth / next
	}
	filled = min(max(filled, 0), barWidth)
	bar := xpStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("0 xp %s %d xp  (%d xp)", bar, next, current)
}

// renderChallenge draws the active challenge box, or the idle hint when none is active.
func renderChallenge(active *challenge.Definition) string {
	if active == nil {
		return cardStyle.Render(strings.Join([]string{
			"Finalize um ciclo para receber um desafio",
			mutedStyle.Render("Digite 'start' para começar"),
		}, "\n"))
	}
	return cardStyle.Render(strings.Join([]string{
		xpStyle.Render(fmt.Sprintf("Ganhe %d xp", active.Amount)),
		titleStyle.Render("Novo desafio") + mutedStyle.Render(" ("+string(active.Kind)+")"),
		active.Description,
		"",
		mutedStyle.Render("'complete' se completou, 'reset' se falhou"),
	}, "\n"))
}

// renderLevelUp draws the level-up modal.
func renderLevelUp(level int) string {
	return modalStyle.Render(strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("%d", level)),
		"Parabéns",
		"Você alcançou um novo level.",
		mutedStyle.Render("Digite 'close' para fechar"),
	}, "\n"))
}

func renderCatalog(defs []challenge.Definition) string {
	var b strings.Builder
	for i, def := range defs {
		fmt.Fprintf(&b, "%2d. [%s] %s %s\n", i+1, def.Kind, def.Description, xpStyle.Render(fmt.Sprintf("(%d xp)", def.Amount)))
	}
	return b.String()
}

func renderState(name string, snap challenge.Snapshot) string {
	parts := []string{renderProfile(name, snap), renderChallenge(snap.ActiveChallenge)}
	if snap.LevelUpModalOpen {
		parts = append(parts, renderLevelUp(snap.Level))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
