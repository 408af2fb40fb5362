package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/strongdm/supportdesk/internal/config"
)

type bannerTheme struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
}

func newBannerTheme(color bool) bannerTheme {
	if !color {
		return bannerTheme{
			title: lipgloss.NewStyle().Bold(true),
			label: lipgloss.NewStyle(),
			value: lipgloss.NewStyle(),
		}
	}
	accent := lipgloss.Color("#58d4ff")
	return bannerTheme{
		title: lipgloss.NewStyle().Foreground(accent).Bold(true),
		label: lipgloss.NewStyle().Faint(true),
		value: lipgloss.NewStyle().Foreground(accent),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printBanner announces the workspace on interactive terminals only.
func printBanner(w io.Writer, cfg config.Config, version string) {
	if !isTerminal(w) {
		return
	}
	fmt.Fprint(w, renderBanner(newBannerTheme(true), cfg, version))
}

func renderBanner(theme bannerTheme, cfg config.Config, version string) string {
	title := cfg.DisplayTitle()
	if title == "" {
		title = "(untitled workspace)"
	}
	url := cfg.Listen.DisplayURL()
	if url == "" {
		url = "disabled"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.title.Render(title),
		theme.label.Render("url     ")+theme.value.Render(url),
		theme.label.Render("version ")+theme.value.Render(version),
	) + "\n"
}
