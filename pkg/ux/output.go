// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the parabench CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - deep ocean teals and arctic waters.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Highlights, winners
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Section titles
	ColorSlate       = lipgloss.Color("#2C4A54") // Muted text
	ColorWarning     = lipgloss.Color("#F4D03F") // Degraded output
	ColorError       = lipgloss.Color("#E74C3C") // Failures
)

// Styles provides pre-configured lipgloss styles for report output.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
}

// PrintError writes a styled error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, Styles.Error.Render(fmt.Sprintf(format, args...)))
}

// PrintWarning writes a styled warning message to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, Styles.Warning.Render(fmt.Sprintf(format, args...)))
}
