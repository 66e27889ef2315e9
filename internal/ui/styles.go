// Package ui renders wire traces and seat state for the wayseat CLI
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
	ColorMuted  = lipgloss.Color("238") // Dark gray

	// Device colors
	ColorPointer  = lipgloss.Color("39")  // Bright blue
	ColorKeyboard = lipgloss.Color("205") // Pink/magenta
	ColorTouch    = lipgloss.Color("214") // Orange
	ColorSeat     = lipgloss.Color("86")  // Cyan
)

var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(12)

	// Trace styles
	ClientStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(10)

	OpStyle = lipgloss.NewStyle().
		Bold(true).
		Width(22)

	ArgStyle = lipgloss.NewStyle().
			Foreground(ColorText)
)

// Status icons
var (
	IconActive   = "●"
	IconInactive = "○"
	IconSuccess  = "✓"
	IconError    = "✗"
	IconWarning  = "!"
)

// FormatHeader renders a title underlined with a separator
func FormatHeader(title string) string {
	return HeaderStyle.Render(title) + "\n" + CreateSeparator(50, "─")
}

// FormatResult renders a one-line outcome
func FormatResult(success bool, message string) string {
	if success {
		return SuccessStyle.Render(IconSuccess) + " " + message
	}
	return ErrorStyle.Render(IconError) + " " + message
}

// FormatWarning renders a one-line warning
func FormatWarning(message string) string {
	return WarningStyle.Render(IconWarning) + " " + message
}

// FormatField renders a label/value pair
func FormatField(label, value string) string {
	return LabelStyle.Render(label) + TextStyle.Render(value)
}

// FormatEnabled renders an on/off indicator followed by name
func FormatEnabled(name string, enabled bool) string {
	if enabled {
		return SuccessStyle.Render(IconActive) + " " + name
	}
	return SubtleStyle.Render(IconInactive + " " + name)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}
	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
