// Package ui provides styled terminal output helpers for the workdash CLI.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// RenderAccent renders s in the accent color.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass renders s as a success indicator.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders s as a warning indicator.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderErr renders s as an error indicator.
func RenderErr(s string) string { return errStyle.Render(s) }

// RenderHeader renders s as a section header.
func RenderHeader(s string) string { return headerStyle.Render(s) }

// RenderDim renders s de-emphasized.
func RenderDim(s string) string { return dimStyle.Render(s) }
