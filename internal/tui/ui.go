// Package tui is the terminal front-end of the console. It draws the map
// layer as a character grid and forwards key presses to the console.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"rescueops/internal/render"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// UI owns the bubbletea program.
type UI struct {
	program teaProgram
	run     func() error
}

// Options configures the map drawn by the terminal.
type Options struct {
	Backend  string
	Window   render.Window
	Band     render.Band
	Advisory string
}

// New builds a UI bound to ctrl. Call Run to take over the terminal.
func New(ctrl Controller, opts Options) *UI {
	m := newModel(ctrl, opts.Backend, opts.Window, opts.Band, opts.Advisory)
	p := tea.NewProgram(m, tea.WithAltScreen())
	return &UI{
		program: p,
		run: func() error {
			_, err := p.Run()
			return err
		},
	}
}

// Run blocks until the operator quits.
func (u *UI) Run() error { return u.run() }

// Close asks the program to exit.
func (u *UI) Close() {
	u.program.Send(tea.Quit())
}

// ShowFrame replaces the drawn visuals.
func (u *UI) ShowFrame(visuals []render.Visual, overlays []render.Overlay) {
	u.program.Send(frameMsg{visuals: visuals, overlays: overlays})
}

// ShowAdvisory replaces the advisory banner.
func (u *UI) ShowAdvisory(text string) {
	u.program.Send(advisoryMsg{text: text})
}

// ShowSelection highlights id; "" clears the highlight.
func (u *UI) ShowSelection(id string) {
	u.program.Send(selectionMsg{id: id})
}

// Logf appends a line to the log pane.
func (u *UI) Logf(format string, args ...any) {
	u.program.Send(logMsg{line: fmt.Sprintf(format, args...)})
}
