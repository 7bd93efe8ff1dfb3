// SPDX-License-Identifier: MIT

// Package tui is a terminal browser for analyzed frames.
package tui

import (
	"fmt"
	"math"
	"strings"

	"pav/internal/analysis"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

const barWidth = 40

type keyMap struct {
	Quit  key.Binding
	Prev  key.Binding
	Next  key.Binding
	First key.Binding
	Last  key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Prev:  key.NewBinding(key.WithKeys("left", "h", "p")),
	Next:  key.NewBinding(key.WithKeys("right", "l", "n")),
	First: key.NewBinding(key.WithKeys("home", "g")),
	Last:  key.NewBinding(key.WithKeys("end", "G")),
}

// FrameBrowserModel pages through the reports of an analyzed file.
type FrameBrowserModel struct {
	title    string
	reports  []analysis.FrameReport
	index    int
	viewport viewport.Model
	ready    bool
}

// NewFrameBrowserModel creates a browser over reports, starting at the first.
func NewFrameBrowserModel(title string, reports []analysis.FrameReport) FrameBrowserModel {
	return FrameBrowserModel{title: title, reports: reports}
}

// Init implements tea.Model.
func (m FrameBrowserModel) Init() tea.Cmd {
	return nil
}

// Index returns the position of the frame on screen.
func (m FrameBrowserModel) Index() int { return m.index }

func (m FrameBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderFrame())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Prev):
			return m.show(m.index - 1), nil
		case key.Matches(msg, keys.Next):
			return m.show(m.index + 1), nil
		case key.Matches(msg, keys.First):
			return m.show(0), nil
		case key.Matches(msg, keys.Last):
			return m.show(len(m.reports) - 1), nil
		}
	}

	// Remaining keys scroll the band table.
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m FrameBrowserModel) show(i int) FrameBrowserModel {
	i = max(0, min(i, len(m.reports)-1))
	if i == m.index {
		return m
	}
	m.index = i
	if m.ready {
		m.viewport.SetContent(m.renderFrame())
		m.viewport.GotoTop()
	}
	return m
}

// View renders the UI
func (m FrameBrowserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render(m.title)
	if len(m.reports) > 0 {
		title += infoStyle.Render(fmt.Sprintf("  frame %d/%d", m.index+1, len(m.reports)))
	}
	help := infoStyle.Render("←/→: Frame • Home/End: First/Last • ↑/↓: Scroll • q: Quit")

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderFrame formats the descriptors and Mel bands of the current frame.
func (m FrameBrowserModel) renderFrame() string {
	if len(m.reports) == 0 {
		return "No frames analyzed."
	}
	r := m.reports[m.index]

	var sb strings.Builder
	fmt.Fprintf(&sb, "Generation:         %d\n", r.Generation)
	fmt.Fprintf(&sb, "Frame:              %d samples @ %.0f Hz\n", r.FrameSize, r.SampleRate)
	fmt.Fprintf(&sb, "Amplitude max:      %.4f\n", r.AmplitudeMax)
	fmt.Fprintf(&sb, "RMS:                %.4f\n", r.RMS)
	fmt.Fprintf(&sb, "Zero crossings:     %d (%.1f Hz)\n", r.ZeroCrossings, r.ZeroCrossingRate)
	fmt.Fprintf(&sb, "Spectral centroid:  %.1f Hz\n", r.SpectralCentroid)
	fmt.Fprintf(&sb, "Log spectrum:       %.3f .. %.3f\n\n", r.SpectrumMin, r.SpectrumMax)

	centers := bandCenters(r.SampleRate, len(r.Mel))
	sb.WriteString(highlightStyle.Render(fmt.Sprintf("%4s %9s %10s", "band", "center", "energy")))
	sb.WriteString("\n")
	for i, v := range r.Mel {
		fmt.Fprintf(&sb, "%4d %7.0fHz %10.5f %s\n", i, centers[i], v, bar(v, r.MelMax))
	}
	return sb.String()
}

// bandCenters returns the center frequency of every band of the Mel bank the
// engine uses for a report with n bands.
func bandCenters(sampleRate float64, n int) []float64 {
	centers := make([]float64, n)
	bank, err := analysis.NewMelFilterBank(0, math.Floor(sampleRate/2), n)
	if err != nil {
		return centers
	}
	for i, f := range bank.Filters() {
		centers[i] = analysis.MelToFreq(f.MelCenter)
	}
	return centers
}

func bar(v, peak float64) string {
	if !(peak > 0) || !(v > 0) {
		return ""
	}
	n := int(math.Round(v / peak * barWidth))
	return strings.Repeat("█", min(n, barWidth))
}

// StartFrameBrowser launches the Bubble Tea TUI over reports.
func StartFrameBrowser(title string, reports []analysis.FrameReport) error {
	p := tea.NewProgram(
		NewFrameBrowserModel(title, reports),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
