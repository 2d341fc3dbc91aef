package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// progressProgram drives a small bubbletea progress bar on its own
// goroutine while render() advances the player on the caller's, grounded
// on the teacher's lipgloss-styled splash/status views (internal/views,
// since removed), repurposed here from a startup animation to a
// render-progress display.
type progressProgram struct {
	prog *tea.Program
	done chan struct{}
}

type progressModel struct {
	bar            progress.Model
	total, current int
}

type frameMsg int

func newProgressProgram(totalFrames int) *progressProgram {
	if totalFrames <= 0 {
		totalFrames = 1
	}
	pp := &progressProgram{done: make(chan struct{})}
	model := progressModel{bar: progress.New(progress.WithDefaultGradient()), total: totalFrames}
	pp.prog = tea.NewProgram(model)
	go func() {
		pp.prog.Run()
		close(pp.done)
	}()
	return pp
}

func (pp *progressProgram) advance(frames int) {
	pp.prog.Send(frameMsg(frames))
}

func (pp *progressProgram) stop() {
	pp.prog.Send(tea.Quit())
	<-pp.done
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.current = int(msg)
		if m.current >= m.total {
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 6
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

var progressLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

func (m progressModel) View() string {
	frac := 0.0
	if m.total > 0 {
		frac = float64(m.current) / float64(m.total)
	}
	label := progressLabelStyle.Render(fmt.Sprintf("  %d/%d frames", m.current, m.total))
	return m.bar.ViewAs(frac) + label + "\n"
}
