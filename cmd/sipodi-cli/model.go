package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/sipodi-api/pkg/client"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type stageMsg client.UploadState

type progressMsg struct {
	sent  int64
	total int64
}

type doneMsg struct {
	result *client.UploadResult
	err    error
}

// uploadModel renders one upload pipeline. The pipeline itself runs outside the tea loop and
// reports back through messages.
type uploadModel struct {
	filename string
	stage    client.UploadState
	sent     int64
	total    int64
	result   *client.UploadResult
	err      error
	cancel   context.CancelFunc

	spinner  spinner.Model
	progress progress.Model
}

func newUploadModel(filename string, total int64, cancel context.CancelFunc) uploadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return uploadModel{
		filename: filename,
		total:    total,
		cancel:   cancel,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m uploadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			if m.err == nil && m.result == nil {
				m.err = context.Canceled
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.progress.Width = clamp(msg.Width-10, 10, 60)
	case stageMsg:
		m.stage = client.UploadState(msg)
	case progressMsg:
		m.sent, m.total = msg.sent, msg.total
	case doneMsg:
		m.result, m.err = msg.result, msg.err
		if msg.err != nil {
			m.stage = client.UploadFailed
		} else {
			m.stage = client.UploadConfirmed
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m uploadModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SIPODI upload") + " " + m.filename + "\n\n")

	switch m.stage {
	case client.UploadIdle:
		b.WriteString(m.spinner.View() + " requesting upload URL\n")
	case client.UploadPresigned, client.UploadTransferring:
		b.WriteString(m.progress.ViewAs(m.percent()) + "\n")
		b.WriteString(hintStyle.Render(fmt.Sprintf("%s / %s", humanBytes(m.sent), humanBytes(m.total))) + "\n")
		if m.total > 0 && m.sent >= m.total {
			b.WriteString(m.spinner.View() + " confirming\n")
		}
	case client.UploadConfirmed:
		b.WriteString(doneStyle.Render("uploaded") + " upload_id " + m.result.UploadID + "\n")
	case client.UploadFailed:
		b.WriteString(errorStyle.Render("failed") + " " + m.err.Error() + "\n")
	}

	if !m.stage.Finished() {
		b.WriteString("\n" + hintStyle.Render("q to abandon") + "\n")
	}
	return b.String()
}

func (m uploadModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.sent) / float64(m.total)
	if p > 1 {
		return 1
	}
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
