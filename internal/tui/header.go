package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/retracehq/retrace/internal/retrace"
	"github.com/retracehq/retrace/internal/tui/theme"
)

// headerModel manages the fixed two-line header above the timeline.
type headerModel struct {
	width       int
	project     *retrace.Project
	sessionMeta *retrace.SessionMeta
	session     *retrace.Session
}

func newHeaderModel() headerModel {
	return headerModel{}
}

func (m *headerModel) setWidth(w int) {
	m.width = w
}

func (m *headerModel) setProject(project *retrace.Project) {
	m.project = project
}

func (m *headerModel) setSessionMeta(meta *retrace.SessionMeta) {
	m.sessionMeta = meta
}

func (m *headerModel) setSession(session *retrace.Session) {
	m.session = session
	if session != nil {
		meta := session.Meta
		m.sessionMeta = &meta
	}
}

func (m headerModel) height() int {
	return 2 // Fixed two-line header
}

func (m headerModel) view() string {
	if m.width < 20 {
		return "\n"
	}

	line1 := m.renderProjectLine()
	line2 := m.renderSessionLine()

	content := line1 + "\n" + line2
	return headerBoxStyle().Width(m.width).Render(content)
}

func (m headerModel) renderProjectLine() string {
	brand := headerBrandStyle().Render("retrace")
	brandWidth := lipgloss.Width(brand)

	availWidth := maxInt(10, m.width-brandWidth-2)

	var projectInfo string
	if m.project != nil {
		parts := []string{m.project.Name}

		if m.project.SessionCount > 0 {
			parts = append(parts, fmt.Sprintf("%d sessions", m.project.SessionCount))
		}
		if m.project.DisplayPath != "" {
			parts = append(parts, m.project.DisplayPath)
		}
		if !m.project.LastModified.IsZero() {
			parts = append(parts, "last: "+m.project.LastModified.Local().Format("Jan 02 15:04"))
		}

		projectInfo = headerLabelStyle().Render("Project: ") + strings.Join(parts, " | ")
	} else if m.sessionMeta != nil && m.sessionMeta.ProjectPath != "" {
		projectInfo = headerLabelStyle().Render("Project: ") + retrace.DisplayPath(m.sessionMeta.ProjectPath)
	} else {
		projectInfo = headerDimStyle().Render("No project selected")
	}

	projectInfo = truncateWithWidth(projectInfo, availWidth)

	infoWidth := lipgloss.Width(projectInfo)
	padding := maxInt(1, m.width-infoWidth-brandWidth)

	return projectInfo + strings.Repeat(" ", padding) + brand
}

func (m headerModel) renderSessionLine() string {
	var sessionInfo string

	if m.session != nil {
		sessionInfo = m.renderFullSessionInfo()
	} else if m.sessionMeta != nil {
		sessionInfo = m.renderMetaSessionInfo()
	} else {
		sessionInfo = headerDimStyle().Render("No session selected")
	}

	sessionInfo = truncateWithWidth(sessionInfo, m.width-2)

	infoWidth := lipgloss.Width(sessionInfo)
	padding := maxInt(0, m.width-infoWidth)

	return sessionInfo + strings.Repeat(" ", padding)
}

func (m headerModel) renderFullSessionInfo() string {
	s := m.session
	var parts []string

	if s.Meta.ID != "" {
		id := s.Meta.ID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, headerLabelStyle().Render("Session: ")+id)
	}

	if d, ok := sessionDuration(s.Events); ok {
		parts = append(parts, "duration: "+formatSessionDuration(d))
	}

	parts = append(parts, fmt.Sprintf("%d events", len(s.Events)))

	if s.Meta.Model != "" {
		parts = append(parts, headerLabelStyle().Render("model: ")+shortModelName(s.Meta.Model))
	}

	if s.Meta.GitBranch != "" {
		branch := s.Meta.GitBranch
		if len(branch) > 15 {
			branch = branch[:15] + "..."
		}
		parts = append(parts, headerLabelStyle().Render("branch: ")+branch)
	}

	if s.Meta.Source != "" {
		parts = append(parts, string(s.Meta.Source))
	}

	return strings.Join(parts, " | ")
}

func (m headerModel) renderMetaSessionInfo() string {
	meta := m.sessionMeta
	var parts []string

	if meta.ID != "" {
		id := meta.ID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, headerLabelStyle().Render("Session: ")+id)
	}

	if meta.FirstPrompt != "" {
		parts = append(parts, fmt.Sprintf("%q", retrace.TruncateString(meta.FirstPrompt, 30)))
	}

	if meta.EventCount > 0 {
		parts = append(parts, fmt.Sprintf("%d events", meta.EventCount))
	}

	if !meta.CreatedAt.IsZero() {
		parts = append(parts, meta.CreatedAt.Local().Format("Jan 02 15:04"))
	}

	if meta.Source != "" {
		parts = append(parts, string(meta.Source))
	}

	return strings.Join(parts, " | ")
}

// sessionDuration computes the span between the first and last timestamped
// events; ok is false when fewer than two carry timestamps.
func sessionDuration(events []retrace.Event) (time.Duration, bool) {
	var first, last time.Time
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	if first.IsZero() || !last.After(first) {
		return 0, false
	}
	return last.Sub(first), true
}

// shortModelName compresses a full model identifier for the header.
func shortModelName(model string) string {
	for _, family := range []string{"opus", "sonnet", "haiku"} {
		if strings.Contains(model, family) {
			return family
		}
	}
	if len(model) > 20 {
		return model[:20] + "..."
	}
	return model
}

func formatSessionDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.0fs", secs)
	}
	mins := int(secs) / 60
	if mins < 60 {
		return fmt.Sprintf("%dm%ds", mins, int(secs)%60)
	}
	hours := mins / 60
	return fmt.Sprintf("%dh%dm", hours, mins%60)
}

// truncateWithWidth truncates a string to fit within maxWidth, accounting
// for ANSI codes.
func truncateWithWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	width := lipgloss.Width(s)
	if width <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		s = string(runes)
		if lipgloss.Width(s) <= maxWidth-3 {
			return s + "..."
		}
		runes = runes[:len(runes)-1]
	}
	return "..."
}

// Header styles derive from the active theme so a theme switch restyles the
// chrome without restarting.
func headerBoxStyle() lipgloss.Style {
	t := theme.Current()
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.TextPrimary.Fg))
}

func headerLabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Current().GetAccent()))
}

func headerBrandStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Current().GetAccent()))
}

func headerDimStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Current().TextMuted.Fg))
}
