package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const maxActuatorRows = 10

// View renders the canvas and the side panel.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	m.canvas.Clear()
	w, h := m.canvas.Pixels()
	m.opts.Graph.Render(m.canvas, NewProjector(m.status.Camera, w, h))
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.st.canvas.Render(m.canvas.String()), m.st.panel.Render(m.panel()))
	if m.showHelp {
		return m.st.help.Render(helpText) + "\n\n" + body
	}
	return body
}

func (m Model) panel() string {
	var s strings.Builder
	st := m.status

	title := st.Scene
	if title == "" {
		title = "no scene"
	}
	s.WriteString(m.st.header.Render(strings.ToUpper(title)) + "\n")

	switch {
	case !st.Loaded:
		s.WriteString(m.st.fault.Render("NOT LOADED") + "\n")
	case st.Paused:
		s.WriteString(m.st.paused.Render("PAUSED") + "\n")
	default:
		s.WriteString(m.st.running.Render("RUNNING") + "\n")
	}
	if m.opts.Runner != nil && m.opts.Runner.Running() {
		s.WriteString(m.st.active.Render("script running") + "\n")
	}
	s.WriteString("\n")

	s.WriteString(m.row("Time", fmt.Sprintf("%.3fs", st.Time)))
	s.WriteString(m.row("Steps", fmt.Sprintf("%d/frame  snaps %d", m.frame.Steps, st.Snaps)))
	s.WriteString(m.row("Model", fmt.Sprintf("%d bodies  %d joints  %d sensors", m.info.bodies, m.info.joints, m.info.sensors)))
	noise := "off"
	if st.Noise.Enabled() {
		noise = fmt.Sprintf("std %.2f  rate %.2fs", st.Noise.Std, st.Noise.Rate)
	}
	s.WriteString(m.row("Noise", noise))
	s.WriteString(m.row("Body", m.bodyLabel()))
	s.WriteString("\n")

	s.WriteString(m.actuatorTable())

	if len(m.ctrlHist) > 1 && m.actuator < len(m.info.actuators) {
		chart := asciigraph.Plot(m.ctrlHist,
			asciigraph.Height(5),
			asciigraph.Width(panelWidth-14),
			asciigraph.Caption(truncate(m.info.actuators[m.actuator].name, 30)))
		s.WriteString("\n" + m.st.graph.Render(chart) + "\n")
	}

	if m.opts.Output != nil {
		if tail := m.opts.Output.Tail(outputTail); len(tail) > 0 {
			s.WriteString("\n" + m.st.header.Render("OUTPUT") + "\n")
			for _, line := range tail {
				s.WriteString(m.st.output.Render(truncate(line, panelWidth-4)) + "\n")
			}
		}
	}
	s.WriteString("\n" + m.st.help.Render("? help  q quit"))
	return s.String()
}

func (m Model) row(label, value string) string {
	return m.st.label.Render(label) + m.st.value.Render(value) + "\n"
}

func (m Model) bodyLabel() string {
	id := m.SelectedBody()
	node, ok := m.opts.Graph.Bodies[id]
	if !ok {
		return "-"
	}
	label := fmt.Sprintf("[%d] %s", id, truncate(node.Name, 20))
	if m.status.Dragged && m.status.Drag.BodyID == id {
		label += "  (dragging)"
	}
	return label
}

// actuatorTable lists a window of actuators around the selected one.
func (m Model) actuatorTable() string {
	rows := m.info.actuators
	if len(rows) == 0 {
		return m.st.label.Render("  (no actuators)") + "\n"
	}
	first := 0
	if len(rows) > maxActuatorRows {
		first = m.actuator - maxActuatorRows/2
		if first < 0 {
			first = 0
		}
		if first > len(rows)-maxActuatorRows {
			first = len(rows) - maxActuatorRows
		}
	}
	last := first + maxActuatorRows
	if last > len(rows) {
		last = len(rows)
	}

	var s strings.Builder
	s.WriteString(m.st.header.Render(fmt.Sprintf("ACTUATORS (%d)", len(rows))) + "\n")
	for i := first; i < last; i++ {
		r := rows[i]
		line := fmt.Sprintf("%2d %-16s %s %+6.2f", i, truncate(r.name, 16), ctrlBar(r.ctrl, r.lo, r.hi, 8), r.ctrl)
		if i == m.actuator {
			s.WriteString(m.st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + m.st.value.Render(line) + "\n")
		}
	}
	return s.String()
}
