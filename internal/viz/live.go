package viz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/san-kum/simbridge/internal/mirror"
	"github.com/san-kum/simbridge/internal/script"
	"github.com/san-kum/simbridge/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	defaultCols = 72
	defaultRows = 24
	panelWidth  = 52

	historyCapacity = 240
	dragStep        = 0.05
	orbitStep       = 0.1
	zoomStep        = 1.15
	noiseStdStep    = 0.05
	minNoiseRate    = 0.01
	outputTail      = 8
)

type TickMsg time.Time

// Options wire the live view to a session.
type Options struct {
	Session *session.Session
	Graph   *Graph
	Table   *bridge.Table
	Runner  *script.Runner
	Output  *script.Output
	// Scenes is the tab cycle order.
	Scenes []string
	// Script is a file run by the run-script key. When empty the selected
	// example runs instead.
	Script string
	FPS    int
	Theme  string
	Log    logrus.FieldLogger
}

type actuatorRow struct {
	name         string
	lo, hi, ctrl float64
}

type panelInfo struct {
	model     string
	bodies    int
	joints    int
	sensors   int
	actuators []actuatorRow
}

// Model is the bubbletea model of the live viewer.
type Model struct {
	opts   Options
	log    logrus.FieldLogger
	canvas *Canvas
	theme  Theme
	st     styles

	start    time.Time
	frame    session.Frame
	status   session.Status
	info     panelInfo
	reloaded *bool

	selected int
	actuator int
	example  int
	dragging bool
	ctrlHist []float64
	showHelp bool
	quitting bool
}

func NewModel(opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Graph == nil {
		opts.Graph = NewGraph()
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		opts:     opts,
		log:      log,
		canvas:   NewCanvas(defaultCols, defaultRows),
		theme:    theme,
		st:       newStyles(theme),
		reloaded: new(bool),
		ctrlHist: make([]float64, 0, historyCapacity),
	}
	flag := m.reloaded
	opts.Session.OnReload(func(session.Reloaded) { *flag = true })
	m.refresh()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cols := msg.Width - panelWidth - 6
		rows := msg.Height - 2
		if cols < 20 {
			cols = 20
		}
		if rows < 8 {
			rows = 8
		}
		m.canvas.Resize(cols, rows)
	case tea.KeyMsg:
		return m.handle(Lookup(msg.String()))
	case TickMsg:
		m.advance(time.Time(msg))
		return m, m.tick()
	}
	return m, nil
}

// advance runs one render callback at the tick time.
func (m *Model) advance(now time.Time) {
	if m.start.IsZero() {
		m.start = now
	}
	ms := float64(now.Sub(m.start)) / float64(time.Millisecond)
	m.frame = m.opts.Session.Frame(ms)
	if *m.reloaded {
		*m.reloaded = false
		m.selected, m.actuator, m.dragging = 0, 0, false
		m.ctrlHist = m.ctrlHist[:0]
		if m.opts.Table != nil {
			m.opts.Table.PrintInfo()
		}
	}
	m.refresh()
	// every queued drag command has been applied by now
	m.dragging = m.status.Dragged
}

func (m *Model) refresh() {
	m.status = m.opts.Session.Status()
	info := panelInfo{}
	m.opts.Session.Do(func(t *bridge.Target) {
		model := t.Sim.Model()
		info.model = model.Name
		info.bodies = t.View.Xpos.Len()
		info.joints = model.NJnt
		info.sensors = model.NSensor
		for i := 0; i < t.View.Ctrl.Len(); i++ {
			row := actuatorRow{name: fmt.Sprintf("actuator_%d", i)}
			if i < len(model.ActuatorNames) && model.ActuatorNames[i] != "" {
				row.name = model.ActuatorNames[i]
			}
			row.lo, row.hi, _ = t.View.Range(i)
			row.ctrl, _ = t.View.Ctrl.At(i)
			info.actuators = append(info.actuators, row)
		}
	})
	m.info = info
	if m.actuator < len(info.actuators) {
		m.ctrlHist = append(m.ctrlHist, info.actuators[m.actuator].ctrl)
		if len(m.ctrlHist) > historyCapacity {
			m.ctrlHist = m.ctrlHist[1:]
		}
	}
}

func (m Model) handle(act Action) (tea.Model, tea.Cmd) {
	sess := m.opts.Session
	switch act {
	case ActQuit:
		m.quitting = true
		if m.opts.Runner != nil {
			m.opts.Runner.Stop()
		}
		return m, tea.Quit
	case ActPause:
		sess.Send(session.TogglePause{})
	case ActReset:
		sess.Send(session.Reset{})
		m.ctrlHist = m.ctrlHist[:0]
	case ActReload:
		sess.Send(session.Reload{})
	case ActNextScene:
		if next := nextScene(m.opts.Scenes, m.status.Scene); next != "" {
			sess.Send(session.Reload{Scene: next})
		}
	case ActNoiseStdUp:
		sess.Send(session.SetNoiseStd{Std: m.status.Noise.Std + noiseStdStep})
	case ActNoiseStdDown:
		sess.Send(session.SetNoiseStd{Std: math.Max(0, m.status.Noise.Std-noiseStdStep)})
	case ActNoiseRateUp:
		sess.Send(session.SetNoiseRate{Rate: math.Max(minNoiseRate, m.status.Noise.Rate*2)})
	case ActNoiseRateDown:
		sess.Send(session.SetNoiseRate{Rate: math.Max(minNoiseRate, m.status.Noise.Rate/2)})
	case ActSelectNext, ActSelectPrev:
		ids := m.opts.Graph.BodyIDs()
		if len(ids) > 0 {
			d := 1
			if act == ActSelectPrev {
				d = -1
			}
			m.selected = (m.selected + d + len(ids)) % len(ids)
		}
		if m.dragging {
			sess.Send(session.EndDrag{})
			m.dragging = false
		}
	case ActDragLeft:
		m.nudge(mgl64.Vec3{-dragStep, 0, 0})
	case ActDragRight:
		m.nudge(mgl64.Vec3{dragStep, 0, 0})
	case ActDragFwd:
		m.nudge(mgl64.Vec3{0, 0, -dragStep})
	case ActDragBack:
		m.nudge(mgl64.Vec3{0, 0, dragStep})
	case ActDragUp:
		m.nudge(mgl64.Vec3{0, dragStep, 0})
	case ActDragDown:
		m.nudge(mgl64.Vec3{0, -dragStep, 0})
	case ActRelease:
		sess.Send(session.EndDrag{})
		m.dragging = false
	case ActYawLeft:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Orbit(c, -orbitStep, 0) })
	case ActYawRight:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Orbit(c, orbitStep, 0) })
	case ActPitchUp:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Orbit(c, 0, orbitStep) })
	case ActPitchDown:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Orbit(c, 0, -orbitStep) })
	case ActZoomIn:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Dolly(c, 1/zoomStep) })
	case ActZoomOut:
		m.moveCamera(func(c mirror.Camera) mirror.Camera { return Dolly(c, zoomStep) })
	case ActCameraReset:
		sess.SetCamera(mirror.DefaultCamera)
		m.status.Camera = mirror.DefaultCamera
	case ActRunScript:
		m.runScript()
	case ActStopScript:
		if m.opts.Runner != nil {
			m.opts.Runner.Stop()
		}
	case ActNextExample:
		m.example = (m.example + 1) % len(script.ExampleNames())
		m.print("example: %s\n", script.ExampleNames()[m.example])
	case ActClearOutput:
		if m.opts.Output != nil {
			m.opts.Output.Clear()
		}
	case ActNextActuator:
		if n := len(m.info.actuators); n > 0 {
			m.actuator = (m.actuator + 1) % n
			m.ctrlHist = m.ctrlHist[:0]
		}
	case ActTheme:
		m.theme = NextTheme(m.theme.Name)
		m.st = newStyles(m.theme)
	case ActHelp:
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// SelectedBody is the engine index of the body the drag keys act on, or
// -1 when the scene has no bodies.
func (m Model) SelectedBody() int {
	ids := m.opts.Graph.BodyIDs()
	if len(ids) == 0 {
		return -1
	}
	return ids[m.selected%len(ids)]
}

// nudge starts a drag on the selected body if needed and shifts the
// pointer target by d in the render frame.
func (m *Model) nudge(d mgl64.Vec3) {
	id := m.SelectedBody()
	node, ok := m.opts.Graph.Bodies[id]
	if !ok {
		return
	}
	if !m.dragging {
		m.opts.Session.Send(session.BeginDrag{Body: id, Hit: node.Position})
		m.dragging = true
	}
	m.opts.Session.Send(session.NudgeDrag{Delta: d})
}

func (m *Model) moveCamera(fn func(mirror.Camera) mirror.Camera) {
	cam := fn(m.opts.Session.Status().Camera)
	m.opts.Session.SetCamera(cam)
	m.status.Camera = cam
}

func (m *Model) runScript() {
	if m.opts.Runner == nil {
		return
	}
	name, code := m.scriptSource()
	if code == "" {
		return
	}
	err := m.opts.Runner.Start(context.Background(), name, code)
	switch {
	case errors.Is(err, script.ErrBusy):
		m.print("a script is already running\n")
	case err != nil:
		m.print("%v\n", err)
	default:
		m.log.WithField("script", name).Info("script started")
	}
}

func (m *Model) scriptSource() (string, string) {
	if m.opts.Script != "" {
		data, err := os.ReadFile(m.opts.Script)
		if err != nil {
			m.print("read script: %v\n", err)
			return "", ""
		}
		return filepath.Base(m.opts.Script), string(data)
	}
	name := script.ExampleNames()[m.example]
	return name, script.Examples[name]
}

func (m *Model) print(format string, args ...any) {
	if m.opts.Output != nil {
		fmt.Fprintf(m.opts.Output, format, args...)
	}
}

func nextScene(scenes []string, current string) string {
	if len(scenes) == 0 {
		return ""
	}
	for i, s := range scenes {
		if s == current {
			return scenes[(i+1)%len(scenes)]
		}
	}
	return scenes[0]
}
