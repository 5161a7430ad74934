package viz

// Action is a user intent bound to a key.
type Action int

const (
	ActNone Action = iota
	ActQuit
	ActPause
	ActReset
	ActReload
	ActNextScene
	ActNoiseStdUp
	ActNoiseStdDown
	ActNoiseRateUp
	ActNoiseRateDown
	ActSelectNext
	ActSelectPrev
	ActDragLeft
	ActDragRight
	ActDragFwd
	ActDragBack
	ActDragUp
	ActDragDown
	ActRelease
	ActYawLeft
	ActYawRight
	ActPitchUp
	ActPitchDown
	ActZoomIn
	ActZoomOut
	ActCameraReset
	ActRunScript
	ActStopScript
	ActNextExample
	ActClearOutput
	ActNextActuator
	ActTheme
	ActHelp
)

var keymap = map[string]Action{
	"q":      ActQuit,
	"ctrl+c": ActQuit,
	" ":      ActPause,
	"r":      ActReset,
	"l":      ActReload,
	"tab":    ActNextScene,
	"n":      ActNoiseStdUp,
	"N":      ActNoiseStdDown,
	"m":      ActNoiseRateUp,
	"M":      ActNoiseRateDown,
	"]":      ActSelectNext,
	"[":      ActSelectPrev,
	"left":   ActDragLeft,
	"right":  ActDragRight,
	"up":     ActDragFwd,
	"down":   ActDragBack,
	"pgup":   ActDragUp,
	"pgdown": ActDragDown,
	"esc":    ActRelease,
	"d":      ActRelease,
	"y":      ActYawLeft,
	"Y":      ActYawRight,
	"x":      ActPitchUp,
	"X":      ActPitchDown,
	"z":      ActZoomIn,
	"Z":      ActZoomOut,
	"+":      ActZoomIn,
	"-":      ActZoomOut,
	"v":      ActCameraReset,
	"s":      ActRunScript,
	"c":      ActStopScript,
	"e":      ActNextExample,
	"ctrl+l": ActClearOutput,
	"a":      ActNextActuator,
	"t":      ActTheme,
	"?":      ActHelp,
}

// Lookup maps a key name as reported by bubbletea to an action.
func Lookup(key string) Action {
	return keymap[key]
}

const helpText = `space pause   r reset   l reload   tab next scene
n/N noise std +/-   m/M noise rate +/-
[ ] select body   arrows/pgup/pgdn drag   d release
x/X pitch   y/Y yaw   z/Z zoom   v camera reset
s run script   c stop   e next example   ctrl+l clear
a next actuator   t theme   ? help   q quit`
