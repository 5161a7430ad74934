package config

import "sort"

// Scenes maps the names shown in the scene selector to built-in scenes.
var Scenes = map[string]string{
	"Spot with arm": "spot_arm",
	"Spot":          "spot",
	"H1 humanoid":   "h1",
	"UR5e arm":      "ur5e",
	"Barkour":       "barkour",
}

var Presets = map[string]map[string]*Config{
	"spot_arm": {
		"default": {Scene: "spot_arm", Integrator: "rk4", FPS: 60},
		"jitter": {
			Scene: "spot_arm", Integrator: "rk4", FPS: 60,
			Noise: NoiseConfig{Rate: 0.2, Std: 0.15, ClampToRange: true},
		},
	},
	"spot": {
		"default": {Scene: "spot", Integrator: "rk4", FPS: 60},
		"shaky": {
			Scene: "spot", Integrator: "rk4", FPS: 60,
			Noise: NoiseConfig{Rate: 0.05, Std: 0.4},
		},
	},
	"h1": {
		"default": {Scene: "h1", Integrator: "rk4", FPS: 60},
		"paused": {Scene: "h1", Integrator: "rk4", FPS: 60, Paused: true},
	},
	"ur5e": {
		"default": {Scene: "ur5e", Integrator: "rk4", FPS: 60},
		"drift": {
			Scene: "ur5e", Integrator: "rk4", FPS: 60,
			Noise: NoiseConfig{Rate: 1.0, Std: 0.3, ClampToRange: true},
		},
		"fast": {Scene: "ur5e", Integrator: "euler", FPS: 120},
	},
	"barkour": {
		"default": {Scene: "barkour", Integrator: "rk4", FPS: 60},
		"shaky": {
			Scene: "barkour", Integrator: "rk4", FPS: 60,
			Noise: NoiseConfig{Rate: 0.05, Std: 0.5},
		},
	},
}

// GetPreset returns a copy of the preset with unset fields filled from
// DefaultConfig.
func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	p, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scene = p.Scene
	cfg.Integrator = p.Integrator
	cfg.FPS = p.FPS
	cfg.Paused = p.Paused
	cfg.Noise = p.Noise
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SceneOrder returns the built-in scenes in selector order.
func SceneOrder() []string {
	titles := make([]string, 0, len(Scenes))
	for t := range Scenes {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = Scenes[t]
	}
	return out
}
