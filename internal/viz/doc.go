// Package viz is the terminal front end: a braille scene graph that the
// state mirror writes into, an orbit camera, and a Bubble Tea program whose
// tick is the session's render callback.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Reset the scene
//	L      - Reload the scene
//	Tab    - Next scene
//	n/N    - Noise deviation up/down
//	m/M    - Noise correlation time up/down
//	[ ]    - Select body
//	Arrows - Drag the selected body (PgUp/PgDn vertical, D releases)
//	X Y Z  - Pitch, yaw, zoom the camera
//	S / C  - Run / stop the script
//	?      - Help
package viz
