// Package physics is a reference rigid-body engine implementing
// [engine.Simulation].
//
// Scenes are YAML files describing a tree of bodies joined by free, hinge,
// slide, weld or mocap joints, plus actuators, tendons, sensors, cameras and
// lights. Five scenes are embedded and resolved by name:
//
//	sc, err := physics.LoadScene("ur5e")
//	integ, _ := integrators.Get("rk4")
//	sim, err := physics.New(sc, integ)
//
// The state vector handed to the [dynamo.Integrator] is qpos followed by
// qvel. Free joints store position and a w,x,y,z quaternion in qpos and
// world-frame linear and angular velocity in qvel; quaternions are
// renormalized after every step.
package physics
