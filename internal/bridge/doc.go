// Package bridge exposes the loaded simulation to scripts as a fixed table
// of named functions.
//
// Every function reaches the simulation through a [Host], which serializes
// access and reports whether a scene is loaded. With nothing loaded each
// function returns a benign default rather than failing. Reads return
// copies; writes are validated into a scratch slice before any engine
// buffer is touched, so a rejected call leaves state unchanged.
//
// The table is registered into an interpreter through [Registrar], one
// name at a time, in a stable order.
package bridge
