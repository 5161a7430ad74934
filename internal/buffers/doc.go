// Package buffers wraps the engine's exported numeric arrays in typed,
// bounds-known views.
//
// Every view is sized from the Model's declared counts, clipped to what the
// backing slice actually holds. Reads outside the view report ok=false and
// writes outside it are dropped, so an index taken from a script or a UI
// event can never reach memory adjacent to the array it names.
//
// Views alias the engine's buffers. Use Snapshot to hand a copy to anything
// that outlives the current call.
package buffers
