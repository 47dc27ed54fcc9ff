// Package scene owns the worker-local replica of the scene graph.
//
// Ownership boundary:
// - managed objects and their parameter stores
// - commit derivations (deterministic given current parameters)
// - reference counting between objects
// - type registry and module table used by construction commands
//
// Scene objects are never shared between ranks. The same handle on two ranks
// names two distinct instances that are kept equal by lockstep command
// delivery.
package scene
