// Package session resolves a launch description into running processes.
//
// Resolution is a single depth-first walk over the action forest in
// declaration order. Each action's condition is resolved against the
// current Scope; when it holds, the action's effect is realized before the
// next action is looked at. A variable set by one action is therefore
// visible to every later action in the same frame, and a process spawned
// early is already running while later actions resolve.
//
// Whatever way a run ends, the shutdown hooks registered during resolution
// run once each in reverse order, then every process is terminated.
package session
