// Package cleanup holds the session's shutdown hooks: removal of ephemeral
// files and user registered commands. Hooks run once each, newest first,
// and a failing hook never prevents the others from running.
package cleanup
