// Package supervisor starts and watches the external processes of a
// session.
//
// Every process runs in its own process group so that shutdown reaches the
// children it forks. A process may be respawned after it exits, and a
// required process ends the whole session when it exits. Shutdown signals
// each group with SIGINT, then SIGTERM, then SIGKILL, waiting between steps.
//
// Spawn is called while the session is being resolved; Wait and Shutdown
// are called once resolution has finished.
package supervisor
