// Package app contains the core application logic. It defines the main App
// struct, its layered configuration, and the run lifecycle of one session,
// decoupled from any specific entrypoint like a CLI.
package app
