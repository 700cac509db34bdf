// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of a launch session
// description. It is the format-agnostic output of the session file loader
// and the input of the session resolver.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Description: The root container of one session file. It holds the
//     declared arguments and the ordered forest of actions.
//
//   - ArgumentDecl: A named input of a description, with an optional default.
//     A declaration without a default must be bound by the caller.
//
//   - Action: One node of the forest. Every action carries a condition and
//     realizes a single effect when the condition holds: starting a process,
//     including another session, setting a variable, registering a shutdown
//     hook and so on. Groups nest further actions.
//
//   - FSInfo: Metadata that links every action back to its source file, so
//     errors can name the file that produced them.
//
// Every value inside the model is a subst.Expr. Nothing here is resolved:
// the same Description can be walked many times against different runtime
// contexts, which is how one session file is included under several
// namespaces.
package model
