// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Description, the root container for one session file.
package model

// Description is a parsed session file.
type Description struct {
	FilePath  string
	Arguments []ArgumentDecl
	Actions   []Action
}

// NewDescription builds a Description, rejecting duplicate argument names.
func NewDescription(filePath string, args []ArgumentDecl, actions []Action) (*Description, error) {
	seen := make(map[string]ArgumentDecl, len(args))
	for _, a := range args {
		if first, ok := seen[a.Name]; ok {
			return nil, &DuplicateArgumentError{Name: a.Name, First: first.FSInfo, Again: a.FSInfo}
		}
		seen[a.Name] = a
	}
	return &Description{
		FilePath:  filePath,
		Arguments: args,
		Actions:   actions,
	}, nil
}

// Argument looks up a declared argument by name.
func (d *Description) Argument(name string) (ArgumentDecl, bool) {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return ArgumentDecl{}, false
}

// Walk visits every action of the forest depth-first in declaration order,
// descending into groups. Returning false from fn skips a group's children.
// Walk does not evaluate conditions.
func Walk(actions []Action, fn func(Action) bool) {
	for _, a := range actions {
		if !fn(a) {
			continue
		}
		if g, ok := a.(*Group); ok {
			Walk(g.Actions, fn)
		}
	}
}
