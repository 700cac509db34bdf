// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FSInfo struct, which stores file system metadata.
//
// The file path connects a parsed action back to its physical source on
// disk. It is used for error reporting and to resolve relative include paths
// against the directory of the including file.
package model

import (
	"fmt"
	"path/filepath"
)

// FSInfo records where a definition came from.
type FSInfo struct {
	FilePath string
	Line     int
}

// NewFSInfo returns FSInfo for the given file and line.
func NewFSInfo(filePath string, line int) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
		Line:     line,
	}
}

// Dir returns the directory containing the source file.
func (fi *FSInfo) Dir() string {
	if fi == nil || fi.FilePath == "" {
		return ""
	}
	return filepath.Dir(fi.FilePath)
}

func (fi *FSInfo) String() string {
	if fi == nil {
		return "<unknown>"
	}
	if fi.Line > 0 {
		return fmt.Sprintf("%s:%d", fi.FilePath, fi.Line)
	}
	return fi.FilePath
}
