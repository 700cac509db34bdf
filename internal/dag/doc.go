// Package dag provides a small directed graph with cycle detection. The
// session resolver uses it to reject include chains that lead back to a
// file already being resolved.
package dag
