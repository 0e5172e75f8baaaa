// Package git implements commit history queries over git object storage. It
// is written in Go from scratch, without any C dependencies.
//
// A query is described by LogOptions: a set of Since boundaries the walk
// starts from, a set of Until boundaries pruning everything reachable from
// them, and an ordering discipline (committer time, topological, either one
// reversed). Queries run against any storage.Storer; storage/memory and
// storage/filesystem provide the two built-in backends.
package git
