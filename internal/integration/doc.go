// Package integration holds end-to-end scenario tests that drive the
// settings engine the way real hosts do: full App instances built from
// descriptor scripts and store files on disk, exchanging blobs and
// converging through the filesystem.
//
// The tests here cross package boundaries on purpose. Unit-level
// behavior belongs next to the package it tests; this package covers
// the flows that only exist once everything is wired together.
//
// All tests are skipped with the -short flag.
package integration
