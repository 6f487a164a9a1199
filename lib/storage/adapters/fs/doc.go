// Package fs implements the directory-backed storage adapter: one
// codec-encoded envelope file per key under a root directory.
//
// Keys are percent-escaped into filenames, so arbitrary key strings
// round-trip losslessly and typical keys stay readable on disk. Writes
// go through a temp-file-plus-rename so a crash never leaves a torn
// envelope. Files without the adapter's extension are ignored, which
// lets the adapter share a directory with other data.
//
// The adapter is persistent and unbounded. Expired entries are deleted
// lazily when a read encounters them.
package fs
