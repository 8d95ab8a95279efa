// Package storage defines the journal file-system abstraction.
package storage

import "github.com/starford/daybook/internal/models"

// Provider is the interface for journal file operations. Paths are relative
// to the journal root.
type Provider interface {
	// List returns metadata for every document under dir, skipping hidden
	// directories and the compiled-documents directory.
	List(dir string) ([]models.EntryMetadata, error)
	// IsDocument reports whether a file named name is a journal document:
	// not hidden and carrying the configured extension.
	IsDocument(name string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
