// Package filesystem provides the read_file, list_files, write_file and
// delete_file tools. Mutations go through the diff engine so every write
// is transactional and undoable.
package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem abstracts the read-side filesystem calls so tests can swap
// in failures without touching disk.
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	ReadDir(name string) ([]os.DirEntry, error)
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// OSFileSystem is the production implementation backed by the os package.
type OSFileSystem struct{}

func NewOSFileSystem() *OSFileSystem { return &OSFileSystem{} }

func (OSFileSystem) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileSystem) Remove(name string) error                   { return os.Remove(name) }
func (OSFileSystem) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }
func (OSFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
