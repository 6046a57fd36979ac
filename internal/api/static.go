package api

import (
	"net/http"
	"os"
)

// uploadsFS serves individual files only. Directories report not-exist so
// the file server never renders a listing of other users' uploads.
type uploadsFS struct {
	root http.FileSystem
}

func (fs uploadsFS) Open(name string) (http.File, error) {
	f, err := fs.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
