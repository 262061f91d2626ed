package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// File is the document picked for upload.
type File struct {
	Name string // base name, e.g. "claim.txt"
	Size int64  // bytes; <= 0 means unknown
	Body io.Reader
}

// OpenFile opens path for upload. The caller closes the returned closer once
// the attempt has finished.
func OpenFile(path string) (*File, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{Name: filepath.Base(path), Size: st.Size(), Body: f}, f, nil
}

// Form is the local model behind the upload form. It is cleared after a
// successful upload.
type Form struct {
	File        *File
	Client      string
	Tags        string // comma separated
	ContentType string // defaults to text/plain
}

// Reset clears the selected file, tags and client.
func (f *Form) Reset() {
	f.File = nil
	f.Tags = ""
	f.Client = ""
}
