package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
)

// ErrNoFile means no file was supplied. Callers treat it as a no-op.
var ErrNoFile = errors.New("no file supplied")

// sniffLen is how many bytes http.DetectContentType looks at.
const sniffLen = 512

// FirstFile picks the file both input surfaces converge on: the first part
// of the "file" field, else the first part of any other field. Additional
// files are ignored.
func FirstFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil || len(form.File) == 0 {
		return nil, ErrNoFile
	}
	if fhs := form.File["file"]; len(fhs) > 0 {
		return fhs[0], nil
	}

	// deterministic order over the remaining fields
	fields := make([]string, 0, len(form.File))
	for name := range form.File {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	for _, name := range fields {
		if fhs := form.File[name]; len(fhs) > 0 {
			return fhs[0], nil
		}
	}
	return nil, ErrNoFile
}

// ReadCandidate reads a multipart file into a CandidateFile. At most
// limit+1 bytes are read so an oversized file still reports a size above
// the limit without being buffered whole.
func ReadCandidate(fh *multipart.FileHeader, limit int64) (*models.CandidateFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	file := models.NewCandidateFile(filepath.Base(fh.Filename), MediaType(fh.Header.Get("Content-Type"), data), data)
	if fh.Size > file.Size {
		file.Size = fh.Size
	}
	return file, nil
}

// MediaType returns the declared media type without parameters. When
// nothing useful was declared, the type is sniffed from content.
func MediaType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
