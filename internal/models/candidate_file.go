package models

import (
	"encoding/base64"
	"strings"
)

// CandidateFile is a file the user selected or dropped, held only until its
// transfer completes.
type CandidateFile struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// NewCandidateFile builds a CandidateFile whose size is the payload length.
func NewCandidateFile(name, mediaType string, data []byte) *CandidateFile {
	return &CandidateFile{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Data:      data,
	}
}

// DataURL encodes the payload as a data: URL for local preview.
func (f *CandidateFile) DataURL() string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(f.MediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(f.Data))
	return b.String()
}
