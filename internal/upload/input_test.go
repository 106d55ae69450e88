package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

type part struct {
	field, name, contentType string
	data                     []byte
}

func buildForm(t *testing.T, parts ...part) *multipart.Form {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm
}

func TestFirstFile(t *testing.T) {
	t.Run("no form", func(t *testing.T) {
		_, err := FirstFile(nil)
		assert.ErrorIs(t, err, ErrNoFile)
	})

	t.Run("no files", func(t *testing.T) {
		_, err := FirstFile(&multipart.Form{})
		assert.ErrorIs(t, err, ErrNoFile)
	})

	t.Run("first of several in file field", func(t *testing.T) {
		form := buildForm(t,
			part{"file", "a.png", "image/png", pngHeader},
			part{"file", "b.png", "image/png", pngHeader},
		)
		fh, err := FirstFile(form)
		require.NoError(t, err)
		assert.Equal(t, "a.png", fh.Filename)
	})

	t.Run("other field", func(t *testing.T) {
		form := buildForm(t,
			part{"zeta", "z.png", "image/png", pngHeader},
			part{"dropped", "d.png", "image/png", pngHeader},
		)
		fh, err := FirstFile(form)
		require.NoError(t, err)
		assert.Equal(t, "d.png", fh.Filename)
	})
}

func TestReadCandidate(t *testing.T) {
	t.Run("declared type", func(t *testing.T) {
		form := buildForm(t, part{"file", "photo.png", "image/png", pngHeader})
		file, err := ReadCandidate(form.File["file"][0], DefaultMaxFileSize)
		require.NoError(t, err)
		assert.Equal(t, "photo.png", file.Name)
		assert.Equal(t, "image/png", file.MediaType)
		assert.Equal(t, int64(len(pngHeader)), file.Size)
	})

	t.Run("sniffed type", func(t *testing.T) {
		form := buildForm(t, part{"file", "photo", "application/octet-stream", pngHeader})
		file, err := ReadCandidate(form.File["file"][0], DefaultMaxFileSize)
		require.NoError(t, err)
		assert.Equal(t, "image/png", file.MediaType)
	})

	t.Run("oversized keeps real size", func(t *testing.T) {
		data := make([]byte, 64)
		form := buildForm(t, part{"file", "big.png", "image/png", data})
		file, err := ReadCandidate(form.File["file"][0], 10)
		require.NoError(t, err)
		assert.Equal(t, int64(64), file.Size)
		assert.Len(t, file.Data, 11)
	})
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", MediaType("image/jpeg; charset=binary", nil))
	assert.Equal(t, "image/png", MediaType("", pngHeader))
	assert.Equal(t, "image/gif", MediaType("", []byte("GIF89a....")))
	assert.Equal(t, "image/bmp", MediaType("", []byte("BM\x00\x00\x00\x00")))
	assert.Equal(t, "text/plain", MediaType("", []byte("hello")))
}
