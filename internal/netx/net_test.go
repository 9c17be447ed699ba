package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartFile(t *testing.T) {
	audio := []byte("webm-bytes")

	t.Run("server can read the part", func(t *testing.T) {
		var gotName, gotCT string
		var gotBody []byte

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f, fh, err := r.FormFile("audio")
			require.NoError(t, err)
			defer f.Close()
			gotName = fh.Filename
			gotCT = fh.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(f)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		body, ct, err := MultipartFile("audio", "recording.webm", "audio/webm", audio)
		require.NoError(t, err)

		resp, err := http.Post(ts.URL, ct, body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, "recording.webm", gotName)
		assert.Equal(t, "audio/webm", gotCT)
		assert.Equal(t, audio, gotBody)
	})

	t.Run("empty content type defaults to octet-stream", func(t *testing.T) {
		body, ct, err := MultipartFile("audio", "a.bin", "", []byte{1})
		require.NoError(t, err)

		_, params, err := mime.ParseMediaType(ct)
		require.NoError(t, err)
		mr := multipart.NewReader(body, params["boundary"])
		p, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", p.Header.Get("Content-Type"))
		assert.Equal(t, "audio", p.FormName())
	})
}

func TestIsTransportError(t *testing.T) {
	t.Run("closed server", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		_, err := http.Get(ts.URL)
		require.Error(t, err)
		assert.True(t, IsTransportError(err))
	})

	t.Run("deadline", func(t *testing.T) {
		assert.True(t, IsTransportError(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsTransportError(errors.New("decode failed")))
		assert.False(t, IsTransportError(nil))
	})
}
