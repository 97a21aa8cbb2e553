package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
)

// STTClient calls the speech-to-text endpoint.
type STTClient struct {
	*transport
	contentType string
	uploadMode  string
}

// NewSTTClient creates a transcription client for endpoint.
func NewSTTClient(cred Credential, endpoint string, opts ...Option) (*STTClient, error) {
	s := newSettings(opts)
	if s.uploadMode != UploadMultipart && s.uploadMode != UploadRaw {
		return nil, fmt.Errorf("unknown upload mode %q", s.uploadMode)
	}
	t, err := newTransport("STT", cred, endpoint, s)
	if err != nil {
		return nil, err
	}
	return &STTClient{
		transport:   t,
		contentType: s.audioContentType,
		uploadMode:  s.uploadMode,
	}, nil
}

// Transcribe reads audio fully and posts it. The payload is assumed to be in
// the configured format already; nothing is validated or transcoded.
// In multipart mode the request is multipart/form-data and the audio type is
// declared on the "file" part's Content-Type. In raw mode the audio type is
// the request's own Content-Type.
func (c *STTClient) Transcribe(ctx context.Context, audio io.Reader) (any, error) {
	payload, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return c.transcribe(ctx, "audio"+extensionFor(c.contentType), payload)
}

// TranscribeFile reads the file at path and posts it. The file is closed
// before any network I/O starts.
func (c *STTClient) TranscribeFile(ctx context.Context, path string) (any, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return c.transcribe(ctx, filepath.Base(path), payload)
}

func (c *STTClient) transcribe(ctx context.Context, filename string, payload []byte) (any, error) {
	if c.uploadMode == UploadRaw {
		return c.post(ctx, c.contentType, payload)
	}

	body, contentType, err := multipartFile(filename, c.contentType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audio upload: %w", err)
	}
	return c.post(ctx, contentType, body)
}

// multipartFile builds a form with a single "file" field.
func multipartFile(filename, contentType string, payload []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "audio/webm":
		return ".webm"
	}
	return ""
}
