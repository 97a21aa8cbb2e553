package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSTTClient_MultipartUpload(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{"text": "hi"}`)

	client, err := NewSTTClient(testCredential, srv.URL, testOptions()...)
	require.NoError(t, err)

	audio := []byte("RIFF-fake-wav-bytes")
	_, err = client.Transcribe(context.Background(), bytes.NewReader(audio))
	require.NoError(t, err)

	_, _, contentType, body := c.snapshot()
	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, "audio.wav", part.FileName())
	assert.Equal(t, "audio/wav", part.Header.Get("Content-Type"))

	got, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, audio, got)

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSTTClient_FileKeepsBaseName(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{}`)

	client, err := NewSTTClient(testCredential, srv.URL, testOptions()...)
	require.NoError(t, err)

	_, err = client.TranscribeFile(context.Background(), writeTempAudio(t))
	require.NoError(t, err)

	_, _, contentType, body := c.snapshot()
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	part, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Equal(t, "clip.wav", part.FileName())
}

func TestSTTClient_RawUpload(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{"transcript": "raw"}`)

	client, err := NewSTTClient(testCredential, srv.URL,
		testOptions(WithUploadMode(UploadRaw), WithAudioContentType("audio/ogg"))...)
	require.NoError(t, err)

	audio := []byte("OggS-fake")
	result, err := client.Transcribe(context.Background(), bytes.NewReader(audio))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"transcript": "raw"}, result)

	_, _, contentType, body := c.snapshot()
	assert.Equal(t, "audio/ogg", contentType)
	assert.Equal(t, audio, body)
}

func TestSTTClient_MissingFile(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{}`)

	client, err := NewSTTClient(testCredential, srv.URL, testOptions()...)
	require.NoError(t, err)

	_, err = client.TranscribeFile(context.Background(), "/does/not/exist.wav")
	require.Error(t, err)

	calls, _, _, _ := c.snapshot()
	assert.Zero(t, calls)
}

func TestSTTClient_UnknownUploadMode(t *testing.T) {
	_, err := NewSTTClient(testCredential, "http://localhost", WithUploadMode("chunked"))
	assert.Error(t, err)
}

func TestTTSClient_RequestBody(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{"audio_url": "https://cdn/a.wav"}`)

	client, err := NewTTSClient(testCredential, srv.URL, testOptions()...)
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "Good morning")
	require.NoError(t, err)

	_, _, contentType, body := c.snapshot()
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"text": "Good morning"}`, string(body))
}

func TestLLMClient_RequestBody(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{"completion": "ok"}`)

	client, err := NewLLMClient(testCredential, srv.URL, testOptions()...)
	require.NoError(t, err)

	_, err = client.Infer(context.Background(), "What is the weather?")
	require.NoError(t, err)

	_, _, contentType, body := c.snapshot()
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"prompt": "What is the weather?", "max_tokens": 100}`, string(body))
}

func TestLLMClient_CustomMaxTokens(t *testing.T) {
	srv, c := newServer(t, http.StatusOK, `{}`)

	client, err := NewLLMClient(testCredential, srv.URL, testOptions(WithMaxTokens(256))...)
	require.NoError(t, err)

	_, err = client.Infer(context.Background(), "x")
	require.NoError(t, err)

	_, _, _, body := c.snapshot()
	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, float64(256), req["max_tokens"])
}

func TestLLMClient_InvalidMaxTokens(t *testing.T) {
	_, err := NewLLMClient(testCredential, "http://localhost", WithMaxTokens(0))
	assert.Error(t, err)
}

func TestClients_MissingEndpoint(t *testing.T) {
	_, err := NewTTSClient(testCredential, "")
	assert.Error(t, err)
}
