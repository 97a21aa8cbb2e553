package agent

import (
	"encoding/base64"
	"strings"
)

var (
	transcriptKeys = []string{"text", "transcript", "transcription"}
	completionKeys = []string{"text", "completion", "output", "response", "content"}
	audioKeys      = []string{"audio", "audio_content", "audioContent"}
	audioURLKeys   = []string{"audio_url", "audioUrl", "url"}
)

// ExtractText pulls the first non-empty string found under one of keys.
// Results are opaque, so a bare JSON string is accepted as-is and one level
// of {"result": {...}} or {"data": {...}} nesting is looked through.
func ExtractText(v any, keys ...string) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case map[string]any:
		for _, k := range keys {
			if s, ok := t[k].(string); ok && s != "" {
				return s, true
			}
		}
		for _, wrapper := range []string{"result", "data"} {
			if inner, ok := t[wrapper].(map[string]any); ok {
				if s, ok := ExtractText(inner, keys...); ok {
					return s, true
				}
			}
		}
	}
	return "", false
}

// ExtractAudio finds inline base64 audio and/or an audio URL in a synthesis result.
func ExtractAudio(v any) (audio []byte, url string) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ""
	}
	if encoded, ok := ExtractText(m, audioKeys...); ok {
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			audio = decoded
		}
	}
	url, _ = ExtractText(m, audioURLKeys...)
	return audio, url
}

// truncateTokens keeps the first n whitespace-separated tokens of s.
func truncateTokens(s string, n MaxOutputTokens) string {
	if n == Unbounded {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) <= int(n) {
		return s
	}
	return strings.Join(fields[:n], " ")
}
