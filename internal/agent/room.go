package agent

import "context"

// Turn is one committed unit of user input. Exactly one of Audio or Text is set.
type Turn struct {
	ID          string
	Participant string
	Audio       []byte // already-encoded clip, e.g. WAV
	Text        string
}

// IsAudio reports whether the turn carries audio that needs transcribing.
func (t Turn) IsAudio() bool {
	return len(t.Audio) > 0
}

// EventType names what an Event carries.
type EventType string

const (
	EventSession    EventType = "session"
	EventTranscript EventType = "transcript"
	EventResponse   EventType = "response"
	EventAudio      EventType = "audio"
	EventError      EventType = "error"
)

// Event is published by the agent back into the room.
type Event struct {
	Type        EventType `json:"type"`
	TurnID      string    `json:"turn_id,omitempty"`
	Participant string    `json:"participant,omitempty"`
	Text        string    `json:"text,omitempty"`
	Audio       []byte    `json:"audio,omitempty"` // base64 in JSON
	AudioURL    string    `json:"audio_url,omitempty"`
	Result      any       `json:"result,omitempty"` // raw capability result
	Session     *Options  `json:"session,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Room is the transport a session runs in. The room owns connection
// lifecycle and audio transport; the agent only reads turns and publishes events.
// Publish may be called from several goroutines at once.
type Room interface {
	Name() string
	Turns() <-chan Turn
	Publish(ctx context.Context, ev Event) error
}
