package livekit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-agent/internal/agent"
	"github.com/lexiqai/voice-agent/internal/observability"
)

// Data packet topics.
const (
	TopicChat  = "chat"
	TopicAudio = "audio"
)

var (
	// ErrRoomClosed is returned by Publish after the room is closed.
	ErrRoomClosed = errors.New("room is closed")
	// ErrNotConnected is returned by Publish before the room is attached.
	ErrNotConnected = errors.New("room is not connected")

	errIgnoredPacket = errors.New("packet is not a turn")
)

// packet is the JSON body of an inbound data packet. Agent events carry a
// turn_id and are never turns.
type packet struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Audio  string `json:"audio,omitempty"` // base64 encoded clip
	TurnID string `json:"turn_id,omitempty"`
}

// Room adapts a LiveKit room to agent.Room. Participants commit turns as
// data packets; outbound events go back as reliable data packets.
type Room struct {
	name   string
	logger zerolog.Logger
	turns  chan agent.Turn

	mu     sync.Mutex
	lk     *lksdk.Room
	send   func(payload []byte, topic string) error
	closed bool
}

func newRoom(name string, turnBuffer int, logger zerolog.Logger) *Room {
	if turnBuffer < 1 {
		turnBuffer = 1
	}
	return &Room{
		name:   name,
		logger: logger.With().Str("room", name).Logger(),
		turns:  make(chan agent.Turn, turnBuffer),
	}
}

func (r *Room) Name() string { return r.name }

func (r *Room) Turns() <-chan agent.Turn { return r.turns }

// Publish sends ev to every participant, on the audio topic for audio
// events and the chat topic otherwise.
func (r *Room) Publish(ctx context.Context, ev agent.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
	}
	topic := TopicChat
	if ev.Type == agent.EventAudio {
		topic = TopicAudio
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	if r.send == nil {
		return ErrNotConnected
	}
	if err := r.send(payload, topic); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Ready reports whether the room is joined and open.
func (r *Room) Ready(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.closed:
		return false, fmt.Errorf("%s: %w", r.name, ErrRoomClosed)
	case r.lk == nil:
		return false, fmt.Errorf("%s: %w", r.name, ErrNotConnected)
	}
	return true, nil
}

// Close disconnects from LiveKit and closes the turn channel. It is safe to
// call more than once.
func (r *Room) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.turns)
	lk := r.lk
	r.mu.Unlock()

	if lk != nil {
		lk.Disconnect()
	}
	r.logger.Info().Msg("Left room")
}

func (r *Room) attach(lk *lksdk.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lk = lk
	r.send = func(payload []byte, topic string) error {
		return lk.LocalParticipant.PublishDataPacket(
			lksdk.UserData(payload),
			lksdk.WithDataPublishReliable(true),
			lksdk.WithDataPublishTopic(topic),
		)
	}
}

func (r *Room) callback() *lksdk.RoomCallback {
	return &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnDataPacket:      r.onDataPacket,
			OnTrackSubscribed: r.onTrackSubscribed,
		},
		OnParticipantConnected: func(rp *lksdk.RemoteParticipant) {
			r.logger.Info().Str("participant", rp.Identity()).Msg("Participant connected")
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			r.logger.Info().Str("participant", rp.Identity()).Msg("Participant disconnected")
		},
		OnDisconnected: func() {
			r.logger.Warn().Msg("Disconnected from room")
			r.Close()
		},
	}
}

func (r *Room) onDataPacket(data lksdk.DataPacket, params lksdk.DataReceiveParams) {
	userData, ok := data.(*lksdk.UserDataPacket)
	if !ok {
		return
	}

	turn, err := decodePacket(userData.Topic, userData.Payload, params.SenderIdentity)
	if errors.Is(err, errIgnoredPacket) {
		return
	}
	if err != nil {
		observability.RecordError("malformed_packet", "livekit")
		r.logger.Warn().Err(err).
			Str("participant", params.SenderIdentity).
			Str("topic", userData.Topic).
			Msg("Dropping malformed data packet")
		return
	}
	r.deliver(turn)
}

// deliver queues turn without blocking the LiveKit callback goroutine.
func (r *Room) deliver(turn agent.Turn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	select {
	case r.turns <- turn:
		return true
	default:
		observability.RecordError("turn_dropped", "livekit")
		r.logger.Warn().
			Str("turn_id", turn.ID).
			Str("participant", turn.Participant).
			Msg("Turn queue full, dropping turn")
		return false
	}
}

// Audio tracks are logged only; participants commit clips over the data channel.
func (r *Room) onTrackSubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	r.logger.Info().
		Str("participant", rp.Identity()).
		Str("track", track.ID()).
		Str("kind", track.Kind().String()).
		Str("codec", track.Codec().MimeType).
		Msg("Track subscribed")
}

// decodePacket turns a participant data packet into a committed turn. The
// packet's type wins over its topic; an untyped packet takes its kind from
// the topic.
func decodePacket(topic string, payload []byte, participant string) (agent.Turn, error) {
	if topic != "" && topic != TopicChat && topic != TopicAudio {
		return agent.Turn{}, errIgnoredPacket
	}

	var msg packet
	if err := json.Unmarshal(payload, &msg); err != nil {
		return agent.Turn{}, fmt.Errorf("invalid packet: %w", err)
	}
	if msg.TurnID != "" {
		return agent.Turn{}, errIgnoredPacket
	}

	kind := strings.ToLower(msg.Type)
	if kind == "" {
		switch topic {
		case TopicChat:
			kind = "text"
		case TopicAudio:
			kind = "audio"
		}
	}

	turn := agent.Turn{ID: uuid.NewString(), Participant: participant}
	switch kind {
	case "text":
		if strings.TrimSpace(msg.Text) == "" {
			return agent.Turn{}, errors.New("text packet has no text")
		}
		turn.Text = msg.Text
	case "audio":
		if msg.Audio == "" {
			return agent.Turn{}, errors.New("audio packet has no audio")
		}
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			return agent.Turn{}, fmt.Errorf("invalid audio encoding: %w", err)
		}
		turn.Audio = audio
	case string(agent.EventSession), string(agent.EventTranscript), string(agent.EventResponse), string(agent.EventError):
		return agent.Turn{}, errIgnoredPacket
	default:
		return agent.Turn{}, fmt.Errorf("unknown packet type %q", msg.Type)
	}
	return turn, nil
}
