package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-agent/internal/resilience"
)

const tokenValidity = 24 * time.Hour

// Client mints agent tokens and joins LiveKit rooms.
type Client struct {
	url       string
	apiKey    string
	apiSecret string
	identity  string

	reconnect *resilience.ReconnectConfig
	logger    zerolog.Logger
}

// NewClient creates a new LiveKit client. A nil reconnect config falls back
// to the resilience defaults.
func NewClient(url, apiKey, apiSecret, identity string, reconnect *resilience.ReconnectConfig, logger zerolog.Logger) *Client {
	if reconnect == nil {
		reconnect = resilience.DefaultReconnectConfig()
	}
	return &Client{
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		identity:  identity,
		reconnect: reconnect,
		logger:    logger.With().Str("component", "livekit").Logger(),
	}
}

// GenerateToken creates a JWT that lets the agent join roomName and publish data.
func (c *Client) GenerateToken(roomName string) (string, error) {
	canPublishData := true
	canUpdateMetadata := true

	at := auth.NewAccessToken(c.apiKey, c.apiSecret)
	at.SetVideoGrant(&auth.VideoGrant{
		RoomJoin:             true,
		Room:                 roomName,
		CanPublishData:       &canPublishData,
		CanUpdateOwnMetadata: &canUpdateMetadata,
	}).
		SetIdentity(c.identity).
		SetValidFor(tokenValidity)

	return at.ToJWT()
}

// Join connects to roomName as the agent, retrying with backoff, and returns
// a Room that delivers turns through a channel of turnBuffer slots.
func (c *Client) Join(ctx context.Context, roomName string, turnBuffer int) (*Room, error) {
	room := newRoom(roomName, turnBuffer, c.logger)

	err := resilience.Reconnect(ctx, func(ctx context.Context) error {
		token, err := c.GenerateToken(roomName)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		lkRoom, err := lksdk.ConnectToRoomWithToken(c.url, token, room.callback())
		if err != nil {
			return fmt.Errorf("failed to join room %s: %w", roomName, err)
		}
		room.attach(lkRoom)
		return nil
	}, c.reconnect, c.logger)
	if err != nil {
		room.Close()
		return nil, err
	}

	c.logger.Info().Str("room", roomName).Str("identity", c.identity).Msg("Agent joined room")
	return room, nil
}
