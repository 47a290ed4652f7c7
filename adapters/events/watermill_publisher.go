package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/flashorca/gateway/ports"
)

const (
	// LoginTopic carries successful sign-in events.
	LoginTopic = "gateway.auth.login"
	// LogoutTopic carries session termination events.
	LogoutTopic = "gateway.auth.logout"
)

// AuthEvent is published whenever a session gains or loses an identity.
type AuthEvent struct {
	Address   string `json:"address"`
	SessionID string `json:"session_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, address, sessionID string) error {
	return p.publish(LoginTopic, address, sessionID)
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address, sessionID string) error {
	return p.publish(LogoutTopic, address, sessionID)
}

func (p *WatermillPublisher) publish(topic, address, sessionID string) error {
	payload, err := json.Marshal(AuthEvent{Address: address, SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.publisher.Publish(topic, message.NewMessage(sessionID, payload)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
