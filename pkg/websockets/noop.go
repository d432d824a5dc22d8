package websockets

import "context"

// NoOpPublisher drops every message. Workers use it when no websocket API
// endpoint is configured.
type NoOpPublisher struct{}

var _ Publisher = NoOpPublisher{}

func (NoOpPublisher) PublishToUser(context.Context, string, Message) error {
	return nil
}
