package service

// Broadcaster sends real-time events to connected clients.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastMatchEvent(matchID string, eventType string, data any)
	// BroadcastUserEvent targets one user's connections, for traffic the
	// rest of the match must not see, like a resync push.
	BroadcastUserEvent(userID string, matchID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastMatchEvent(string, string, any)        {}
func (NoopBroadcaster) BroadcastUserEvent(string, string, string, any) {}
