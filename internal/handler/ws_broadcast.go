package handler

// BroadcastMatchEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastMatchEvent(matchID string, eventType string, data any) {
	h.BroadcastToMatch(matchID, WSEvent{
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
	})
}

// BroadcastUserEvent implements the user-targeted half of service.Broadcaster.
func (h *Hub) BroadcastUserEvent(userID string, matchID string, eventType string, data any) {
	h.BroadcastToUser(userID, WSEvent{
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
	})
}
