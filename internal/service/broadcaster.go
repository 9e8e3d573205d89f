package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToOperators(msgType string, payload interface{})
	BroadcastToParticipant(participantID, msgType string, payload interface{})
}

// Message types pushed over the websocket hub
const (
	MsgDayUnlocked       = "day_unlocked"
	MsgSupportEscalation = "support_escalation"
	MsgProgramUpdated    = "program_updated"
)

// NotificationPayload is the body of a pushed program notification
type NotificationPayload struct {
	ParticipantID string      `json:"participantId"`
	Notification  interface{} `json:"notification"`
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToOperators(string, interface{})           {}
func (noopBroadcaster) BroadcastToParticipant(string, string, interface{}) {}
