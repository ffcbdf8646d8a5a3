package types

// WSMessage is a client message on the /events stream
type WSMessage struct {
	Type string `json:"type"`

	// Kinds limits a "subscribe" to the named entity kinds; empty means all
	Kinds []string `json:"kinds,omitempty"`
}

// Client message types
const (
	WSPing      = "ping"
	WSSubscribe = "subscribe"
)

// Server message types besides the exposure events "added" and "removed"
const (
	WSHello      = "hello"
	WSPong       = "pong"
	WSSubscribed = "subscribed"
	WSError      = "error"
)
