package telegram

import "time"

// IncomingMessage represents one inbound transport event.
type IncomingMessage struct {
	Timestamp time.Time
	Username  string
	Text      string
	Identity  int64
}
