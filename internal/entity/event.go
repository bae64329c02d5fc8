package entity

import "github.com/goccy/go-json"

// PushMessage is the envelope delivered to local subscribers.
type PushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ConnectionStatusPayload struct {
	Connected bool `json:"connected"`
}
