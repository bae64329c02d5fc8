package util

import (
	"github.com/goccy/go-json"

	"github.com/krobus00/clob-gateway/internal/constant"
	"github.com/krobus00/clob-gateway/internal/entity"
)

func NewConnectionStatusMessage(connected bool) entity.PushMessage {
	payload, _ := json.Marshal(entity.ConnectionStatusPayload{Connected: connected})

	return entity.PushMessage{
		Event: constant.PushEventConnectionStatus,
		Data:  payload,
	}
}

func NewUserUpdateMessage(payload json.RawMessage) entity.PushMessage {
	return entity.PushMessage{
		Event: constant.PushEventUserUpdate,
		Data:  payload,
	}
}

func EncodePushMessage(msg entity.PushMessage) ([]byte, error) {
	return json.Marshal(msg)
}
