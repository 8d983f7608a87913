package websocket

import "encoding/json"

// Inbound event names.
const (
	EventStartGame    = "start_game"
	EventKeyDown      = "key_down"
	EventKeyUp        = "key_up"
	EventSendAction   = "send_action"
	EventNextEpisode  = "next_episode"
	EventActivateGame = "activate_game"
)

// Outbound event names.
const (
	EventConnectionConfirmed = "connection_confirmed"
	EventGameUpdate          = "game_update"
	EventFrame               = "frame"
	EventEpisodeFinished     = "episode_finished"
	EventError               = "error"
)

// InboundMessage is the envelope for client events. Data is decoded per event.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is the envelope for server events.
type OutboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type startGamePayload struct {
	PlayerName string `json:"playerName"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type actionPayload struct {
	Action string `json:"action"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type connectedPayload struct {
	ConnectionID string `json:"connection_id"`
}
