package protocol

import "encoding/json"

// MessageType identifies a wire message. Values are fixed by the protocol
// and shared with every client implementation.
type MessageType = uint8

// Client → server message types.
const (
	MsgJoinRoom   MessageType = 1
	MsgLeaveRoom  MessageType = 2
	MsgSelectCard MessageType = 3
	MsgStartGame  MessageType = 9
	MsgJudgeCard  MessageType = 10
)

// Server → client message types.
const (
	MsgPlayerJoined MessageType = 4
	MsgPlayerLeft   MessageType = 5
	MsgCardSelected MessageType = 6
	MsgGameState    MessageType = 7
	MsgError        MessageType = 8
	MsgHandUpdate   MessageType = 11
)

// Message is one decoded wire frame.
type Message struct {
	Type    MessageType
	Payload json.RawMessage
}

// --- Client request payloads ---

// JoinRoomPayload asks to join (and lazily create) a room.
type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// LeaveRoomPayload leaves the current room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// SelectCardPayload submits one response card for the current round.
type SelectCardPayload struct {
	CardID uint32 `json:"cardId"`
}

// JudgeCardPayload names the round winner. Czar only.
type JudgeCardPayload struct {
	WinningPlayerName string `json:"winningPlayerName"`
}

// --- Server push payloads ---

// PlayerJoinedPayload notifies a room that a player joined.
type PlayerJoinedPayload struct {
	Player  string   `json:"player"`
	Players []string `json:"players"`
}

// PlayerLeftPayload notifies a room that a player left or dropped.
type PlayerLeftPayload struct {
	Player string `json:"player"`
}

// CardSelectedPayload notifies a room that a player locked in a card.
type CardSelectedPayload struct {
	Player string `json:"player"`
	CardID uint32 `json:"cardId"`
}

// HandUpdatePayload replaces the recipient's hand. Sent to that player only.
type HandUpdatePayload struct {
	Hand []uint32 `json:"hand"`
}

// ErrorPayload is a reply to the offending sender only. Code is additive to
// the protocol's {message} shape; clients that only read message still work.
type ErrorPayload struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// PlayerInfo is the public view of a player inside GAME_STATE.
type PlayerInfo struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	HandSize  int    `json:"handSize"`
	Connected bool   `json:"connected"`
}

// RevealedEntry is one anonymized submission shown to the czar.
type RevealedEntry struct {
	PlayerName string   `json:"playerName"`
	CardIDs    []uint32 `json:"cardIds"`
}

// RoundView is the per-recipient projection of the current round.
// Revealed is nil in every non-czar view while the room is judging.
type RoundView struct {
	CzarName   string          `json:"czarName"`
	PromptCard uint32          `json:"blackCard"`
	Revealed   []RevealedEntry `json:"revealedCards,omitempty"`
	Winner     string          `json:"winner,omitempty"`
	Submitted  int             `json:"submitted"`
}

// GameStatePayload carries both the join snapshot ("joined") and the
// post-transition broadcast ("gameUpdate").
type GameStatePayload struct {
	Type         string       `json:"type"` // "joined" or "gameUpdate"
	RoomID       string       `json:"roomId,omitempty"`
	Phase        string       `json:"phase"`
	CurrentRound *RoundView   `json:"currentRound,omitempty"`
	Players      []PlayerInfo `json:"players"`
}

// --- Error codes ---

const (
	ErrCodeUnknown          = 1000
	ErrCodeMalformedMessage = 1001
	ErrCodeRoomNotFound     = 2001
	ErrCodeNameTaken        = 2002
	ErrCodeNotInRoom        = 2003
	ErrCodePlayerNotFound   = 2004
	ErrCodeWrongPhase       = 3001
	ErrCodeNotYourTurn      = 3002
	ErrCodeCardNotInHand    = 3003
	ErrCodeNotCzar          = 3004
	ErrCodeInvalidWinner    = 3005
	ErrCodeAlreadyPlayed    = 3006
	ErrCodeNotEnoughPlayers = 3007
	ErrCodeDeckExhausted    = 4001
)
