package apperrors

import (
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// GameError is a protocol-misuse or resource fault reported back to the
// offending connection only. It never mutates shared room state.
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

var (
	ErrRoomNotFound     = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "Room not found"}
	ErrPlayerNotFound   = &GameError{Code: protocol.ErrCodePlayerNotFound, Message: "Player not found"}
	ErrNameTaken        = &GameError{Code: protocol.ErrCodeNameTaken, Message: "Player name already taken in this room"}
	ErrNotInRoom        = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "You are not in a room"}
	ErrWrongPhase       = &GameError{Code: protocol.ErrCodeWrongPhase, Message: "Action not allowed in the current phase"}
	ErrNotYourTurn      = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "Card czar doesn't play white cards"}
	ErrCardNotInHand    = &GameError{Code: protocol.ErrCodeCardNotInHand, Message: "Card not in hand"}
	ErrNotCzar          = &GameError{Code: protocol.ErrCodeNotCzar, Message: "Only the card czar can judge"}
	ErrInvalidWinner    = &GameError{Code: protocol.ErrCodeInvalidWinner, Message: "Invalid winner"}
	ErrAlreadyPlayed    = &GameError{Code: protocol.ErrCodeAlreadyPlayed, Message: "You already played a card this round"}
	ErrNotEnoughPlayers = &GameError{Code: protocol.ErrCodeNotEnoughPlayers, Message: "Need at least 3 players to start"}
	ErrDeckExhausted    = &GameError{Code: protocol.ErrCodeDeckExhausted, Message: "Prompt deck exhausted"}
)
