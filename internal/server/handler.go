package server

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/game/room"
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// Handler translates decoded wire messages into room operations and maps
// operation errors back into ERROR frames for the sender only.
type Handler struct {
	manager *room.Manager
}

// NewHandler creates the message dispatcher.
func NewHandler(m *room.Manager) *Handler {
	return &Handler{manager: m}
}

// Handle routes one inbound message.
func (h *Handler) Handle(client *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgJoinRoom:
		h.handleJoinRoom(client, msg)
	case protocol.MsgLeaveRoom:
		h.handleLeaveRoom(client)
	case protocol.MsgStartGame:
		h.handleStartGame(client)
	case protocol.MsgSelectCard:
		h.handleSelectCard(client, msg)
	case protocol.MsgJudgeCard:
		h.handleJudgeCard(client, msg)
	default:
		logrus.WithFields(logrus.Fields{"conn": client.ID, "type": msg.Type}).
			Warn("unknown message type")
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMalformedMessage, "Unknown message type"))
	}
}

func (h *Handler) handleJoinRoom(client *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil || payload.RoomID == "" || payload.PlayerName == "" {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMalformedMessage, "Invalid join request"))
		return
	}

	// A connection holds at most one seat; joining elsewhere gives up the
	// current one.
	if client.RoomID != "" {
		_ = h.manager.Leave(client.RoomID, client.PlayerID)
		client.RoomID, client.PlayerID = "", ""
	}

	r, playerID, err := h.manager.Join(client, payload.RoomID, payload.PlayerName)
	if err != nil {
		h.replyError(client, err)
		return
	}
	client.RoomID = r.ID
	client.PlayerID = playerID
}

func (h *Handler) handleLeaveRoom(client *Client) {
	if client.RoomID == "" {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeNotInRoom, apperrors.ErrNotInRoom.Message))
		return
	}
	if err := h.manager.Leave(client.RoomID, client.PlayerID); err != nil {
		h.replyError(client, err)
		return
	}
	client.RoomID, client.PlayerID = "", ""
}

func (h *Handler) handleStartGame(client *Client) {
	r := h.roomOf(client)
	if r == nil {
		return
	}
	if err := r.Start(client.PlayerID); err != nil {
		h.replyError(client, err)
	}
}

func (h *Handler) handleSelectCard(client *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.SelectCardPayload](msg)
	if err != nil {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMalformedMessage, "Invalid card selection"))
		return
	}

	r := h.roomOf(client)
	if r == nil {
		return
	}
	if err := r.SelectCard(client.PlayerID, payload.CardID); err != nil {
		h.replyError(client, err)
	}
}

func (h *Handler) handleJudgeCard(client *Client, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.JudgeCardPayload](msg)
	if err != nil || payload.WinningPlayerName == "" {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMalformedMessage, "Invalid judge request"))
		return
	}

	r := h.roomOf(client)
	if r == nil {
		return
	}
	if err := r.Judge(client.PlayerID, payload.WinningPlayerName); err != nil {
		h.replyError(client, err)
	}
}

// roomOf resolves the client's room, replying with an error when the
// client is not seated or the room is gone.
func (h *Handler) roomOf(client *Client) *room.Room {
	if client.RoomID == "" {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeNotInRoom, apperrors.ErrNotInRoom.Message))
		return nil
	}
	r := h.manager.Get(client.RoomID)
	if r == nil {
		client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeRoomNotFound, apperrors.ErrRoomNotFound.Message))
		return nil
	}
	return r
}

func (h *Handler) replyError(client *Client, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(protocol.NewErrorMessage(gameErr.Code, gameErr.Message))
		return
	}
	client.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeUnknown, err.Error()))
}
