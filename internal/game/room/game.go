package room

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/catalog"
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// Start handles an explicit START_GAME request.
func (r *Room) Start(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	if _, ok := r.players[playerID]; !ok {
		return apperrors.ErrPlayerNotFound
	}
	if r.phase != PhaseWaiting {
		return apperrors.ErrWrongPhase
	}
	if r.connectedCount() < r.rules.MinPlayers {
		return apperrors.ErrNotEnoughPlayers
	}
	r.startDealing()
	return nil
}

// startDealing runs Waiting → Dealing → Playing: full hands, reset scores,
// first (or resumed) round. An interrupted game restarting here starts
// over except for the carried czar position.
func (r *Room) startDealing() {
	r.phase = PhaseDealing
	r.deck.Shuffle()

	for _, id := range r.joinOrder {
		p := r.players[id]
		// Replaced hands go to the discard pile, not into the void.
		r.deck.DiscardResponses(p.Hand)
		p.Hand = r.deck.Draw(catalog.Response, r.rules.HandSize)
		p.Score = 0
		r.sendHand(p)
	}

	if err := r.startNewRoundLocked(); err != nil {
		r.failRoundLocked(err)
		return
	}
	r.broadcastGameState()
}

// startNewRoundLocked retires the previous round, rotates the czar, draws
// the prompt and tops up hands. Returns DeckExhausted when no prompt is
// left; the caller decides how fatal that is.
func (r *Room) startNewRoundLocked() error {
	r.retireRoundCardsLocked()
	r.phase = PhasePlaying

	connected := r.connectedInOrder()
	if len(connected) == 0 {
		return apperrors.ErrNotEnoughPlayers
	}

	czar := connected[0]
	if r.round != nil {
		idx := -1
		for i, p := range connected {
			if p.ID == r.round.CzarID {
				idx = i
				break
			}
		}
		// A vanished czar resolves to the head of the ring, like the
		// original's findIndex(-1)+1.
		czar = connected[(idx+1)%len(connected)]
	}

	prompt, err := r.deck.DrawPrompt()
	if err != nil {
		return err
	}

	r.round = &Round{
		CzarID:      czar.ID,
		CzarName:    czar.Name,
		PromptCard:  prompt,
		hasPrompt:   true,
		Submissions: make(map[string][]uint32),
	}

	for _, id := range r.joinOrder {
		p := r.players[id]
		if missing := r.rules.HandSize - len(p.Hand); missing > 0 {
			p.Hand = append(p.Hand, r.deck.Draw(catalog.Response, missing)...)
		}
		r.sendHand(p)
	}

	logrus.WithFields(logrus.Fields{"room": r.ID, "czar": czar.Name}).Info("round started")
	return nil
}

// retireRoundCardsLocked moves the previous round's prompt and submissions
// to the discard piles so the deck invariant holds across rounds. Discards
// are never recycled.
func (r *Room) retireRoundCardsLocked() {
	if r.round == nil {
		return
	}
	if r.round.hasPrompt {
		r.deck.DiscardPrompt(r.round.PromptCard)
		r.round.hasPrompt = false
	}
	for _, cards := range r.round.Submissions {
		r.deck.DiscardResponses(cards)
	}
	r.round.Submissions = make(map[string][]uint32)
	r.round.order = nil
	r.round.Revealed = nil
}

// failRoundLocked surfaces a fatal deal fault: the room cannot play on, so
// everyone hears about it and the game ends.
func (r *Room) failRoundLocked(err error) {
	logrus.WithFields(logrus.Fields{"room": r.ID, "error": err}).Error("cannot start round")

	var gameErr *apperrors.GameError
	if !errors.As(err, &gameErr) {
		gameErr = &apperrors.GameError{Code: protocol.ErrCodeUnknown, Message: err.Error()}
	}
	r.broadcast(protocol.NewErrorMessage(gameErr.Code, gameErr.Message))
	r.phase = PhaseGameOver
	r.broadcastGameState()
}

// SelectCard submits one response card for the current round.
func (r *Room) SelectCard(playerID string, cardID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	player, ok := r.players[playerID]
	if !ok {
		return apperrors.ErrPlayerNotFound
	}
	if r.phase != PhasePlaying || r.round == nil {
		return apperrors.ErrWrongPhase
	}
	if playerID == r.round.CzarID {
		return apperrors.ErrNotYourTurn
	}
	if _, played := r.round.Submissions[playerID]; played {
		return apperrors.ErrAlreadyPlayed
	}

	idx := -1
	for i, id := range player.Hand {
		if id == cardID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return apperrors.ErrCardNotInHand
	}

	player.Hand = append(player.Hand[:idx], player.Hand[idx+1:]...)
	r.round.Submissions[playerID] = []uint32{cardID}
	r.round.order = append(r.round.order, playerID)
	r.sendHand(player)

	if len(r.round.Submissions) >= r.nonCzarConnectedLocked() {
		r.phase = PhaseJudging
		r.round.Revealed = r.revealSubmissionsLocked()
		logrus.WithFields(logrus.Fields{
			"room":        r.ID,
			"submissions": len(r.round.Submissions),
		}).Info("all cards in, judging")
	}

	r.broadcast(protocol.MustNewMessage(protocol.MsgCardSelected, protocol.CardSelectedPayload{
		Player: player.Name,
		CardID: cardID,
	}))
	r.broadcastGameState()
	return nil
}

func (r *Room) nonCzarConnectedLocked() int {
	n := 0
	for _, p := range r.players {
		if p.Connected && p.ID != r.round.CzarID {
			n++
		}
	}
	return n
}

// revealSubmissionsLocked converts submissions to the czar-facing list and
// shuffles it exactly once, hiding submission order.
func (r *Room) revealSubmissionsLocked() []protocol.RevealedEntry {
	revealed := make([]protocol.RevealedEntry, 0, len(r.round.order))
	for _, id := range r.round.order {
		revealed = append(revealed, protocol.RevealedEntry{
			PlayerName: r.players[id].Name,
			CardIDs:    r.round.Submissions[id],
		})
	}
	rand.Shuffle(len(revealed), func(i, j int) {
		revealed[i], revealed[j] = revealed[j], revealed[i]
	})
	return revealed
}

// Judge records the czar's verdict and advances to Scoring, or straight to
// GameOver at the winning score.
func (r *Room) Judge(playerID, winningPlayerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	if _, ok := r.players[playerID]; !ok {
		return apperrors.ErrPlayerNotFound
	}
	if r.phase != PhaseJudging || r.round == nil {
		return apperrors.ErrWrongPhase
	}
	if playerID != r.round.CzarID {
		return apperrors.ErrNotCzar
	}

	// The winner must be one of this round's submitters.
	var winner *Player
	for id := range r.round.Submissions {
		if p, ok := r.players[id]; ok && p.Name == winningPlayerName {
			winner = p
			break
		}
	}
	if winner == nil {
		return apperrors.ErrInvalidWinner
	}

	winner.Score++
	r.round.WinnerName = winner.Name
	r.phase = PhaseScoring

	logrus.WithFields(logrus.Fields{
		"room":   r.ID,
		"winner": winner.Name,
		"score":  winner.Score,
	}).Info("round judged")

	if r.results != nil {
		winnerName := winner.Name
		go r.results.RecordRoundWin(context.Background(), winnerName)
	}

	if winner.Score >= r.rules.WinningScore {
		r.phase = PhaseGameOver
		logrus.WithFields(logrus.Fields{"room": r.ID, "winner": winner.Name}).Info("game over")
		if r.results != nil {
			winnerName := winner.Name
			names := r.playerNames()
			go r.results.RecordGameResult(context.Background(), winnerName, names)
		}
		r.broadcastGameState()
		return nil
	}

	r.broadcastGameState()
	r.scheduleNextRoundLocked()
	return nil
}

// scheduleNextRoundLocked arms the Scoring → Playing timer. The callback
// re-validates the phase: a room that was paused, emptied or restarted in
// the meantime turns the stale timer into a no-op.
func (r *Room) scheduleNextRoundLocked() {
	r.cancelScoringTimerLocked()
	r.scoringTimer = time.AfterFunc(r.rules.ScoringDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.phase != PhaseScoring {
			return
		}
		if err := r.startNewRoundLocked(); err != nil {
			r.failRoundLocked(err)
			return
		}
		r.broadcastGameState()
	})
}

// checkContinuityLocked pauses the game when the room drops below the
// player minimum. The interrupted round's cards are discarded, not
// resumed; only the czar position survives for the next rotation.
func (r *Room) checkContinuityLocked() {
	if r.phase == PhaseWaiting || r.phase == PhaseGameOver {
		return
	}
	if r.connectedCount() >= r.rules.MinPlayers {
		return
	}

	r.cancelScoringTimerLocked()
	r.retireRoundCardsLocked()
	r.phase = PhaseWaiting

	logrus.WithField("room", r.ID).Info("not enough players, game paused")
	r.broadcastGameState()
}
