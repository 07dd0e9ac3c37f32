package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// startedRoom joins three players so the game auto-starts with ann as czar.
func startedRoom(t *testing.T) (*Room, []*mockConn, []string) {
	t.Helper()
	r, _ := testRoom(t)
	conns, ids := joinPlayers(t, r, "ann", "bob", "cho")
	require.Equal(t, PhasePlaying, r.Phase())
	require.Equal(t, "ann", r.czarName())
	return r, conns, ids
}

func TestSelectCardRemovesFromHand(t *testing.T) {
	r, conns, ids := startedRoom(t)

	card := r.handOf(ids[1])[0]
	require.NoError(t, r.SelectCard(ids[1], card))

	hand := r.handOf(ids[1])
	assert.Len(t, hand, 9)
	assert.NotContains(t, hand, card)
	assert.Equal(t, hand, conns[1].lastHand(t))

	// One player still out: no judging yet.
	assert.Equal(t, PhasePlaying, r.Phase())

	msg := conns[2].lastOfType(protocol.MsgCardSelected)
	require.NotNil(t, msg)
	payload, err := protocol.ParsePayload[protocol.CardSelectedPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, "bob", payload.Player)
	assert.Equal(t, card, payload.CardID)
}

func TestAllSubmissionsOpenJudging(t *testing.T) {
	r, conns, ids := startedRoom(t)

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	require.NoError(t, r.SelectCard(ids[2], r.handOf(ids[2])[0]))

	assert.Equal(t, PhaseJudging, r.Phase())

	// The czar sees the shuffled reveal list; submitters do not.
	czarView := conns[0].lastGameState(t)
	require.NotNil(t, czarView.CurrentRound)
	assert.Len(t, czarView.CurrentRound.Revealed, 2)

	bobView := conns[1].lastGameState(t)
	require.NotNil(t, bobView.CurrentRound)
	assert.Nil(t, bobView.CurrentRound.Revealed)
	assert.Equal(t, 2, bobView.CurrentRound.Submitted)
}

func TestCzarCannotSubmit(t *testing.T) {
	r, _, ids := startedRoom(t)

	err := r.SelectCard(ids[0], r.handOf(ids[0])[0])
	assert.ErrorIs(t, err, apperrors.ErrNotYourTurn)
}

func TestSubmitCardNotInHand(t *testing.T) {
	r, _, ids := startedRoom(t)

	err := r.SelectCard(ids[1], 9999)
	assert.ErrorIs(t, err, apperrors.ErrCardNotInHand)
	assert.Len(t, r.handOf(ids[1]), 10)
}

func TestSecondSubmissionRejected(t *testing.T) {
	r, _, ids := startedRoom(t)

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	err := r.SelectCard(ids[1], r.handOf(ids[1])[0])
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPlayed)
	assert.Len(t, r.handOf(ids[1]), 9)
}

func TestJudgeGuards(t *testing.T) {
	r, _, ids := startedRoom(t)

	// Judging before all cards are in is the wrong phase.
	assert.ErrorIs(t, r.Judge(ids[0], "bob"), apperrors.ErrWrongPhase)

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	require.NoError(t, r.SelectCard(ids[2], r.handOf(ids[2])[0]))
	require.Equal(t, PhaseJudging, r.Phase())

	assert.ErrorIs(t, r.Judge(ids[1], "cho"), apperrors.ErrNotCzar)
	assert.ErrorIs(t, r.Judge(ids[0], "ann"), apperrors.ErrInvalidWinner, "the czar never submits")
	assert.ErrorIs(t, r.Judge(ids[0], "nobody"), apperrors.ErrInvalidWinner)
	assert.ErrorIs(t, r.Judge("no-such-player", "bob"), apperrors.ErrPlayerNotFound)
}

func TestJudgeAwardsPointAndSchedulesNextRound(t *testing.T) {
	r, conns, ids := startedRoom(t)

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	require.NoError(t, r.SelectCard(ids[2], r.handOf(ids[2])[0]))
	require.NoError(t, r.Judge(ids[0], "bob"))

	assert.Equal(t, PhaseScoring, r.Phase())
	assert.Equal(t, 1, r.scoreOf(ids[1]))

	// Once scored, everyone sees the reveal and the winner.
	state := conns[2].lastGameState(t)
	require.NotNil(t, state.CurrentRound)
	assert.Equal(t, "bob", state.CurrentRound.Winner)
	assert.Len(t, state.CurrentRound.Revealed, 2)

	waitForPhase(t, r, PhasePlaying, 500*time.Millisecond)

	// Czar rotation follows join order; hands are topped back up.
	assert.Equal(t, "bob", r.czarName())
	for _, id := range ids {
		assert.Len(t, r.handOf(id), 10)
	}
	assert.Equal(t, 1, r.scoreOf(ids[1]), "scores persist across rounds")
	requireDeckConserved(t, r, testCatalog(t, 8, 60))
}

func TestWinningScoreEndsGame(t *testing.T) {
	cat := testCatalog(t, 8, 60)
	rules := testRules()
	rules.WinningScore = 1
	r := New("r1", cat, rules, nil)
	conns, ids := joinPlayers(t, r, "ann", "bob", "cho")

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	require.NoError(t, r.SelectCard(ids[2], r.handOf(ids[2])[0]))
	require.NoError(t, r.Judge(ids[0], "cho"))

	assert.Equal(t, PhaseGameOver, r.Phase())

	state := conns[1].lastGameState(t)
	assert.Equal(t, string(PhaseGameOver), state.Phase)
	assert.Equal(t, "cho", state.CurrentRound.Winner)

	// No next round is pending after game over.
	time.Sleep(3 * rules.ScoringDelay)
	assert.Equal(t, PhaseGameOver, r.Phase())
	requireDeckConserved(t, r, cat)
}

func TestCzarRotationSkipsDisconnected(t *testing.T) {
	r, _ := testRoom(t)
	_, ids := joinPlayers(t, r, "ann", "bob")

	// Bob drops while the room is still waiting; his record stays seated
	// between ann and the newcomers.
	r.Disconnect(ids[1])
	require.Equal(t, PhaseWaiting, r.Phase())

	_, chos := joinPlayers(t, r, "cho")
	require.Equal(t, PhaseWaiting, r.Phase())
	_, dees := joinPlayers(t, r, "dee")
	require.Equal(t, PhasePlaying, r.Phase())
	require.Equal(t, "ann", r.czarName())

	require.NoError(t, r.SelectCard(chos[0], r.handOf(chos[0])[0]))
	require.NoError(t, r.SelectCard(dees[0], r.handOf(dees[0])[0]))
	require.Equal(t, PhaseJudging, r.Phase())
	require.NoError(t, r.Judge(ids[0], "cho"))

	waitForPhase(t, r, PhasePlaying, 500*time.Millisecond)
	assert.Equal(t, "cho", r.czarName(), "rotation walks connected players only")
}

func TestPromptExhaustionEndsGame(t *testing.T) {
	// No prompt cards at all: the auto-started game cannot deal a round.
	cat := testCatalog(t, 0, 60)
	r := New("r1", cat, testRules(), nil)
	conns, _ := joinPlayers(t, r, "ann", "bob", "cho")

	assert.Equal(t, PhaseGameOver, r.Phase())

	for _, conn := range conns {
		msg := conn.lastOfType(protocol.MsgError)
		require.NotNil(t, msg)
		payload, err := protocol.ParsePayload[protocol.ErrorPayload](msg)
		require.NoError(t, err)
		assert.Equal(t, protocol.ErrCodeDeckExhausted, payload.Code)
	}
}

func TestStaleScoringTimerIsNoop(t *testing.T) {
	r, _, ids := startedRoom(t)

	require.NoError(t, r.SelectCard(ids[1], r.handOf(ids[1])[0]))
	require.NoError(t, r.SelectCard(ids[2], r.handOf(ids[2])[0]))
	require.NoError(t, r.Judge(ids[0], "bob"))
	require.Equal(t, PhaseScoring, r.Phase())

	// Pause before the timer fires; the pending transition must not revive
	// the game.
	r.Disconnect(ids[2])
	require.Equal(t, PhaseWaiting, r.Phase())

	time.Sleep(3 * testRules().ScoringDelay)
	assert.Equal(t, PhaseWaiting, r.Phase())
}
