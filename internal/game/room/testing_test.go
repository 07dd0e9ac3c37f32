package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashwinsk01/overkillcah/internal/catalog"
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// mockConn records every frame a room sends to one player.
type mockConn struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (m *mockConn) Send(msg *protocol.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *mockConn) lastOfType(msgType protocol.MessageType) *protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Type == msgType {
			return m.msgs[i]
		}
	}
	return nil
}

func (m *mockConn) countOfType(msgType protocol.MessageType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.msgs {
		if msg.Type == msgType {
			n++
		}
	}
	return n
}

func (m *mockConn) lastGameState(t *testing.T) *protocol.GameStatePayload {
	t.Helper()
	msg := m.lastOfType(protocol.MsgGameState)
	require.NotNil(t, msg, "no GAME_STATE received")
	payload, err := protocol.ParsePayload[protocol.GameStatePayload](msg)
	require.NoError(t, err)
	return &payload
}

func (m *mockConn) lastHand(t *testing.T) []uint32 {
	t.Helper()
	msg := m.lastOfType(protocol.MsgHandUpdate)
	require.NotNil(t, msg, "no HAND_UPDATE received")
	payload, err := protocol.ParsePayload[protocol.HandUpdatePayload](msg)
	require.NoError(t, err)
	return payload.Hand
}

// testCatalog builds a catalog with sequential prompt ids then response ids.
func testCatalog(t *testing.T, prompts, responses int) *catalog.Catalog {
	t.Helper()
	cards := make([]catalog.Card, 0, prompts+responses)
	for i := 0; i < prompts; i++ {
		cards = append(cards, catalog.Card{ID: uint32(i), Text: fmt.Sprintf("prompt %d", i), Kind: catalog.Prompt})
	}
	for i := 0; i < responses; i++ {
		cards = append(cards, catalog.Card{ID: uint32(prompts + i), Text: fmt.Sprintf("response %d", i), Kind: catalog.Response})
	}
	c, err := catalog.New(cards)
	require.NoError(t, err)
	return c
}

func testRules() Rules {
	return Rules{
		HandSize:     10,
		WinningScore: 10,
		MinPlayers:   3,
		ScoringDelay: 25 * time.Millisecond,
	}
}

// testRoom builds a room with a generously sized catalog.
func testRoom(t *testing.T) (*Room, *catalog.Catalog) {
	t.Helper()
	cat := testCatalog(t, 8, 60)
	return New("r1", cat, testRules(), nil), cat
}

// joinPlayers joins names in order and returns their conns and player ids.
func joinPlayers(t *testing.T, r *Room, names ...string) ([]*mockConn, []string) {
	t.Helper()
	conns := make([]*mockConn, len(names))
	ids := make([]string, len(names))
	for i, name := range names {
		conns[i] = &mockConn{}
		id, err := r.Join(conns[i], name)
		require.NoError(t, err)
		ids[i] = id
	}
	return conns, ids
}

func (r *Room) handOf(playerID string) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	hand := make([]uint32, len(r.players[playerID].Hand))
	copy(hand, r.players[playerID].Hand)
	return hand
}

func (r *Room) scoreOf(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[playerID].Score
}

func (r *Room) czarName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round == nil {
		return ""
	}
	return r.round.CzarName
}

// requireDeckConserved asserts that no card id is ever lost or duplicated:
// pools + discards + hands + submissions + the prompt in play cover the
// catalog exactly, per kind.
func requireDeckConserved(t *testing.T, r *Room, cat *catalog.Catalog) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	inHands := 0
	for _, p := range r.players {
		inHands += len(p.Hand)
	}
	inPlay := 0
	promptsInPlay := 0
	if r.round != nil {
		for _, cards := range r.round.Submissions {
			inPlay += len(cards)
		}
		if r.round.hasPrompt {
			promptsInPlay = 1
		}
	}

	responseTotal := r.deck.Remaining(catalog.Response) + r.deck.Discarded(catalog.Response) + inHands + inPlay
	require.Equal(t, len(cat.OfKind(catalog.Response)), responseTotal, "response cards lost or duplicated")

	promptTotal := r.deck.Remaining(catalog.Prompt) + r.deck.Discarded(catalog.Prompt) + promptsInPlay
	require.Equal(t, len(cat.OfKind(catalog.Prompt)), promptTotal, "prompt cards lost or duplicated")
}

// waitForPhase polls until the room reaches the phase or the deadline
// passes; timer-driven transitions land within the scoring delay.
func waitForPhase(t *testing.T, r *Room, want Phase, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Phase() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, want, r.Phase())
}
