package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/catalog"
	"github.com/ashwinsk01/overkillcah/internal/game/deck"
	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

// Conn is the transport handle a room holds per player. Send must never
// block: slow or dead connections are the transport's problem, not the
// room's.
type Conn interface {
	Send(msg *protocol.Message)
}

// Phase is the room's position in the round state machine.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDealing  Phase = "dealing"
	PhasePlaying  Phase = "playing"
	PhaseJudging  Phase = "judging"
	PhaseScoring  Phase = "scoring"
	PhaseGameOver Phase = "game_over"
)

// Rules are the per-room game knobs.
type Rules struct {
	HandSize     int
	WinningScore int
	MinPlayers   int
	ScoringDelay time.Duration
}

// Player is one seat in a room. Identity is the generated ID; Name is the
// display attribute the wire protocol speaks. The record outlives its
// connection: a disconnect only flips Connected.
type Player struct {
	ID        string
	Name      string
	Hand      []uint32
	Score     int
	Connected bool

	conn Conn
}

// Round is one judged round's mutable state. It exists from Dealing until
// replaced at the start of the next round; the czar carries forward so
// rotation can continue across rounds and pauses.
type Round struct {
	CzarID     string
	CzarName   string
	PromptCard uint32
	hasPrompt  bool

	// Submissions map player ID to the cards they played; order preserves
	// submission order until the one-time reveal shuffle.
	Submissions map[string][]uint32
	order       []string

	Revealed   []protocol.RevealedEntry
	WinnerName string
}

// Room is an isolated game instance. Every mutation runs under mu: one
// room behaves as one logical actor, different rooms are fully parallel.
type Room struct {
	ID string

	mu         sync.Mutex
	players    map[string]*Player
	joinOrder  []string
	phase      Phase
	round      *Round
	deck       *deck.Deck
	rules      Rules
	results    ResultRecorder
	lastActive time.Time

	scoringTimer *time.Timer
}

// New creates a room with a freshly shuffled deck.
func New(id string, cat *catalog.Catalog, rules Rules, results ResultRecorder) *Room {
	d := deck.New(cat)
	d.Shuffle()
	return &Room{
		ID:         id,
		players:    make(map[string]*Player),
		phase:      PhaseWaiting,
		deck:       d,
		rules:      rules,
		results:    results,
		lastActive: time.Now(),
	}
}

// Join registers a new player and returns their generated ID. A name held
// by a connected player is rejected; a name left behind by a disconnected
// player evicts that stale record — rejoining is a fresh start.
func (r *Room) Join(conn Conn, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	for id, p := range r.players {
		if p.Name != name {
			continue
		}
		if p.Connected {
			return "", apperrors.ErrNameTaken
		}
		r.removePlayerLocked(id)
	}

	player := &Player{
		ID:        uuid.New().String(),
		Name:      name,
		Hand:      []uint32{},
		Connected: true,
		conn:      conn,
	}
	r.players[player.ID] = player
	r.joinOrder = append(r.joinOrder, player.ID)

	conn.Send(protocol.MustNewMessage(protocol.MsgGameState, protocol.GameStatePayload{
		Type:         "joined",
		RoomID:       r.ID,
		Phase:        string(r.phase),
		CurrentRound: r.roundViewFor(player),
		Players:      r.playerInfos(),
	}))

	r.broadcastExcept(player.ID, protocol.MustNewMessage(protocol.MsgPlayerJoined, protocol.PlayerJoinedPayload{
		Player:  player.Name,
		Players: r.playerNames(),
	}))

	r.broadcastGameState()

	logrus.WithFields(logrus.Fields{"room": r.ID, "player": name}).Info("player joined")

	if r.phase == PhaseWaiting && r.connectedCount() == r.rules.MinPlayers {
		logrus.WithField("room", r.ID).Info("auto-starting game")
		r.startDealing()
	}

	return player.ID, nil
}

// Leave removes the player record entirely. Reports whether the room is
// now empty and should be destroyed.
func (r *Room) Leave(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	player, ok := r.players[playerID]
	if !ok {
		return len(r.players) == 0
	}

	r.removePlayerLocked(playerID)
	r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
		Player: player.Name,
	}))

	logrus.WithFields(logrus.Fields{"room": r.ID, "player": player.Name}).Info("player left")

	if len(r.players) == 0 {
		r.cancelScoringTimerLocked()
		return true
	}
	r.checkContinuityLocked()
	r.broadcastGameState()
	return false
}

// Disconnect marks the player offline but keeps the record. Scores and
// hands stay behind; the current design never resumes them.
func (r *Room) Disconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive = time.Now()

	player, ok := r.players[playerID]
	if !ok {
		return
	}
	player.Connected = false
	player.conn = nil

	r.broadcast(protocol.MustNewMessage(protocol.MsgPlayerLeft, protocol.PlayerLeftPayload{
		Player: player.Name,
	}))

	logrus.WithFields(logrus.Fields{"room": r.ID, "player": player.Name}).Info("player disconnected")

	r.checkContinuityLocked()
}

// Close cancels any pending round timer. Called on room destruction so a
// stale timer can never fire into a dead room.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelScoringTimerLocked()
}

// Phase returns the current phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Idle reports whether every record in the room is disconnected and the
// room has seen no activity since the cutoff.
func (r *Room) Idle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectedCount() == 0 && r.lastActive.Before(cutoff)
}

// --- locked helpers ---

func (r *Room) removePlayerLocked(playerID string) {
	player, ok := r.players[playerID]
	if !ok {
		return
	}
	// The record's cards go back to the discard pile so no id is lost.
	r.deck.DiscardResponses(player.Hand)
	if r.round != nil {
		if cards, played := r.round.Submissions[playerID]; played {
			r.deck.DiscardResponses(cards)
			delete(r.round.Submissions, playerID)
			for i, id := range r.round.order {
				if id == playerID {
					r.round.order = append(r.round.order[:i], r.round.order[i+1:]...)
					break
				}
			}
		}
	}
	delete(r.players, playerID)
	for i, id := range r.joinOrder {
		if id == playerID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
}

func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Connected {
			n++
		}
	}
	return n
}

// connectedInOrder lists connected players in join order; czar rotation
// walks this ring.
func (r *Room) connectedInOrder() []*Player {
	players := make([]*Player, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if p, ok := r.players[id]; ok && p.Connected {
			players = append(players, p)
		}
	}
	return players
}

func (r *Room) playerNames() []string {
	names := make([]string, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		names = append(names, r.players[id].Name)
	}
	return names
}

func (r *Room) playerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		p := r.players[id]
		infos = append(infos, protocol.PlayerInfo{
			Name:      p.Name,
			Score:     p.Score,
			HandSize:  len(p.Hand),
			Connected: p.Connected,
		})
	}
	return infos
}

// roundViewFor projects the round for one recipient. The reveal list is
// czar-only while judging; everyone sees it once the round is scored.
func (r *Room) roundViewFor(p *Player) *protocol.RoundView {
	if r.round == nil {
		return nil
	}
	view := &protocol.RoundView{
		CzarName:   r.round.CzarName,
		PromptCard: r.round.PromptCard,
		Winner:     r.round.WinnerName,
		Submitted:  len(r.round.Submissions),
	}
	if r.phase == PhaseJudging && p.ID != r.round.CzarID {
		return view
	}
	view.Revealed = r.round.Revealed
	return view
}

func (r *Room) broadcast(msg *protocol.Message) {
	for _, p := range r.players {
		if p.Connected && p.conn != nil {
			p.conn.Send(msg)
		}
	}
}

func (r *Room) broadcastExcept(excludeID string, msg *protocol.Message) {
	for id, p := range r.players {
		if id != excludeID && p.Connected && p.conn != nil {
			p.conn.Send(msg)
		}
	}
}

// broadcastGameState sends each connected player their own view. Views
// differ: hidden information never leaves the server in the wrong frame.
func (r *Room) broadcastGameState() {
	infos := r.playerInfos()
	for _, p := range r.players {
		if !p.Connected || p.conn == nil {
			continue
		}
		p.conn.Send(protocol.MustNewMessage(protocol.MsgGameState, protocol.GameStatePayload{
			Type:         "gameUpdate",
			Phase:        string(r.phase),
			CurrentRound: r.roundViewFor(p),
			Players:      infos,
		}))
	}
}

func (r *Room) sendHand(p *Player) {
	if !p.Connected || p.conn == nil {
		return
	}
	hand := make([]uint32, len(p.Hand))
	copy(hand, p.Hand)
	p.conn.Send(protocol.MustNewMessage(protocol.MsgHandUpdate, protocol.HandUpdatePayload{Hand: hand}))
}

func (r *Room) cancelScoringTimerLocked() {
	if r.scoringTimer != nil {
		r.scoringTimer.Stop()
		r.scoringTimer = nil
	}
}
