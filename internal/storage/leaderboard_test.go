package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLeaderboard(t *testing.T) *Leaderboard {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLeaderboard(client)
}

func TestRecordRoundWin(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	lb.RecordRoundWin(ctx, "ann")
	lb.RecordRoundWin(ctx, "ann")

	stats, err := lb.Stats(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, "ann", stats.PlayerName)
	assert.Equal(t, 2, stats.RoundWins)
	assert.Equal(t, 0, stats.GameWins)
	assert.NotZero(t, stats.LastPlayedAt)
}

func TestRecordGameResult(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	lb.RecordGameResult(ctx, "bob", []string{"ann", "bob", "cho"})
	lb.RecordGameResult(ctx, "bob", []string{"ann", "bob"})
	lb.RecordGameResult(ctx, "ann", []string{"ann", "bob"})

	bob, err := lb.Stats(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, 3, bob.Games)
	assert.Equal(t, 2, bob.GameWins)

	cho, err := lb.Stats(ctx, "cho")
	require.NoError(t, err)
	require.NotNil(t, cho)
	assert.Equal(t, 1, cho.Games)
	assert.Equal(t, 0, cho.GameWins)
}

func TestTopRanksByGameWins(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	players := []string{"ann", "bob", "cho"}
	lb.RecordGameResult(ctx, "cho", players)
	lb.RecordGameResult(ctx, "cho", players)
	lb.RecordGameResult(ctx, "ann", players)

	top, err := lb.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2, "players without a game win are unranked")
	assert.Equal(t, Entry{Rank: 1, PlayerName: "cho", GameWins: 2}, top[0])
	assert.Equal(t, Entry{Rank: 2, PlayerName: "ann", GameWins: 1}, top[1])
}

func TestTopLimit(t *testing.T) {
	lb := newTestLeaderboard(t)
	ctx := context.Background()

	for _, name := range []string{"ann", "bob", "cho"} {
		lb.RecordGameResult(ctx, name, []string{name})
	}

	top, err := lb.Top(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestTopEmpty(t *testing.T) {
	lb := newTestLeaderboard(t)

	top, err := lb.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestStatsUnknownPlayer(t *testing.T) {
	lb := newTestLeaderboard(t)

	stats, err := lb.Stats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, stats)
}
