package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	playerStatsKey = "player:stats:"
	winsKey        = "leaderboard:wins"
)

// PlayerStats is the per-name record behind the leaderboard. Names are the
// game's identity, so stats aggregate across sessions that reuse a name.
type PlayerStats struct {
	PlayerName   string `json:"player_name"`
	Games        int    `json:"games"`
	GameWins     int    `json:"game_wins"`
	RoundWins    int    `json:"round_wins"`
	LastPlayedAt int64  `json:"last_played_at"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"player_name"`
	GameWins   int    `json:"game_wins"`
}

// Leaderboard records round and game wins in Redis. It is written from
// game flow asynchronously and read by the HTTP leaderboard endpoint;
// game play never blocks on it.
type Leaderboard struct {
	redis *redis.Client
}

// NewLeaderboard wraps a redis client.
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{redis: client}
}

// RecordRoundWin bumps the round-win counter for a player name.
func (l *Leaderboard) RecordRoundWin(ctx context.Context, playerName string) {
	key := playerStatsKey + playerName
	pipe := l.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "round_wins", 1)
	pipe.HSet(ctx, key, "player_name", playerName, "last_played_at", time.Now().Unix())
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("leaderboard: record round win failed")
	}
}

// RecordGameResult records a finished game for every participant and ranks
// the winner.
func (l *Leaderboard) RecordGameResult(ctx context.Context, winnerName string, playerNames []string) {
	now := time.Now().Unix()
	pipe := l.redis.Pipeline()
	for _, name := range playerNames {
		key := playerStatsKey + name
		pipe.HIncrBy(ctx, key, "games", 1)
		pipe.HSet(ctx, key, "player_name", name, "last_played_at", now)
	}
	pipe.HIncrBy(ctx, playerStatsKey+winnerName, "game_wins", 1)
	pipe.ZIncrBy(ctx, winsKey, 1, winnerName)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("leaderboard: record game result failed")
	}
}

// Top returns the highest-ranked players by game wins.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	results, err := l.redis.ZRevRangeWithScores(ctx, winsKey, 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(results))
	for i, result := range results {
		name, _ := result.Member.(string)
		entries = append(entries, Entry{
			Rank:       i + 1,
			PlayerName: name,
			GameWins:   int(result.Score),
		})
	}
	return entries, nil
}

// Stats returns one player's record, or nil when the name has no history.
func (l *Leaderboard) Stats(ctx context.Context, playerName string) (*PlayerStats, error) {
	data, err := l.redis.HGetAll(ctx, playerStatsKey+playerName).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	stats := &PlayerStats{PlayerName: data["player_name"]}
	stats.Games, _ = strconv.Atoi(data["games"])
	stats.GameWins, _ = strconv.Atoi(data["game_wins"])
	stats.RoundWins, _ = strconv.Atoi(data["round_wins"])
	stats.LastPlayedAt, _ = strconv.ParseInt(data["last_played_at"], 10, 64)
	return stats, nil
}
