package export

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/iptvmerge/internal/registry"
)

func TestWrite_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "channels.db")
	snap := Snapshot{
		RunID:       "run-1",
		GeneratedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Channels: []Channel{
			{Name: "CCTV1", Category: "ys", Candidates: []registry.Candidate{{URL: "http://c", Latency: 80}, {URL: "http://a", Latency: registry.Unknown}}},
			{Name: "湖南卫视", Category: "ws", Candidates: []registry.Candidate{{URL: "http://hn", Latency: 12.5}}},
		},
	}
	ctx := context.Background()
	require.NoError(t, Write(ctx, path, snap))
	// a second run replaces the file rather than appending
	require.NoError(t, Write(ctx, path, snap))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var runs, channels, candidates int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM run").Scan(&runs))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM channel").Scan(&channels))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM candidate").Scan(&candidates))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 2, channels)
	assert.Equal(t, 3, candidates)

	var lat sql.NullFloat64
	require.NoError(t, db.QueryRow("SELECT latency_ms FROM candidate WHERE url = ?", "http://a").Scan(&lat))
	assert.False(t, lat.Valid)
	require.NoError(t, db.QueryRow("SELECT latency_ms FROM candidate WHERE channel = ? AND rank = 0", "CCTV1").Scan(&lat))
	assert.Equal(t, 80.0, lat.Float64)
}
