package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
)

func sampleContext(t *testing.T) assessment.Context {
	t.Helper()
	m := assessment.NewMachine(nil)
	c := assessment.New()
	var err error
	c, err = m.SelectCategory(c, "b2b_saas")
	require.NoError(t, err)
	c, err = m.SelectOpportunityArea(c, "revenue")
	require.NoError(t, err)
	c, err = m.SelectRevenueModel(c, "subscription")
	require.NoError(t, err)
	return c
}

// exerciseStore runs the shared contract against any Store.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	c := sampleContext(t)

	id, err := s.Save(ctx, c)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "generated ids are uuids")

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	want := c
	want.ID = id
	assert.Equal(t, want, got)
	assert.Equal(t, assessment.TierChallenge, got.CurrentTier)

	// Saving again under the same id overwrites.
	m := assessment.NewMachine(nil)
	next, err := m.Back(got)
	require.NoError(t, err)
	id2, err := s.Save(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	got, err = s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, assessment.TierRevenueModel, got.CurrentTier)
	assert.Equal(t, "subscription", got.RevenueModel, "back keeps fields")

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	id, err := s1.Save(context.Background(), sampleContext(t))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "b2b_saas", got.ICPCategory)
}

func TestSQLiteStoreList(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }
	ctx := context.Background()
	first, err := s.Save(ctx, assessment.New())
	require.NoError(t, err)
	now = now.Add(time.Minute)
	second, err := s.Save(ctx, sampleContext(t))
	require.NoError(t, err)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, "3", list[0].Tier)
	assert.Equal(t, assessment.TierChallenge.Progress(), list[0].Progress)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, now, list[0].UpdatedAt)
}

func TestSQLiteStoreKeepsCallerID(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()
	c := assessment.New()
	c.ID = "fixed-id"
	id, err := s.Save(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"})
	assert.Error(t, err)

	s, err := Open(context.Background(), Options{SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "assessment:session:abc", redisKey("abc"))
	assert.Equal(t, DefaultRedisTTL, newRedisStore(nil, 0).ttl)
}

// TestRedisStore runs against a live server when REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}
