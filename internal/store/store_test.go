package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSeedsFreshStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(NewFileRepository(path))
	require.NoError(t, err)
	defer st.Close()

	st.View(func(s *State) {
		require.Len(t, s.Tenants, 1)
		assert.Equal(t, "SignalScope HQ", s.Tenants[0].Name)
		assert.Contains(t, s.Tenants[0].Channels, "remote-viewing")
	})

	// seed snapshot already hit disk
	reloaded, err := NewFileRepository(path).Load()
	require.NoError(t, err)
	assert.Len(t, reloaded.Tenants, 1)
}

func TestUpdatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(NewFileRepository(path))
	require.NoError(t, err)

	var userID int64
	require.NoError(t, st.Update(func(s *State) error {
		userID = s.NextID()
		s.Users = append(s.Users, &User{ID: userID, Name: "sam", Email: "sam@example.com", CreatedAt: time.Now().UTC()})
		return nil
	}))
	require.NoError(t, st.Close())

	st2, err := Open(NewFileRepository(path))
	require.NoError(t, err)
	defer st2.Close()
	st2.View(func(s *State) {
		u := s.FindUser(userID)
		require.NotNil(t, u)
		assert.Equal(t, "sam", u.Name)
		assert.Equal(t, userID, s.Seq)
	})
}

func TestUpdateErrorDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := Open(NewFileRepository(path))
	require.NoError(t, err)
	defer st.Close()

	boom := errors.New("validation failed")
	err = st.Update(func(s *State) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNextIDIsSequential(t *testing.T) {
	s := &State{}
	assert.Equal(t, int64(1), s.NextID())
	assert.Equal(t, int64(2), s.NextID())
	assert.Equal(t, int64(3), s.NextID())
}

func TestFileRepositoryMissingSnapshot(t *testing.T) {
	_, err := NewFileRepository(filepath.Join(t.TempDir(), "nope.json")).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepositoryRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	want := Seed()
	want.Rounds = append(want.Rounds, &Round{
		ID:       want.NextID(),
		Track:    "remote-viewing",
		Date:     "2026-03-14",
		RevealAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:   RoundHidden,
	})
	require.NoError(t, repo.Save(want))

	got, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, got.Rounds, 1)
	assert.Equal(t, "2026-03-14", got.Rounds[0].Date)
	assert.Equal(t, want.Seq, got.Seq)

	// second save overwrites the single row instead of growing the table
	want.Rounds[0].Status = RoundGenerationFailed
	require.NoError(t, repo.Save(want))
	got, err = repo.Load()
	require.NoError(t, err)
	require.Len(t, got.Rounds, 1)
	assert.Equal(t, RoundGenerationFailed, got.Rounds[0].Status)
}

func TestSQLiteBackedStore(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	st, err := Open(repo)
	require.NoError(t, err)
	require.NoError(t, st.Update(func(s *State) error {
		s.Posts = append(s.Posts, &Post{ID: s.NextID(), TenantID: 1, Title: "strange lights"})
		return nil
	}))
	require.NoError(t, st.Close())
}

func TestRoundPopulated(t *testing.T) {
	r := &Round{}
	assert.False(t, r.Populated())
	r.TargetTitle = "Dock"
	assert.False(t, r.Populated())
	r.ImageRef = "round.png"
	assert.True(t, r.Populated())
}
