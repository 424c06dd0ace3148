package forum

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalscope/signalscope/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(store.NewFileRepository(filepath.Join(t.TempDir(), "state.json")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st), st
}

func addUser(t *testing.T, st *store.Store, name string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, st.Update(func(s *store.State) error {
		id = s.NextID()
		s.Users = append(s.Users, &store.User{ID: id, Name: name, Email: name + "@example.com"})
		return nil
	}))
	return id
}

func addTenant(t *testing.T, svc *Service, owner int64) int64 {
	t.Helper()
	tenant, err := svc.CreateTenant(owner, "Night Watch", "Lights in the sky", "Tracking aerial anomalies.")
	require.NoError(t, err)
	return tenant.ID
}

func TestTenantsIncludesSeedCommunity(t *testing.T) {
	svc, _ := newTestService(t)
	tenants := svc.Tenants()
	require.Len(t, tenants, 1)
	assert.Equal(t, "SignalScope HQ", tenants[0].Name)
	assert.Contains(t, tenants[0].Stats.Cases, "open")

	// the seed community ships with starter content
	posts, err := svc.Posts(tenants[0].ID, "", "new")
	require.NoError(t, err)
	assert.NotEmpty(t, posts)
}

func TestCreateTenant(t *testing.T) {
	svc, st := newTestService(t)
	owner := addUser(t, st, "dana")

	_, err := svc.CreateTenant(owner, "", "tag", "desc")
	assert.ErrorIs(t, err, ErrMissingFields)

	tenant, err := svc.CreateTenant(owner, "Night Watch", "Lights in the sky", "Tracking aerial anomalies.")
	require.NoError(t, err)
	assert.Equal(t, "Night Watch", tenant.Name)

	detail, err := svc.Tenant(tenant.ID)
	require.NoError(t, err)
	assert.Contains(t, detail.Channels, "general")
	assert.Equal(t, "1 members", detail.Stats.Members)
}

func TestTenantNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Tenant(9999)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestCreatePostValidation(t *testing.T) {
	svc, st := newTestService(t)
	author := addUser(t, st, "dana")

	_, err := svc.CreatePost(1, author, "article", "t", "s", "https://example.com", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.CreatePost(1, author, "video", "t", "s", "ftp://example.com/x", "")
	assert.ErrorIs(t, err, ErrBadURL)

	_, err = svc.CreatePost(1, author, "video", "t", "s", "not a url", "")
	assert.ErrorIs(t, err, ErrBadURL)

	_, err = svc.CreatePost(9999, author, "video", "t", "s", "https://example.com/x", "")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	post, err := svc.CreatePost(1, author, "video", "Strange lights over the bay", "Three witnesses, same pattern.", "https://video.example.com/watch?v=1", "#UFO, lights bay")
	require.NoError(t, err)
	assert.Equal(t, "video.example.com", post.Source)
	assert.Equal(t, "open", post.Status)
	assert.Equal(t, []string{"ufo", "lights", "bay"}, post.Tags)
	assert.Equal(t, "dana", post.AuthorName)
}

func TestPostsFilterAndSort(t *testing.T) {
	svc, st := newTestService(t)
	author := addUser(t, st, "dana")
	voter := addUser(t, st, "sam")
	tenantID := addTenant(t, svc, author)

	old, err := svc.CreatePost(tenantID, author, "video", "Old clip", "summary", "https://a.example.com/1", "")
	require.NoError(t, err)
	_, err = svc.CreatePost(tenantID, author, "brief", "Fresh brief", "summary", "https://b.example.com/2", "")
	require.NoError(t, err)

	// backdate the first post so "new" ordering is deterministic
	require.NoError(t, st.Update(func(s *store.State) error {
		s.FindPost(old.ID).CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
		return nil
	}))
	require.NoError(t, svc.Upvote(old.ID, voter))

	videos, err := svc.Posts(tenantID, "video", "new")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "Old clip", videos[0].Title)

	byNew, err := svc.Posts(tenantID, "all", "new")
	require.NoError(t, err)
	require.Len(t, byNew, 2)
	assert.Equal(t, "Fresh brief", byNew[0].Title)

	byTop, err := svc.Posts(tenantID, "", "top")
	require.NoError(t, err)
	assert.Equal(t, "Old clip", byTop[0].Title)

	byHot, err := svc.Posts(tenantID, "", "hot")
	require.NoError(t, err)
	// one upvote (weight 3) beats zero engagement
	assert.Equal(t, "Old clip", byHot[0].Title)

	_, err = svc.Posts(9999, "", "")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestUpvoteIsIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	author := addUser(t, st, "dana")
	tenantID := addTenant(t, svc, author)
	post, err := svc.CreatePost(tenantID, author, "meme", "That chart again", "summary", "https://img.example.com/1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Upvote(post.ID, author))
	require.NoError(t, svc.Upvote(post.ID, author))

	posts, err := svc.Posts(tenantID, "", "top")
	require.NoError(t, err)
	assert.Equal(t, 1, posts[0].Upvotes)

	assert.ErrorIs(t, svc.Upvote(9999, author), ErrPostNotFound)
}

func TestAddCommentAndLatestThree(t *testing.T) {
	svc, st := newTestService(t)
	author := addUser(t, st, "dana")
	tenantID := addTenant(t, svc, author)
	post, err := svc.CreatePost(tenantID, author, "podcast", "Episode 12", "summary", "https://pod.example.com/12", "")
	require.NoError(t, err)

	_, err = svc.AddComment(post.ID, author, "  ")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.AddComment(post.ID, author, strings.Repeat("x", 1201))
	assert.ErrorIs(t, err, ErrBodyTooLong)

	for i, body := range []string{"first", "second", "third", "fourth"} {
		c, err := svc.AddComment(post.ID, author, body)
		require.NoError(t, err)
		assert.Equal(t, "dana", c.AuthorName)
		// spread creation times so recency ordering is stable
		require.NoError(t, st.Update(func(s *store.State) error {
			s.Comments[i].CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
			return nil
		}))
	}

	posts, err := svc.Posts(tenantID, "", "new")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 4, posts[0].Comments)
	require.Len(t, posts[0].LatestComments, 3)
	assert.Equal(t, "fourth", posts[0].LatestComments[0].Body)
	assert.Equal(t, "second", posts[0].LatestComments[2].Body)
}

func TestCasesAndChecklist(t *testing.T) {
	svc, st := newTestService(t)
	owner := addUser(t, st, "dana")
	tenantID := addTenant(t, svc, owner)

	caseView, err := svc.CreateCase(tenantID, owner, "The bay lights pattern", "Collect witness timelines")
	require.NoError(t, err)
	assert.Equal(t, "active", caseView.State)
	assert.Equal(t, "dana", caseView.OwnerLabel)
	require.Len(t, caseView.Checklist, 1)
	assert.False(t, caseView.Checklist[0].Done)

	task, err := svc.SetTaskDone(caseView.Checklist[0].ID, true)
	require.NoError(t, err)
	assert.True(t, task.Done)

	_, err = svc.SetTaskDone(9999, true)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	detail, err := svc.Tenant(tenantID)
	require.NoError(t, err)
	require.Len(t, detail.Cases, 1)
	assert.True(t, detail.Cases[0].Checklist[0].Done)
	assert.Contains(t, detail.Stats.Cases, "1 open")
}

func TestInvestigatorsRankingAndRoles(t *testing.T) {
	svc, st := newTestService(t)
	founder := addUser(t, st, "dana")
	commenter := addUser(t, st, "sam")
	tenantID := addTenant(t, svc, founder)

	post, err := svc.CreatePost(tenantID, founder, "brief", "Morning brief", "summary", "https://example.com/b", "")
	require.NoError(t, err)
	_, err = svc.AddComment(post.ID, commenter, "adding a source")
	require.NoError(t, err)

	detail, err := svc.Tenant(tenantID)
	require.NoError(t, err)
	require.Len(t, detail.Investigators, 2)
	assert.Equal(t, "dana", detail.Investigators[0].Name)
	assert.Equal(t, "Founder", detail.Investigators[0].Role)
	assert.Equal(t, "3 pts", detail.Investigators[0].Score)
	assert.Equal(t, "Investigator", detail.Investigators[1].Role)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"ufo", "lights", "bay"}, splitTags("#UFO, lights bay ufo"))
	assert.Empty(t, splitTags("   "))
	assert.Len(t, splitTags("a b c d e f g h"), 6)
}
