package forum

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/signalscope/signalscope/internal/store"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrPostNotFound   = errors.New("post not found")
	ErrTaskNotFound   = errors.New("task not found")
	ErrMissingFields  = errors.New("required fields are missing")
	ErrBadURL         = errors.New("url must be absolute http(s)")
	ErrBodyTooLong    = errors.New("comment body exceeds 1200 characters")
)

var postTypes = map[string]bool{
	"video":   true,
	"podcast": true,
	"meme":    true,
	"brief":   true,
}

type Service struct {
	store *store.Store
	now   func() time.Time
}

func New(st *store.Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

type TenantSummary struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Tagline string      `json:"tagline"`
	Stats   TenantStats `json:"stats"`
}

type TenantStats struct {
	Members string `json:"members"`
	Active  string `json:"active"`
	Cases   string `json:"cases"`
}

type CheckItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

type CaseView struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	State      string      `json:"state"`
	OwnerLabel string      `json:"ownerLabel"`
	Checklist  []CheckItem `json:"checklist"`
}

type InvestigatorView struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Score string `json:"score"`
}

type TenantDetail struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Tagline       string             `json:"tagline"`
	Description   string             `json:"description"`
	Channels      []string           `json:"channels"`
	HotTags       []string           `json:"hotTags"`
	Stats         TenantStats        `json:"stats"`
	Cases         []CaseView         `json:"cases"`
	Rooms         []store.Room       `json:"rooms"`
	Investigators []InvestigatorView `json:"investigators"`
	Theme         store.Theme        `json:"theme"`
}

type CommentView struct {
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PostView struct {
	ID             int64         `json:"id"`
	Type           string        `json:"type"`
	Title          string        `json:"title"`
	Summary        string        `json:"summary"`
	URL            string        `json:"url"`
	Source         string        `json:"source"`
	Status         string        `json:"status"`
	Tags           []string      `json:"tags"`
	AuthorName     string        `json:"authorName"`
	CreatedAt      time.Time     `json:"createdAt"`
	Clues          int           `json:"clues"`
	Comments       int           `json:"comments"`
	Upvotes        int           `json:"upvotes"`
	LatestComments []CommentView `json:"latestComments"`
}

func (s *Service) Tenants() []TenantSummary {
	var out []TenantSummary
	s.store.View(func(st *store.State) {
		for _, t := range st.Tenants {
			out = append(out, TenantSummary{
				ID:      t.ID,
				Name:    t.Name,
				Tagline: t.Tagline,
				Stats:   s.tenantStats(st, t),
			})
		}
	})
	return out
}

func (s *Service) CreateTenant(ownerID int64, name, tagline, description string) (*TenantSummary, error) {
	name = strings.TrimSpace(name)
	tagline = strings.TrimSpace(tagline)
	description = strings.TrimSpace(description)
	if name == "" || tagline == "" || description == "" {
		return nil, ErrMissingFields
	}
	var out TenantSummary
	err := s.store.Update(func(st *store.State) error {
		t := &store.Tenant{
			ID:          st.NextID(),
			Name:        name,
			Tagline:     tagline,
			Description: description,
			OwnerID:     ownerID,
			Channels:    []string{"general", "leads", "cases"},
			Theme:       store.Theme{Brand: "#0b3a53", Accent: "#d07a2f", Glow: "rgba(11, 58, 83, 0.16)"},
			MemberIDs:   []int64{ownerID},
			CreatedAt:   s.now(),
		}
		st.Tenants = append(st.Tenants, t)
		out = TenantSummary{ID: t.ID, Name: t.Name, Tagline: t.Tagline, Stats: s.tenantStats(st, t)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Tenant(id int64) (*TenantDetail, error) {
	var out *TenantDetail
	s.store.View(func(st *store.State) {
		t := st.FindTenant(id)
		if t == nil {
			return
		}
		d := &TenantDetail{
			ID:          t.ID,
			Name:        t.Name,
			Tagline:     t.Tagline,
			Description: t.Description,
			Channels:    t.Channels,
			HotTags:     s.hotTags(st, t.ID),
			Stats:       s.tenantStats(st, t),
			Rooms:       t.Rooms,
			Theme:       t.Theme,
		}
		for _, c := range st.Cases {
			if c.TenantID != t.ID {
				continue
			}
			cv := CaseView{ID: c.ID, Title: c.Title, State: c.State, OwnerLabel: s.userName(st, c.OwnerID)}
			for _, task := range st.Tasks {
				if task.CaseID == c.ID {
					cv.Checklist = append(cv.Checklist, CheckItem{ID: task.ID, Label: task.Label, Done: task.Done})
				}
			}
			d.Cases = append(d.Cases, cv)
		}
		d.Investigators = s.investigators(st, t.ID)
		out = d
	})
	if out == nil {
		return nil, ErrTenantNotFound
	}
	return out, nil
}

// Posts lists a tenant's posts filtered by media type and ordered by the
// requested sort: hot (engagement-weighted), new (recency), top (upvotes).
func (s *Service) Posts(tenantID int64, filter, sortBy string) ([]PostView, error) {
	var posts []PostView
	var found bool
	s.store.View(func(st *store.State) {
		if st.FindTenant(tenantID) == nil {
			return
		}
		found = true
		for _, p := range st.Posts {
			if p.TenantID != tenantID {
				continue
			}
			if filter != "" && filter != "all" && p.Type != filter {
				continue
			}
			posts = append(posts, s.postView(st, p))
		}
	})
	if !found {
		return nil, ErrTenantNotFound
	}
	switch sortBy {
	case "new":
		sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	case "top":
		sort.Slice(posts, func(i, j int) bool { return posts[i].Upvotes > posts[j].Upvotes })
	default: // hot
		score := func(p PostView) int { return p.Upvotes*3 + p.Comments*2 + p.Clues }
		sort.Slice(posts, func(i, j int) bool {
			if score(posts[i]) != score(posts[j]) {
				return score(posts[i]) > score(posts[j])
			}
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
	return posts, nil
}

func (s *Service) CreatePost(tenantID, authorID int64, postType, title, summary, rawURL, rawTags string) (*PostView, error) {
	postType = strings.TrimSpace(postType)
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	rawURL = strings.TrimSpace(rawURL)
	if !postTypes[postType] || title == "" || summary == "" || rawURL == "" {
		return nil, ErrMissingFields
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrBadURL
	}
	var out PostView
	err = s.store.Update(func(st *store.State) error {
		if st.FindTenant(tenantID) == nil {
			return ErrTenantNotFound
		}
		p := &store.Post{
			ID:        st.NextID(),
			TenantID:  tenantID,
			AuthorID:  authorID,
			Type:      postType,
			Title:     title,
			Summary:   summary,
			URL:       rawURL,
			Source:    u.Hostname(),
			Status:    "open",
			Tags:      splitTags(rawTags),
			CreatedAt: s.now(),
		}
		st.Posts = append(st.Posts, p)
		out = s.postView(st, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Upvote is idempotent per user; boosting twice is a no-op.
func (s *Service) Upvote(postID, userID int64) error {
	return s.store.Update(func(st *store.State) error {
		p := st.FindPost(postID)
		if p == nil {
			return ErrPostNotFound
		}
		for _, id := range p.UpvoterIDs {
			if id == userID {
				return nil
			}
		}
		p.UpvoterIDs = append(p.UpvoterIDs, userID)
		return nil
	})
}

func (s *Service) AddComment(postID, authorID int64, body string) (*CommentView, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrMissingFields
	}
	if len(body) > 1200 {
		return nil, ErrBodyTooLong
	}
	var out CommentView
	err := s.store.Update(func(st *store.State) error {
		if st.FindPost(postID) == nil {
			return ErrPostNotFound
		}
		c := &store.Comment{
			ID:        st.NextID(),
			PostID:    postID,
			AuthorID:  authorID,
			Body:      body,
			CreatedAt: s.now(),
		}
		st.Comments = append(st.Comments, c)
		out = CommentView{AuthorName: s.userName(st, authorID), Body: c.Body, CreatedAt: c.CreatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) CreateCase(tenantID, ownerID int64, title, initialTask string) (*CaseView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrMissingFields
	}
	var out CaseView
	err := s.store.Update(func(st *store.State) error {
		if st.FindTenant(tenantID) == nil {
			return ErrTenantNotFound
		}
		c := &store.Case{
			ID:        st.NextID(),
			TenantID:  tenantID,
			OwnerID:   ownerID,
			Title:     title,
			State:     "active",
			CreatedAt: s.now(),
		}
		st.Cases = append(st.Cases, c)
		out = CaseView{ID: c.ID, Title: c.Title, State: c.State, OwnerLabel: s.userName(st, ownerID)}
		if task := strings.TrimSpace(initialTask); task != "" {
			t := &store.Task{ID: st.NextID(), CaseID: c.ID, Label: task, CreatedAt: s.now()}
			st.Tasks = append(st.Tasks, t)
			out.Checklist = append(out.Checklist, CheckItem{ID: t.ID, Label: t.Label})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) SetTaskDone(taskID int64, done bool) (*CheckItem, error) {
	var out CheckItem
	err := s.store.Update(func(st *store.State) error {
		t := st.FindTask(taskID)
		if t == nil {
			return ErrTaskNotFound
		}
		t.Done = done
		out = CheckItem{ID: t.ID, Label: t.Label, Done: t.Done}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) postView(st *store.State, p *store.Post) PostView {
	pv := PostView{
		ID:         p.ID,
		Type:       p.Type,
		Title:      p.Title,
		Summary:    p.Summary,
		URL:        p.URL,
		Source:     p.Source,
		Status:     p.Status,
		Tags:       p.Tags,
		AuthorName: s.userName(st, p.AuthorID),
		CreatedAt:  p.CreatedAt,
		Clues:      p.Clues,
		Upvotes:    len(p.UpvoterIDs),
	}
	var comments []*store.Comment
	for _, c := range st.Comments {
		if c.PostID == p.ID {
			comments = append(comments, c)
		}
	}
	pv.Comments = len(comments)
	// Newest three for inline display.
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	if len(comments) > 3 {
		comments = comments[:3]
	}
	for _, c := range comments {
		pv.LatestComments = append(pv.LatestComments, CommentView{
			AuthorName: s.userName(st, c.AuthorID),
			Body:       c.Body,
			CreatedAt:  c.CreatedAt,
		})
	}
	return pv
}

func (s *Service) tenantStats(st *store.State, t *store.Tenant) TenantStats {
	members := len(t.MemberIDs)
	active := 0
	cutoff := s.now().Add(-24 * time.Hour)
	seen := map[int64]bool{}
	for _, p := range st.Posts {
		if p.TenantID == t.ID && p.CreatedAt.After(cutoff) && !seen[p.AuthorID] {
			seen[p.AuthorID] = true
			active++
		}
	}
	open := 0
	for _, c := range st.Cases {
		if c.TenantID == t.ID && c.State == "active" {
			open++
		}
	}
	return TenantStats{
		Members: fmt.Sprintf("%d members", members),
		Active:  fmt.Sprintf("%d active today", active),
		Cases:   fmt.Sprintf("%d open", open),
	}
}

func (s *Service) hotTags(st *store.State, tenantID int64) []string {
	counts := map[string]int{}
	for _, p := range st.Posts {
		if p.TenantID != tenantID {
			continue
		}
		for _, tag := range p.Tags {
			counts[tag]++
		}
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > 8 {
		tags = tags[:8]
	}
	return tags
}

// investigators ranks a tenant's most active contributors by a simple
// engagement score.
func (s *Service) investigators(st *store.State, tenantID int64) []InvestigatorView {
	scores := map[int64]int{}
	for _, p := range st.Posts {
		if p.TenantID == tenantID {
			scores[p.AuthorID] += 3
		}
	}
	for _, c := range st.Comments {
		if p := st.FindPost(c.PostID); p != nil && p.TenantID == tenantID {
			scores[c.AuthorID]++
		}
	}
	ids := make([]int64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > 5 {
		ids = ids[:5]
	}
	out := make([]InvestigatorView, 0, len(ids))
	for _, id := range ids {
		role := "Investigator"
		if t := st.FindTenant(tenantID); t != nil && t.OwnerID == id {
			role = "Founder"
		}
		out = append(out, InvestigatorView{
			Name:  s.userName(st, id),
			Role:  role,
			Score: fmt.Sprintf("%d pts", scores[id]),
		})
	}
	return out
}

func (s *Service) userName(st *store.State, id int64) string {
	if u := st.FindUser(id); u != nil {
		return u.Name
	}
	return "Investigator"
}

func splitTags(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '#' })
	seen := map[string]bool{}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) > 6 {
		out = out[:6]
	}
	return out
}
