package store

import "time"

// State is the entire persisted data graph. It is loaded once at startup and
// rewritten wholesale after every mutation, so a half-written save can lose the
// latest change but never leave dangling references.
type State struct {
	Seq          int64          `json:"seq"`
	Users        []*User        `json:"users"`
	Sessions     []*Session     `json:"sessions"`
	Tenants      []*Tenant      `json:"tenants"`
	Posts        []*Post        `json:"posts"`
	Comments     []*Comment     `json:"comments"`
	Cases        []*Case        `json:"cases"`
	Tasks        []*Task        `json:"tasks"`
	Rounds       []*Round       `json:"rounds"`
	Predictions  []*Prediction  `json:"predictions"`
	ReserveItems []*ReserveItem `json:"reserveItems"`
}

// NextID hands out sequential ids. Callers must hold the store lock.
func (s *State) NextID() int64 {
	s.Seq++
	return s.Seq
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Theme struct {
	Brand  string `json:"brand"`
	Accent string `json:"accent"`
	Glow   string `json:"glow"`
}

type Room struct {
	Name      string `json:"name"`
	Topic     string `json:"topic"`
	Schedule  string `json:"schedule"`
	Attendees string `json:"attendees"`
}

type Tenant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Tagline     string    `json:"tagline"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"ownerId"`
	Channels    []string  `json:"channels"`
	Rooms       []Room    `json:"rooms"`
	Theme       Theme     `json:"theme"`
	MemberIDs   []int64   `json:"memberIds"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Post struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenantId"`
	AuthorID   int64     `json:"authorId"`
	Type       string    `json:"type"` // video | podcast | meme | brief
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Tags       []string  `json:"tags"`
	UpvoterIDs []int64   `json:"upvoterIds"`
	Clues      int       `json:"clues"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	AuthorID  int64     `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Case struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId"`
	OwnerID   int64     `json:"ownerId"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	ID        int64     `json:"id"`
	CaseID    int64     `json:"caseId"`
	Label     string    `json:"label"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
}

// Round statuses. Revealed is derived from the clock, never stored.
const (
	RoundAwaitingGeneration = "awaiting-generation"
	RoundGenerating         = "generating"
	RoundHidden             = "hidden"
	RoundGenerationFailed   = "generation-failed"
	RoundRevealed           = "revealed"
)

const (
	ModeLive    = "live"
	ModeReserve = "reserve"
)

type Round struct {
	ID             int64     `json:"id"`
	Track          string    `json:"track"`
	Date           string    `json:"date"` // UTC day, 2006-01-02
	TargetTitle    string    `json:"targetTitle"`
	TargetPrompt   string    `json:"targetPrompt"`
	ImageRef       string    `json:"imageRef"`
	ImageFormat    string    `json:"imageFormat"` // png | svg
	RevealAt       time.Time `json:"revealAt"`
	GeneratedAt    time.Time `json:"generatedAt"`
	Status         string    `json:"status"`
	GenerationMode string    `json:"generationMode"`
	ReserveItemID  string    `json:"reserveItemId,omitempty"`
	PromptProvider string    `json:"promptProvider,omitempty"`
	ImageProvider  string    `json:"imageProvider,omitempty"`
	JudgeProvider  string    `json:"judgeProvider,omitempty"`
}

// Populated reports whether generation has completed for this round.
func (r *Round) Populated() bool {
	return r.TargetTitle != "" && r.ImageRef != ""
}

const (
	OutcomePending = "pending"
	OutcomeWin     = "win"
	OutcomeLoss    = "loss"
)

type Prediction struct {
	ID            int64      `json:"id"`
	RoundID       int64      `json:"roundId"`
	UserID        int64      `json:"userId"`
	Text          string     `json:"text"`
	Outcome       string     `json:"outcome"`
	Score         *int       `json:"score,omitempty"`
	Rationale     string     `json:"rationale,omitempty"`
	JudgeError    string     `json:"judgeError,omitempty"`
	ScoreAttempts int        `json:"scoreAttempts,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ScoredAt      *time.Time `json:"scoredAt,omitempty"`
}

type ReserveItem struct {
	ID               string     `json:"id"`
	TargetTitle      string     `json:"targetTitle"`
	TargetPrompt     string     `json:"targetPrompt"`
	ImageRef         string     `json:"imageRef"`
	ImageFormat      string     `json:"imageFormat"`
	PromptProvider   string     `json:"promptProvider"`
	ImageProvider    string     `json:"imageProvider"`
	CreatedAt        time.Time  `json:"createdAt"`
	UsedAt           *time.Time `json:"usedAt,omitempty"`
	UsedForRoundDate string     `json:"usedForRoundDate,omitempty"`
	UseReason        string     `json:"useReason,omitempty"`
}

func (s *State) FindRound(date, track string) *Round {
	for _, r := range s.Rounds {
		if r.Date == date && r.Track == track {
			return r
		}
	}
	return nil
}

func (s *State) FindRoundByID(id int64) *Round {
	for _, r := range s.Rounds {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *State) FindUser(id int64) *User {
	for _, u := range s.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *State) FindTenant(id int64) *Tenant {
	for _, t := range s.Tenants {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *State) FindPost(id int64) *Post {
	for _, p := range s.Posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *State) FindTask(id int64) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *State) FindPrediction(roundID, userID int64) *Prediction {
	for _, p := range s.Predictions {
		if p.RoundID == roundID && p.UserID == userID {
			return p
		}
	}
	return nil
}
