package viewing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/store"
)

// EngineStatus is the health block of the daily payload. Generation failures
// never fail the read; they land here as ready=false plus the aggregated
// provider trail.
type EngineStatus struct {
	Ready         bool          `json:"ready"`
	Message       string        `json:"message"`
	FailoverOrder FailoverOrder `json:"failoverOrder"`
	Reserve       ReserveStatus `json:"reserve"`
}

type FailoverOrder struct {
	Text  []string `json:"text"`
	Image []string `json:"image"`
}

type PredictionView struct {
	Text          string     `json:"text"`
	Outcome       string     `json:"outcome"`
	Score         *int       `json:"score,omitempty"`
	Rationale     string     `json:"rationale,omitempty"`
	ScoreAttempts int        `json:"scoreAttempts,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ScoredAt      *time.Time `json:"scoredAt,omitempty"`
}

// RoundView hides the target until reveal.
type RoundView struct {
	ID             int64           `json:"id"`
	Date           string          `json:"date"`
	Track          string          `json:"track"`
	Status         string          `json:"status"`
	RevealAt       time.Time       `json:"revealAt"`
	GenerationMode string          `json:"generationMode,omitempty"`
	TargetTitle    string          `json:"targetTitle,omitempty"`
	TargetPrompt   string          `json:"targetPrompt,omitempty"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	Prediction     *PredictionView `json:"prediction,omitempty"`
}

type RecordView struct {
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Pending int `json:"pending"`
}

type LeaderboardEntry struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Total  int    `json:"total"`
}

type DailyView struct {
	Engine      EngineStatus       `json:"engine"`
	Today       *RoundView         `json:"today"`
	Revealed    []RoundView        `json:"revealed"`
	Record      RecordView         `json:"record"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Daily assembles the full payload for the daily read. It lazily ensures
// today's round and sweeps pending predictions as side effects; a generation
// failure degrades the engine block instead of failing the request so past
// rounds and the leaderboard still render.
func (e *Engine) Daily(ctx context.Context, userID int64, track Track) DailyView {
	view := DailyView{}
	today := DateOf(e.now())

	round, err := e.EnsureRound(ctx, today, track, false)
	if err != nil {
		view.Engine.Message = err.Error()
	} else {
		view.Engine.Ready = true
		view.Engine.Message = "ok"
	}
	view.Engine.FailoverOrder = e.failoverOrder()
	view.Engine.Reserve = e.reserveStatus()

	e.ScorePending(ctx)

	e.store.View(func(st *store.State) {
		if round != nil {
			if fresh := st.FindRound(today, string(track)); fresh != nil {
				rv := e.roundView(st, fresh, userID)
				view.Today = &rv
			}
		}
		var past []*store.Round
		for _, r := range st.Rounds {
			if r.Track == string(track) && r.Date != today && e.Revealed(r) {
				past = append(past, r)
			}
		}
		sort.Slice(past, func(i, j int) bool { return past[i].Date > past[j].Date })
		if len(past) > 14 {
			past = past[:14]
		}
		for _, r := range past {
			view.Revealed = append(view.Revealed, e.roundView(st, r, userID))
		}
		view.Record = e.record(st, userID, track)
		view.Leaderboard = e.leaderboard(st, track)
	})
	return view
}

func (e *Engine) failoverOrder() FailoverOrder {
	var fo FailoverOrder
	for _, p := range e.text() {
		fo.Text = append(fo.Text, p.Name())
	}
	for _, p := range e.image() {
		fo.Image = append(fo.Image, p.Name())
	}
	return fo
}

func (e *Engine) roundView(st *store.State, r *store.Round, userID int64) RoundView {
	rv := RoundView{
		ID:       r.ID,
		Date:     r.Date,
		Track:    r.Track,
		Status:   e.EffectiveStatus(r),
		RevealAt: r.RevealAt,
	}
	if e.Revealed(r) {
		rv.GenerationMode = r.GenerationMode
		rv.TargetTitle = r.TargetTitle
		rv.TargetPrompt = r.TargetPrompt
		rv.ImageURL = fmt.Sprintf("/api/remote-viewing/rounds/%d/image", r.ID)
	}
	if userID != 0 {
		if p := st.FindPrediction(r.ID, userID); p != nil {
			rv.Prediction = &PredictionView{
				Text:          p.Text,
				Outcome:       p.Outcome,
				Score:         p.Score,
				Rationale:     p.Rationale,
				ScoreAttempts: p.ScoreAttempts,
				CreatedAt:     p.CreatedAt,
				ScoredAt:      p.ScoredAt,
			}
		}
	}
	return rv
}

func (e *Engine) record(st *store.State, userID int64, track Track) RecordView {
	var rec RecordView
	if userID == 0 {
		return rec
	}
	for _, p := range st.Predictions {
		r := st.FindRoundByID(p.RoundID)
		if r == nil || r.Track != string(track) || p.UserID != userID {
			continue
		}
		switch p.Outcome {
		case store.OutcomeWin:
			rec.Wins++
		case store.OutcomeLoss:
			rec.Losses++
		default:
			rec.Pending++
		}
	}
	return rec
}

func (e *Engine) leaderboard(st *store.State, track Track) []LeaderboardEntry {
	type tally struct {
		wins, total int
	}
	byUser := map[int64]*tally{}
	for _, p := range st.Predictions {
		r := st.FindRoundByID(p.RoundID)
		if r == nil || r.Track != string(track) || p.Outcome == store.OutcomePending {
			continue
		}
		t := byUser[p.UserID]
		if t == nil {
			t = &tally{}
			byUser[p.UserID] = t
		}
		t.total++
		if p.Outcome == store.OutcomeWin {
			t.wins++
		}
	}
	entries := make([]LeaderboardEntry, 0, len(byUser))
	for id, t := range byUser {
		name := "unknown"
		if u := st.FindUser(id); u != nil {
			name = u.Name
		}
		entries = append(entries, LeaderboardEntry{UserID: id, Name: name, Wins: t.wins, Total: t.total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}
	return entries
}

// Image returns the stored image bytes and content type for a revealed round.
func (e *Engine) Image(roundID int64) ([]byte, string, error) {
	var round *store.Round
	e.store.View(func(st *store.State) {
		if r := st.FindRoundByID(roundID); r != nil {
			round = cloneRound(r)
		}
	})
	if round == nil {
		return nil, "", ErrRoundNotFound
	}
	if !e.Revealed(round) {
		return nil, "", ErrNotRevealed
	}
	data, err := e.images.Open(round.ImageRef)
	if err != nil {
		return nil, "", err
	}
	return data, ContentType(round.ImageFormat), nil
}

// DayResult is the per-day outcome of a bulk frontload.
type DayResult struct {
	Date   string `json:"date"`
	Status string `json:"status"` // generated | existing | scheduled | failed
	Error  string `json:"error,omitempty"`
}

// Frontload ensures rounds across a date range, one at a time, and reports
// what happened per day. Failures do not stop the loop. A dynamic day still
// inside its cutoff window reports "scheduled": the round row exists but
// generation is deferred.
func (e *Engine) Frontload(ctx context.Context, start time.Time, days int, track Track, force bool) []DayResult {
	results := make([]DayResult, 0, days)
	for i := 0; i < days; i++ {
		date := DateOf(start.AddDate(0, 0, i))
		if r := e.findRound(date, track); r != nil && r.Populated() {
			results = append(results, DayResult{Date: date, Status: "existing"})
			continue
		}
		r, err := e.EnsureRound(ctx, date, track, force)
		if err != nil {
			results = append(results, DayResult{Date: date, Status: "failed", Error: err.Error()})
			continue
		}
		if !r.Populated() {
			results = append(results, DayResult{Date: date, Status: "scheduled"})
			continue
		}
		results = append(results, DayResult{Date: date, Status: "generated"})
	}
	return results
}

// TrackStats is the scored-prediction outcome summary for one track.
type TrackStats struct {
	Track   string  `json:"track"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"` // percent
}

type TrackComparison struct {
	Dynamic     TrackStats `json:"dynamic"`
	Preloaded   TrackStats `json:"preloaded"`
	DeltaPoints float64    `json:"deltaPoints"` // dynamic minus preloaded, percentage points
}

// CompareTracks aggregates win rates for the two parallel tracks. This is an
// observability signal for the same-day versus far-in-advance generation
// experiment, nothing more.
func (e *Engine) CompareTracks() TrackComparison {
	var cmp TrackComparison
	e.store.View(func(st *store.State) {
		cmp.Dynamic = e.trackStats(st, TrackDynamic)
		cmp.Preloaded = e.trackStats(st, TrackPreloaded)
	})
	cmp.DeltaPoints = cmp.Dynamic.WinRate - cmp.Preloaded.WinRate
	return cmp
}

func (e *Engine) trackStats(st *store.State, track Track) TrackStats {
	stats := TrackStats{Track: string(track)}
	for _, p := range st.Predictions {
		r := st.FindRoundByID(p.RoundID)
		if r == nil || r.Track != string(track) {
			continue
		}
		switch p.Outcome {
		case store.OutcomeWin:
			stats.Wins++
		case store.OutcomeLoss:
			stats.Losses++
		}
	}
	if total := stats.Wins + stats.Losses; total > 0 {
		stats.WinRate = 100 * float64(stats.Wins) / float64(total)
	}
	return stats
}

// Chains builds availability-filtered provider chains from a registry and the
// configured priority order. Wrapped in closures so availability is recomputed
// on every orchestration pass.
func Chains(textOrder, imageOrder []string, text map[string]ai.TextProvider, image map[string]ai.ImageProvider) (func() []ai.TextProvider, func() []ai.ImageProvider) {
	return func() []ai.TextProvider { return ai.OrderText(textOrder, text) },
		func() []ai.ImageProvider { return ai.OrderImage(imageOrder, image) }
}
