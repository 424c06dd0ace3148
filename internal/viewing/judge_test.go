package viewing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/store"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    verdict
		wantErr bool
	}{
		{
			name: "clean json",
			raw:  `{"outcome": "win", "score": 64, "rationale": "solid overlap"}`,
			want: verdict{Outcome: "win", Score: 64, Rationale: "solid overlap"},
		},
		{
			name: "wrapped in prose and fences",
			raw:  "Here is my assessment:\n```json\n{\"outcome\": \"LOSS\", \"score\": 5, \"rationale\": \"none\"}\n```",
			want: verdict{Outcome: "loss", Score: 5, Rationale: "none"},
		},
		{
			name: "score clamped high",
			raw:  `{"outcome": "win", "score": 140, "rationale": "x"}`,
			want: verdict{Outcome: "win", Score: 100, Rationale: "x"},
		},
		{
			name: "score clamped low",
			raw:  `{"outcome": "loss", "score": -3, "rationale": "x"}`,
			want: verdict{Outcome: "loss", Score: 0, Rationale: "x"},
		},
		{
			name:    "bogus outcome",
			raw:     `{"outcome": "maybe", "score": 50, "rationale": "x"}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			raw:     "the viewer did well",
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseVerdict(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScorePendingJudgesOnlyRevealedRounds(t *testing.T) {
	text := scriptedText("openai", verdictWin)
	e, st, clock := newTestEngine(t, []ai.TextProvider{text}, []ai.ImageProvider{goodImage("openai")})
	date := DateOf(clock.Now())

	r, err := e.EnsureRound(context.Background(), date, TrackDefault, false)
	require.NoError(t, err)
	_, err = e.SubmitPrediction(context.Background(), 42, TrackDefault, "a tall red structure by the ocean")
	require.NoError(t, err)

	judgeCallsBefore := text.calls.Load()
	e.ScorePending(context.Background())

	// hidden round: nothing to judge yet
	assert.Equal(t, judgeCallsBefore, text.calls.Load())
	st.View(func(s *store.State) {
		p := s.FindPrediction(r.ID, 42)
		require.NotNil(t, p)
		assert.Equal(t, store.OutcomePending, p.Outcome)
	})

	clock.Set(r.RevealAt)
	e.ScorePending(context.Background())

	st.View(func(s *store.State) {
		p := s.FindPrediction(r.ID, 42)
		require.NotNil(t, p)
		assert.Equal(t, store.OutcomeWin, p.Outcome)
		require.NotNil(t, p.Score)
		assert.Equal(t, 72, *p.Score)
		assert.NotEmpty(t, p.Rationale)
		assert.Equal(t, 1, p.ScoreAttempts)
		require.NotNil(t, p.ScoredAt)
		assert.Equal(t, "openai", s.FindRoundByID(r.ID).JudgeProvider)
	})
}

func TestScorePendingRecordsJudgeFailureAndRetries(t *testing.T) {
	broken := &fakeText{name: "openai", fn: func(system, user string) (string, error) {
		if strings.Contains(system, "judge") {
			return "not json", nil
		}
		return targetJSON, nil
	}}
	e, st, clock := newTestEngine(t, []ai.TextProvider{broken}, []ai.ImageProvider{goodImage("openai")})
	date := DateOf(clock.Now())

	r, err := e.EnsureRound(context.Background(), date, TrackDefault, false)
	require.NoError(t, err)
	_, err = e.SubmitPrediction(context.Background(), 7, TrackDefault, "an open field with machinery")
	require.NoError(t, err)

	clock.Set(r.RevealAt)
	e.ScorePending(context.Background())

	st.View(func(s *store.State) {
		p := s.FindPrediction(r.ID, 7)
		require.NotNil(t, p)
		assert.Equal(t, store.OutcomePending, p.Outcome)
		assert.Equal(t, 1, p.ScoreAttempts)
		assert.Contains(t, p.JudgeError, "unparseable verdict")
		assert.Nil(t, p.Score)
	})

	// next sweep retries the same prediction
	e.ScorePending(context.Background())
	st.View(func(s *store.State) {
		p := s.FindPrediction(r.ID, 7)
		assert.Equal(t, 2, p.ScoreAttempts)
		assert.Equal(t, store.OutcomePending, p.Outcome)
	})
}

func TestScorePendingDoesNotRescoreSettledPredictions(t *testing.T) {
	text := scriptedText("openai", verdictLoss)
	e, st, clock := newTestEngine(t, []ai.TextProvider{text}, []ai.ImageProvider{goodImage("openai")})
	date := DateOf(clock.Now())

	r, err := e.EnsureRound(context.Background(), date, TrackDefault, false)
	require.NoError(t, err)
	_, err = e.SubmitPrediction(context.Background(), 9, TrackDefault, "a busy city intersection")
	require.NoError(t, err)

	clock.Set(r.RevealAt)
	e.ScorePending(context.Background())
	settled := text.calls.Load()

	e.ScorePending(context.Background())
	assert.Equal(t, settled, text.calls.Load())
	st.View(func(s *store.State) {
		p := s.FindPrediction(r.ID, 9)
		assert.Equal(t, store.OutcomeLoss, p.Outcome)
		assert.Equal(t, 1, p.ScoreAttempts)
	})
}

func TestPredictionWindowAroundMidnight(t *testing.T) {
	e, st, clock := newTestEngine(t, []ai.TextProvider{scriptedText("openai", verdictWin)}, []ai.ImageProvider{goodImage("openai")})

	clock.Set(time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC))
	p1, err := e.SubmitPrediction(context.Background(), 3, TrackDefault, "a lighthouse on a cliff")
	require.NoError(t, err)

	// one second past midnight the old round is revealed and a submission
	// lands on the new day's round instead
	clock.Set(time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC))
	var old *store.Round
	st.View(func(s *store.State) { old = s.FindRoundByID(p1.RoundID) })
	assert.True(t, e.Revealed(old))

	p2, err := e.SubmitPrediction(context.Background(), 3, TrackDefault, "a forest clearing at noon")
	require.NoError(t, err)
	assert.NotEqual(t, p1.RoundID, p2.RoundID)
}

func TestSubmitPredictionValidatesAndUpserts(t *testing.T) {
	e, st, _ := newTestEngine(t, []ai.TextProvider{scriptedText("openai", verdictWin)}, []ai.ImageProvider{goodImage("openai")})

	_, err := e.SubmitPrediction(context.Background(), 5, TrackDefault, "  tiny  ")
	assert.ErrorIs(t, err, ErrPredictionTooShort)

	first, err := e.SubmitPrediction(context.Background(), 5, TrackDefault, "a river winding through hills")
	require.NoError(t, err)

	second, err := e.SubmitPrediction(context.Background(), 5, TrackDefault, "actually a coastal scene with a tower")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, store.OutcomePending, second.Outcome)

	st.View(func(s *store.State) {
		count := 0
		for _, p := range s.Predictions {
			if p.RoundID == first.RoundID && p.UserID == 5 {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}
