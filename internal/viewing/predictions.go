package viewing

import (
	"context"
	"strings"

	"github.com/signalscope/signalscope/internal/store"
)

// SubmitPrediction upserts the caller's prediction for today's round on the
// given track. Resubmission overwrites the text and resets all scoring fields
// to pending; there is never more than one prediction per (round, user).
func (e *Engine) SubmitPrediction(ctx context.Context, userID int64, track Track, text string) (*store.Prediction, error) {
	text = strings.TrimSpace(text)
	if len(text) < 8 {
		return nil, ErrPredictionTooShort
	}
	round, err := e.EnsureRound(ctx, DateOf(e.now()), track, false)
	if err != nil {
		return nil, err
	}
	if !round.Populated() {
		return nil, ErrAwaitingGeneration
	}
	if e.Revealed(round) {
		return nil, ErrRoundClosed
	}
	var out *store.Prediction
	err = e.store.Update(func(st *store.State) error {
		p := st.FindPrediction(round.ID, userID)
		if p == nil {
			p = &store.Prediction{
				ID:        st.NextID(),
				RoundID:   round.ID,
				UserID:    userID,
				CreatedAt: e.now(),
			}
			st.Predictions = append(st.Predictions, p)
		}
		p.Text = text
		p.Outcome = store.OutcomePending
		p.Score = nil
		p.Rationale = ""
		p.JudgeError = ""
		p.ScoreAttempts = 0
		p.ScoredAt = nil
		c := *p
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
