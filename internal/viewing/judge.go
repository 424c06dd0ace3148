package viewing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/store"
)

const judgeSystem = "You judge remote viewing predictions. You receive the actual target scene and a " +
	"viewer's free-text impression recorded before the target was revealed. A win means meaningful " +
	"semantic overlap with the target's objects, location, or action; superficial word matches do not " +
	"count. Respond with strict JSON: {\"outcome\": \"win\" | \"loss\", \"score\": 0-100, " +
	"\"rationale\": \"one or two sentences\"}."

type verdict struct {
	Outcome   string `json:"outcome"`
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

type judgeJob struct {
	predictionID int64
	roundID      int64
	targetTitle  string
	targetPrompt string
	prediction   string
}

// ScorePending judges every pending prediction on every revealed round. Sweeps
// are serialized behind one flight key so two simultaneous page loads cannot
// double-score. Judge failures never propagate: they are recorded on the
// prediction and retried on the next sweep.
func (e *Engine) ScorePending(ctx context.Context) {
	_, _, _ = e.flight.Do("judge-sweep", func() (any, error) {
		e.scorePending(ctx)
		return nil, nil
	})
}

func (e *Engine) scorePending(ctx context.Context) {
	var jobs []judgeJob
	e.store.View(func(st *store.State) {
		for _, r := range st.Rounds {
			if !e.Revealed(r) {
				continue
			}
			for _, p := range st.Predictions {
				if p.RoundID != r.ID || p.Outcome != store.OutcomePending {
					continue
				}
				jobs = append(jobs, judgeJob{
					predictionID: p.ID,
					roundID:      r.ID,
					targetTitle:  r.TargetTitle,
					targetPrompt: r.TargetPrompt,
					prediction:   p.Text,
				})
			}
		}
	})

	for _, job := range jobs {
		v, provider, err := e.judge(ctx, job)
		updateErr := e.store.Update(func(st *store.State) error {
			var pred *store.Prediction
			for _, p := range st.Predictions {
				if p.ID == job.predictionID {
					pred = p
					break
				}
			}
			if pred == nil || pred.Outcome != store.OutcomePending {
				return nil
			}
			pred.ScoreAttempts++
			if err != nil {
				pred.JudgeError = err.Error()
				return nil
			}
			now := e.now()
			score := v.Score
			pred.Outcome = v.Outcome
			pred.Score = &score
			pred.Rationale = v.Rationale
			pred.JudgeError = ""
			pred.ScoredAt = &now
			if r := st.FindRoundByID(job.roundID); r != nil {
				r.JudgeProvider = provider
			}
			return nil
		})
		if err != nil {
			e.log.Warn().Int64("prediction", job.predictionID).Err(err).Msg("judge attempt failed")
		}
		if updateErr != nil {
			e.log.Error().Int64("prediction", job.predictionID).Err(updateErr).Msg("persist verdict failed")
		}
	}
}

func (e *Engine) judge(ctx context.Context, job judgeJob) (verdict, string, error) {
	providers := e.text()
	attempts := make([]ai.Attempt[verdict], 0, len(providers))
	user := fmt.Sprintf("Target title: %s\nTarget scene: %s\n\nViewer's impression:\n%s",
		job.targetTitle, job.targetPrompt, job.prediction)
	for _, p := range providers {
		p := p
		attempts = append(attempts, ai.Attempt[verdict]{Name: p.Name(), Run: func(ctx context.Context) (verdict, error) {
			raw, err := p.Complete(ctx, judgeSystem, user, ai.CompleteOpts{Temperature: 0.2, MaxTokens: 300})
			if err != nil {
				return verdict{}, err
			}
			return parseVerdict(raw)
		}})
	}
	return ai.First(ctx, "judge", attempts)
}

func parseVerdict(raw string) (verdict, error) {
	var v verdict
	if err := parseJSONFragment(raw, &v); err != nil {
		return verdict{}, fmt.Errorf("unparseable verdict: %v", err)
	}
	v.Outcome = strings.ToLower(strings.TrimSpace(v.Outcome))
	if v.Outcome != store.OutcomeWin && v.Outcome != store.OutcomeLoss {
		return verdict{}, errors.New("verdict outcome must be win or loss")
	}
	if v.Score < 0 {
		v.Score = 0
	}
	if v.Score > 100 {
		v.Score = 100
	}
	return v, nil
}
