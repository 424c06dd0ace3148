package viewing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/signalscope/signalscope/internal/store"
)

// claimReserve marks the first never-used reserve item as consumed and returns
// a copy, or nil when the pool is drained. Selection order is insertion order,
// and the mark happens inside the store lock, so an item can never back two
// rounds.
func (e *Engine) claimReserve(date, reason string) *store.ReserveItem {
	var claimed *store.ReserveItem
	err := e.store.Update(func(st *store.State) error {
		for _, item := range st.ReserveItems {
			if item.UsedAt != nil {
				continue
			}
			now := e.now()
			item.UsedAt = &now
			item.UsedForRoundDate = date
			item.UseReason = reason
			c := *item
			claimed = &c
			return nil
		}
		return errNoReserve
	})
	if err != nil && !errors.Is(err, errNoReserve) {
		// A claim whose usedAt mark did not persist must not back a round.
		e.log.Error().Err(err).Str("date", date).Msg("persist reserve claim failed")
		return nil
	}
	return claimed
}

var errNoReserve = fmt.Errorf("reserve pool empty")

// ReserveReport summarizes one frontload batch.
type ReserveReport struct {
	TargetAvailable int      `json:"targetAvailable"`
	Available       int      `json:"available"`
	Created         int      `json:"created"`
	Failed          int      `json:"failed"`
	Errors          []string `json:"errors,omitempty"`
}

// FrontloadReserve tops the pool up to targetAvailable never-used items using
// the same text-then-image pipeline as live generation, keyed by a synthetic
// reserve id instead of a date. Per-item failures are recorded and do not
// abort the batch.
func (e *Engine) FrontloadReserve(ctx context.Context, targetAvailable int) ReserveReport {
	report := ReserveReport{TargetAvailable: targetAvailable}
	available := 0
	e.store.View(func(st *store.State) {
		for _, item := range st.ReserveItems {
			if item.UsedAt == nil {
				available++
			}
		}
	})
	report.Available = available

	for i := available; i < targetAvailable; i++ {
		id := uuid.NewString()
		tgt, img, provs, err := e.generate(ctx, "reserve-"+id)
		if err == nil {
			var ref string
			ref, err = e.images.Save("reserve-"+id, img)
			if err == nil {
				err = e.store.Update(func(st *store.State) error {
					st.ReserveItems = append(st.ReserveItems, &store.ReserveItem{
						ID:             id,
						TargetTitle:    tgt.Title,
						TargetPrompt:   tgt.Prompt,
						ImageRef:       ref,
						ImageFormat:    img.Format,
						PromptProvider: provs.prompt,
						ImageProvider:  provs.image,
						CreatedAt:      e.now(),
					})
					return nil
				})
			}
		}
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
			e.log.Warn().Err(err).Msg("reserve item generation failed")
			continue
		}
		report.Created++
		report.Available++
	}
	return report
}

// ReserveStatus reports pool depth for the daily engine block.
type ReserveStatus struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

func (e *Engine) reserveStatus() ReserveStatus {
	var s ReserveStatus
	e.store.View(func(st *store.State) {
		s.Total = len(st.ReserveItems)
		for _, item := range st.ReserveItems {
			if item.UsedAt == nil {
				s.Available++
			}
		}
	})
	return s
}
