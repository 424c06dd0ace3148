package viewing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/store"
)

// Track is an independent round-generation strategy. The default track powers
// the public game; dynamic and preloaded run side by side so their outcomes
// can be compared.
type Track string

const (
	TrackDefault   Track = "remote-viewing"
	TrackDynamic   Track = "dynamic"
	TrackPreloaded Track = "preloaded"
)

func ParseTrack(s string) (Track, bool) {
	switch Track(s) {
	case TrackDynamic, TrackPreloaded:
		return Track(s), true
	}
	return "", false
}

var (
	ErrRoundClosed        = errors.New("predictions are closed for this round")
	ErrRoundNotFound      = errors.New("round not found")
	ErrNotRevealed        = errors.New("round not yet revealed")
	ErrAwaitingGeneration = errors.New("round is awaiting its generation window")
	ErrPredictionTooShort = errors.New("prediction must be at least 8 characters")
)

const dateLayout = "2006-01-02"

// Engine coordinates round generation, the reserve pool, and prediction
// judging. Generation is serialized per (date, track) key and judging behind a
// single global key; both rely on the process-local flight group, so the
// no-duplicate guarantee does not survive a restart. That is acceptable
// because completed rounds are detected idempotently by their populated
// fields.
type Engine struct {
	store  *store.Store
	images *ImageStore
	text   func() []ai.TextProvider
	image  func() []ai.ImageProvider
	log    zerolog.Logger
	now    func() time.Time
	flight singleflight.Group

	cutoffHour   int
	cutoffMinute int
}

type Options struct {
	Store      *store.Store
	Images     *ImageStore
	TextChain  func() []ai.TextProvider
	ImageChain func() []ai.ImageProvider
	Logger     zerolog.Logger
	Now        func() time.Time
	// DynamicCutoff is the "HH:MM" UTC threshold before which the dynamic
	// track refuses to generate.
	DynamicCutoff string
}

func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		images:       opts.Images,
		text:         opts.TextChain,
		image:        opts.ImageChain,
		log:          opts.Logger,
		now:          opts.Now,
		cutoffHour:   8,
		cutoffMinute: 55,
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if h, m, ok := parseCutoff(opts.DynamicCutoff); ok {
		e.cutoffHour, e.cutoffMinute = h, m
	}
	return e
}

func parseCutoff(s string) (int, int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// DateOf formats a timestamp as its UTC calendar day.
func DateOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// RevealTime is the next UTC midnight after the round's day: predictions close
// and the target becomes visible exactly at day rollover.
func RevealTime(date string) time.Time {
	day, _ := time.Parse(dateLayout, date)
	return day.Add(24 * time.Hour)
}

// Revealed is a pure function of the round and the clock; no write ever flips
// it.
func (e *Engine) Revealed(r *store.Round) bool {
	return r.Populated() && !e.now().Before(r.RevealAt)
}

// EffectiveStatus recomputes the round status on read.
func (e *Engine) EffectiveStatus(r *store.Round) string {
	if !r.Populated() {
		return r.Status
	}
	if e.Revealed(r) {
		return store.RoundRevealed
	}
	return store.RoundHidden
}

// EnsureRound returns the round for (date, track), generating it if needed.
// Concurrent callers for the same key attach to the same in-flight attempt, so
// at most one generation pass (and one provider spend) happens per key.
func (e *Engine) EnsureRound(ctx context.Context, date string, track Track, force bool) (*store.Round, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("bad date %q", date)
	}
	key := date + "|" + string(track)
	v, err, _ := e.flight.Do(key, func() (any, error) {
		return e.ensureRound(ctx, date, track, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Round), nil
}

func (e *Engine) ensureRound(ctx context.Context, date string, track Track, force bool) (*store.Round, error) {
	if r := e.findRound(date, track); r != nil && r.Populated() {
		return r, nil
	}

	if track == TrackDynamic && !force && e.beforeCutoff(date) {
		var out *store.Round
		err := e.store.Update(func(st *store.State) error {
			r := st.FindRound(date, string(track))
			if r == nil {
				r = &store.Round{
					ID:       st.NextID(),
					Track:    string(track),
					Date:     date,
					RevealAt: RevealTime(date),
					Status:   store.RoundAwaitingGeneration,
				}
				st.Rounds = append(st.Rounds, r)
			}
			out = cloneRound(r)
			return nil
		})
		return out, err
	}

	// Claim the shell row before any provider call.
	if err := e.store.Update(func(st *store.State) error {
		r := st.FindRound(date, string(track))
		if r == nil {
			r = &store.Round{
				ID:       st.NextID(),
				Track:    string(track),
				Date:     date,
				RevealAt: RevealTime(date),
			}
			st.Rounds = append(st.Rounds, r)
		}
		r.Status = store.RoundGenerating
		return nil
	}); err != nil {
		return nil, err
	}

	tgt, img, provs, genErr := e.generate(ctx, date)
	if genErr == nil {
		ref, err := e.images.Save(fmt.Sprintf("round-%s-%s", date, track), img)
		if err != nil {
			genErr = fmt.Errorf("store image: %w", err)
		} else {
			var out *store.Round
			if err := e.store.Update(func(st *store.State) error {
				r := st.FindRound(date, string(track))
				if r == nil {
					return ErrRoundNotFound
				}
				r.TargetTitle = tgt.Title
				r.TargetPrompt = tgt.Prompt
				r.ImageRef = ref
				r.ImageFormat = img.Format
				r.GeneratedAt = e.now()
				r.Status = store.RoundHidden
				r.GenerationMode = store.ModeLive
				r.PromptProvider = provs.prompt
				r.ImageProvider = provs.image
				out = cloneRound(r)
				return nil
			}); err != nil {
				return nil, err
			}
			e.log.Info().Str("date", date).Str("track", string(track)).
				Str("promptProvider", provs.prompt).Str("imageProvider", provs.image).
				Msg("round generated")
			return out, nil
		}
	}

	// Live generation failed; try to mask it with a reserve item.
	if item := e.claimReserve(date, genErr.Error()); item != nil {
		var out *store.Round
		if err := e.store.Update(func(st *store.State) error {
			r := st.FindRound(date, string(track))
			if r == nil {
				return ErrRoundNotFound
			}
			r.TargetTitle = item.TargetTitle
			r.TargetPrompt = item.TargetPrompt
			r.ImageRef = item.ImageRef
			r.ImageFormat = item.ImageFormat
			r.GeneratedAt = e.now()
			r.Status = store.RoundHidden
			r.GenerationMode = store.ModeReserve
			r.ReserveItemID = item.ID
			r.PromptProvider = item.PromptProvider
			r.ImageProvider = item.ImageProvider
			out = cloneRound(r)
			return nil
		}); err != nil {
			return nil, err
		}
		e.log.Warn().Str("date", date).Str("track", string(track)).Str("reserveItem", item.ID).
			Str("reason", genErr.Error()).Msg("round served from reserve")
		return out, nil
	}

	// No provider success and no reserve capacity. The default track rolls the
	// shell row back entirely; parallel tracks keep a failed marker so the
	// comparison stats can count the miss.
	if err := e.store.Update(func(st *store.State) error {
		if track == TrackDefault {
			for i, r := range st.Rounds {
				if r.Date == date && r.Track == string(track) {
					st.Rounds = append(st.Rounds[:i], st.Rounds[i+1:]...)
					break
				}
			}
			return nil
		}
		if r := st.FindRound(date, string(track)); r != nil {
			r.Status = store.RoundGenerationFailed
		}
		return nil
	}); err != nil {
		return nil, err
	}
	e.log.Error().Str("date", date).Str("track", string(track)).Err(genErr).Msg("round generation exhausted")
	return nil, genErr
}

func (e *Engine) beforeCutoff(date string) bool {
	now := e.now()
	if DateOf(now) != date {
		// Past days are always past their window; future days have not
		// reached it.
		return DateOf(now) < date
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), e.cutoffHour, e.cutoffMinute, 0, 0, time.UTC)
	return now.Before(cutoff)
}

func (e *Engine) findRound(date string, track Track) *store.Round {
	var out *store.Round
	e.store.View(func(st *store.State) {
		if r := st.FindRound(date, string(track)); r != nil {
			out = cloneRound(r)
		}
	})
	return out
}

func cloneRound(r *store.Round) *store.Round {
	c := *r
	return &c
}

type target struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

type providerPair struct {
	prompt string
	image  string
}

const targetSystem = "You invent remote viewing targets. A target is a single vivid physical scene " +
	"that a viewer could sketch: concrete objects, a location, and one action. Avoid text, numbers, " +
	"logos, and famous landmarks. Respond with strict JSON: {\"title\": \"...\", \"prompt\": \"...\"} " +
	"where prompt is a 2-3 sentence scene description suitable for an image generator."

// generate runs the two-step pipeline: target text, then a rendered image with
// an inline-vector fallback when every raster vendor is down.
func (e *Engine) generate(ctx context.Context, date string) (target, ai.Image, providerPair, error) {
	tgt, promptProvider, err := e.generateTarget(ctx, date)
	if err != nil {
		return target{}, ai.Image{}, providerPair{}, err
	}
	img, imageProvider, err := e.renderImage(ctx, tgt.Prompt)
	if err != nil {
		return target{}, ai.Image{}, providerPair{}, err
	}
	return tgt, img, providerPair{prompt: promptProvider, image: imageProvider}, nil
}

func (e *Engine) generateTarget(ctx context.Context, seed string) (target, string, error) {
	providers := e.text()
	attempts := make([]ai.Attempt[target], 0, len(providers))
	// Entropy token forces a unique scene even when two calls share a date.
	user := fmt.Sprintf("Generate a brand-new target. Session seed: %s/%s. "+
		"The scene must not resemble previous targets.", seed, uuid.NewString())
	for _, p := range providers {
		p := p
		attempts = append(attempts, ai.Attempt[target]{Name: p.Name(), Run: func(ctx context.Context) (target, error) {
			raw, err := p.Complete(ctx, targetSystem, user, ai.CompleteOpts{Temperature: 1.0, MaxTokens: 400})
			if err != nil {
				return target{}, err
			}
			var t target
			if err := parseJSONFragment(raw, &t); err != nil {
				return target{}, fmt.Errorf("unparseable target: %v", err)
			}
			if t.Title == "" || t.Prompt == "" {
				return target{}, errors.New("target missing title or prompt")
			}
			return t, nil
		}})
	}
	return ai.First(ctx, "target", attempts)
}

func (e *Engine) renderImage(ctx context.Context, prompt string) (ai.Image, string, error) {
	providers := e.image()
	attempts := make([]ai.Attempt[ai.Image], 0, len(providers))
	for _, p := range providers {
		p := p
		attempts = append(attempts, ai.Attempt[ai.Image]{Name: p.Name(), Run: func(ctx context.Context) (ai.Image, error) {
			return p.Render(ctx, prompt)
		}})
	}
	img, name, err := ai.First(ctx, "image", attempts)
	if err == nil {
		return img, name, nil
	}
	svg, svgName, svgErr := e.renderVector(ctx, prompt)
	if svgErr == nil {
		return svg, svgName, nil
	}
	// Keep the exhaustion type intact so callers can map it; the message still
	// carries both failure trails.
	return ai.Image{}, "", fmt.Errorf("%w; %v", err, svgErr)
}

const vectorSystem = "You draw simple flat illustrations as SVG. Respond with only a complete " +
	"<svg>...</svg> document, no markdown fences, no commentary. Use a 512x512 viewBox."

func (e *Engine) renderVector(ctx context.Context, prompt string) (ai.Image, string, error) {
	providers := e.text()
	attempts := make([]ai.Attempt[ai.Image], 0, len(providers))
	user := "Draw this scene: " + prompt
	for _, p := range providers {
		p := p
		attempts = append(attempts, ai.Attempt[ai.Image]{Name: p.Name(), Run: func(ctx context.Context) (ai.Image, error) {
			raw, err := p.Complete(ctx, vectorSystem, user, ai.CompleteOpts{Temperature: 0.7, MaxTokens: 2000})
			if err != nil {
				return ai.Image{}, err
			}
			svg, err := sanitizeSVG(raw)
			if err != nil {
				return ai.Image{}, err
			}
			return ai.Image{Data: []byte(svg), Format: "svg"}, nil
		}})
	}
	return ai.First(ctx, "vector", attempts)
}
