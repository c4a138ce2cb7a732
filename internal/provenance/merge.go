// Package provenance scores claims by source trust and resolves
// disagreements between sources without discarding any of them.
package provenance

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/timepivot/internal/models"
)

// Default trust weights per source class. A curator override replaces the
// class default for a single source and is always logged.
const (
	defaultCuratedTrust       = 0.9
	defaultPublicTrust        = 0.7
	defaultUserSubmittedTrust = 0.4

	// curatorTrust outranks every class default so an explicit correction
	// wins the merge while the original claims stay recorded.
	curatorTrust = 1.0
)

// TrustTable maps sources to trust weights. Class defaults apply unless a
// curator override was recorded for the specific source.
type TrustTable struct {
	mu            sync.RWMutex
	classDefaults map[models.SourceClass]float64
	overrides     map[string]override

	logger *slog.Logger
}

type override struct {
	weight  float64
	curator string
	at      time.Time
}

// NewTrustTable builds a table with the standard class defaults. Defaults
// can be replaced wholesale from config via SetClassDefault.
func NewTrustTable(logger *slog.Logger) *TrustTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustTable{
		classDefaults: map[models.SourceClass]float64{
			models.SourceCurated:       defaultCuratedTrust,
			models.SourcePublic:        defaultPublicTrust,
			models.SourceUserSubmitted: defaultUserSubmittedTrust,
		},
		overrides: make(map[string]override),
		logger:    logger,
	}
}

// SetClassDefault replaces the default weight for a source class.
func (t *TrustTable) SetClassDefault(class models.SourceClass, weight float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classDefaults[class] = weight
}

// Override pins the trust weight of one source, recording who changed it
// and when. Overrides never mutate the source record itself.
func (t *TrustTable) Override(sourceID string, weight float64, curator string) {
	t.mu.Lock()
	t.overrides[sourceID] = override{weight: weight, curator: curator, at: time.Now()}
	t.mu.Unlock()

	t.logger.Info("source trust overridden",
		slog.String("source_id", sourceID),
		slog.Float64("weight", weight),
		slog.String("curator", curator))
}

// OverrideWeight reports the pinned weight for a source, if a curator
// recorded one. Lets callers re-weight attributions frozen at contribution
// time without knowing the source's class.
func (t *TrustTable) OverrideWeight(sourceID string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	o, ok := t.overrides[sourceID]
	return o.weight, ok
}

// Weight returns the effective trust weight for a source.
func (t *TrustTable) Weight(src models.Source) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if o, ok := t.overrides[src.ID]; ok {
		return o.weight
	}
	if w, ok := t.classDefaults[src.Class]; ok {
		return w
	}
	return defaultUserSubmittedTrust
}

// AttributedClaim pairs a claim with the provenance needed to merge it.
type AttributedClaim struct {
	Claim        models.Claim
	SourceID     string
	Trust        float64
	LastVerified time.Time
}

// Alternative is a losing value kept alongside the chosen one.
type Alternative struct {
	Claim    models.Claim
	SourceID string
	Trust    float64
}

// Resolution is the outcome of merging all claims about one fact.
type Resolution struct {
	Chosen   models.Claim
	SourceID string

	// Confidence is the mean trust of the sources that agree with the
	// chosen value, not just the winning source's weight.
	Confidence float64

	// Conflict is set when sources genuinely disagree. Time values that
	// agree at the coarser of their precisions do not count as conflicting.
	Conflict     bool
	Alternatives []Alternative
}

// Merge resolves a set of attributed claims about the same property into a
// single value with confidence and retained alternatives. Returns ok=false
// for an empty input.
func Merge(claims []AttributedClaim) (Resolution, bool) {
	if len(claims) == 0 {
		return Resolution{}, false
	}

	groups := groupByValue(claims)

	// Winner: highest trust, then most recent verification, then source ID
	// so repeated merges are deterministic.
	best := claims[0]
	for _, c := range claims[1:] {
		if betterWitness(c, best) {
			best = c
		}
	}

	res := Resolution{
		Chosen:   best.Claim,
		SourceID: best.SourceID,
		Conflict: len(groups) > 1,
	}

	var agreeing *valueGroup
	for i := range groups {
		if groups[i].contains(best) {
			agreeing = &groups[i]
			break
		}
	}
	if agreeing != nil {
		var sum float64
		for _, m := range agreeing.members {
			sum += m.Trust
		}
		res.Confidence = sum / float64(len(agreeing.members))
	}

	for i := range groups {
		if &groups[i] == agreeing {
			continue
		}
		top := groups[i].top()
		res.Alternatives = append(res.Alternatives, Alternative{
			Claim:    top.Claim,
			SourceID: top.SourceID,
			Trust:    top.Trust,
		})
	}
	sort.Slice(res.Alternatives, func(i, j int) bool {
		if res.Alternatives[i].Trust != res.Alternatives[j].Trust {
			return res.Alternatives[i].Trust > res.Alternatives[j].Trust
		}
		return res.Alternatives[i].SourceID < res.Alternatives[j].SourceID
	})
	return res, true
}

// WithCuratorOverride appends the curator's correction as a maximally
// trusted pseudo-source. The original claims remain in the slice so the
// override is reversible and auditable.
func WithCuratorOverride(claims []AttributedClaim, correction models.Claim, curatorID string, at time.Time) []AttributedClaim {
	return append(claims, AttributedClaim{
		Claim:        correction,
		SourceID:     "curator:" + curatorID,
		Trust:        curatorTrust,
		LastVerified: at,
	})
}

type valueGroup struct {
	members []AttributedClaim
}

func (g *valueGroup) contains(c AttributedClaim) bool {
	for _, m := range g.members {
		if m.SourceID == c.SourceID && m.Claim.ValueKey() == c.Claim.ValueKey() {
			return true
		}
	}
	return false
}

func (g *valueGroup) top() AttributedClaim {
	best := g.members[0]
	for _, m := range g.members[1:] {
		if betterWitness(m, best) {
			best = m
		}
	}
	return best
}

func betterWitness(a, b AttributedClaim) bool {
	if a.Trust != b.Trust {
		return a.Trust > b.Trust
	}
	if !a.LastVerified.Equal(b.LastVerified) {
		return a.LastVerified.After(b.LastVerified)
	}
	return a.SourceID < b.SourceID
}

// groupByValue partitions claims into agreement groups. Time claims join a
// group when they Equal at the coarser precision, so "1821" and
// "1821-05-05" agree; everything else groups on the exact value key.
func groupByValue(claims []AttributedClaim) []valueGroup {
	var groups []valueGroup
next:
	for _, c := range claims {
		for i := range groups {
			if sameValue(c.Claim, groups[i].members[0].Claim) {
				groups[i].members = append(groups[i].members, c)
				continue next
			}
		}
		groups = append(groups, valueGroup{members: []AttributedClaim{c}})
	}
	return groups
}

func sameValue(a, b models.Claim) bool {
	if a.Kind.TimeKind() && b.Kind.TimeKind() && a.Time != nil && b.Time != nil {
		return a.Time.Equal(*b.Time)
	}
	return a.ValueKey() == b.ValueKey()
}
