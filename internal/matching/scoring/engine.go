// Package scoring computes compatibility between a requester company and a
// candidate partner across five dimensions: sector, country, service, size
// and free-text keywords.
//
// An Engine performs no I/O and never fails. Missing or malformed fields
// degrade the affected sub-score to its floor (0) or, for size, to a
// neutral 0.5.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"business-matching-workers/internal/models"
)

const (
	exactSectorScore      = 1.0
	compatibleSectorScore = 0.7

	targetCountryScore    = 1.0
	neighbourCountryScore = 0.5

	compatibleSizeScore = 1.0
	mismatchedSizeScore = 0.3
	neutralSizeScore    = 0.5

	// explainThreshold is expressed in percent.
	explainThreshold = 70.0
)

const fallbackExplanation = "This partner could be of interest for your expansion"

type Engine struct {
	weights    Weights
	sectors    lookup
	neighbours lookup
	sizes      lookup
	text       TextSimilarity
}

type Option func(*Engine)

// WithTextSimilarity replaces the default TF-IDF keyword similarity.
func WithTextSimilarity(ts TextSimilarity) Option {
	return func(e *Engine) {
		if ts != nil {
			e.text = ts
		}
	}
}

// NewEngine validates the weights and freezes the tables. The tables are
// copied so later changes to the caller's maps have no effect.
func NewEngine(weights Weights, tables Tables, opts ...Option) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}

	e := &Engine{
		weights:    weights,
		sectors:    compile(tables.SectorCompatibility),
		neighbours: compile(tables.NeighbouringCountries),
		sizes:      compile(tables.SizeCompatibility),
		text:       NewTFIDF(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewDefaultEngine builds an engine with the default weights and tables.
func NewDefaultEngine() *Engine {
	e, err := NewEngine(DefaultWeights(), DefaultTables())
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// ScoreSector returns 1.0 when the candidate has the requester's sector, 0.7
// when it has a sector compatible with it and 0 otherwise.
func (e *Engine) ScoreSector(sector string, expertise []string) float64 {
	if sector == "" || len(expertise) == 0 {
		return 0
	}
	for _, s := range expertise {
		if s == sector {
			return exactSectorScore
		}
	}
	compatible := e.sectors[sector]
	for _, s := range expertise {
		if compatible.has(s) {
			return compatibleSectorScore
		}
	}
	return 0
}

// ScoreCountry returns 1.0 when the candidate's country is a target market
// and 0.5 when the candidate's country lists a target market as neighbour.
func (e *Engine) ScoreCountry(targets []string, country string) float64 {
	if len(targets) == 0 || country == "" {
		return 0
	}
	for _, t := range targets {
		if t == country {
			return targetCountryScore
		}
	}
	neighbours := e.neighbours[country]
	for _, t := range targets {
		if neighbours.has(t) {
			return neighbourCountryScore
		}
	}
	return 0
}

// ScoreService is the share of requester needs the candidate offers.
func (e *Engine) ScoreService(needs, services []string) float64 {
	if len(needs) == 0 || len(services) == 0 {
		return 0
	}
	offered := newStringSet(services)
	matched := 0
	for _, n := range needs {
		if offered.has(n) {
			matched++
		}
	}
	return math.Min(1, float64(matched)/float64(len(needs)))
}

// ScoreSize is neutral when either side is unknown. An unrecognised size
// class counts as known, so it scores as a mismatch.
func (e *Engine) ScoreSize(sizeClass models.SizeClass, partnerType string) float64 {
	if sizeClass == "" || partnerType == "" {
		return neutralSizeScore
	}
	if e.sizes[string(sizeClass)].has(partnerType) {
		return compatibleSizeScore
	}
	return mismatchedSizeScore
}

func (e *Engine) ScoreKeyword(objectives, description string) (score float64) {
	if objectives == "" || description == "" {
		return 0
	}
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()
	return clamp01(e.text.Similarity(objectives, description))
}

// Aggregate is the weighted sum of the five sub-scores of b. Total is
// ignored.
func Aggregate(b models.ScoreBreakdown, w Weights) float64 {
	return clamp01(b.Sector*w.Sector +
		b.Country*w.Country +
		b.Service*w.Service +
		b.Size*w.Size +
		b.Keyword*w.Keyword)
}

// Score computes every sub-score of the pair and their weighted total, all
// in [0,1].
func (e *Engine) Score(req models.RequesterProfile, cand models.CandidateProfile) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		Sector:  e.ScoreSector(req.Sector, cand.ExpertiseSectors),
		Country: e.ScoreCountry(req.TargetMarkets, cand.Country),
		Service: e.ScoreService(req.BusinessNeeds, cand.ServicesOffered),
		Size:    e.ScoreSize(req.SizeClass, cand.PartnerType),
		Keyword: e.ScoreKeyword(req.ObjectivesText, cand.DescriptionText),
	}
	b.Total = Aggregate(b, e.weights)
	return b
}

// ToPercent scales every field of b to 0..100 rounded to two decimals.
func ToPercent(b models.ScoreBreakdown) models.ScoreBreakdown {
	return models.ScoreBreakdown{
		Sector:  Percent(b.Sector),
		Country: Percent(b.Country),
		Service: Percent(b.Service),
		Size:    Percent(b.Size),
		Keyword: Percent(b.Keyword),
		Total:   Percent(b.Total),
	}
}

func Percent(v float64) float64 {
	return math.Round(clamp01(v)*10000) / 100
}

// Explain renders a sentence for each dimension whose percent score reaches
// 70, in the order sector, country, service, size. pct must already be
// percent scaled.
func (e *Engine) Explain(pct models.ScoreBreakdown, req models.RequesterProfile, cand models.CandidateProfile) string {
	var clauses []string

	if pct.Sector >= explainThreshold {
		clauses = append(clauses, fmt.Sprintf("The partner has experience in the %s sector", orDefault(e.matchedSector(req.Sector, cand.ExpertiseSectors), "requested")))
	}
	if pct.Country >= explainThreshold {
		clauses = append(clauses, fmt.Sprintf("The partner operates in %s, one of your target markets", cand.Country))
	}
	if pct.Service >= explainThreshold {
		if matched := matchedNeeds(req.BusinessNeeds, cand.ServicesOffered); len(matched) > 0 {
			clauses = append(clauses, "The partner offers the services you need: "+strings.Join(matched, ", "))
		} else {
			clauses = append(clauses, "The partner offers the services you need")
		}
	}
	if pct.Size >= explainThreshold {
		clauses = append(clauses, fmt.Sprintf("The partner's size (%s) is compatible with your company (%s)", cand.PartnerType, req.SizeClass))
	}

	if len(clauses) == 0 {
		clauses = append(clauses, fallbackExplanation)
	}
	return strings.Join(clauses, ". ") + "."
}

// matchedSector is the candidate sector that earned the sector score: the
// requester's own sector, else the first compatible one.
func (e *Engine) matchedSector(sector string, expertise []string) string {
	for _, s := range expertise {
		if s == sector {
			return s
		}
	}
	compatible := e.sectors[sector]
	for _, s := range expertise {
		if compatible.has(s) {
			return s
		}
	}
	return sector
}

func matchedNeeds(needs, services []string) []string {
	offered := newStringSet(services)
	seen := make(stringSet)
	var out []string
	for _, n := range needs {
		if offered.has(n) && !seen.has(n) {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
