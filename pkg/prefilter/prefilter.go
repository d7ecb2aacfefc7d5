// Package prefilter narrows a full company list toward a target count using
// only local text heuristics. It is the no-network fallback path when vector
// retrieval is unavailable, and a cheap pre-pass otherwise.
package prefilter

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const DefaultTargetCount = 150

// PreFilter runs the staged candidate funnel. It never fails: malformed
// incentive metadata degrades to keyword-only matching and an empty result
// is a valid outcome.
type PreFilter struct {
	targetCount int
	rng         *rand.Rand
	logger      ectologger.Logger
}

func New(targetCount int, logger ectologger.Logger) *PreFilter {
	if targetCount < 1 {
		targetCount = DefaultTargetCount
	}
	return &PreFilter{
		targetCount: targetCount,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// Filter reduces companies to at most the configured target count. Stages run
// in strict order, each on the survivors of the previous one; a stage with no
// applicable criteria is skipped rather than emptying the set.
func (f *PreFilter) Filter(ctx context.Context, incentive *models.Incentive, companies []models.Company) []models.Company {
	ctx, span := tracing.StartSpan(ctx, "prefilter.PreFilter.Filter")
	defer span.End()

	log := f.logger.WithContext(ctx).WithFields(map[string]any{"incentive_id": incentive.ID, "pool": len(companies)})

	criteria := ExtractCriteria(incentive)
	candidates := companies

	if len(criteria.TargetSectors) > 0 {
		candidates = filterBySector(candidates, criteria.TargetSectors)
		log.WithFields(map[string]any{"stage": "sector", "survivors": len(candidates)}).Debug("funnel stage applied")
	}

	if len(criteria.Keywords) > 0 {
		candidates = filterByKeywords(candidates, criteria.Keywords)
		log.WithFields(map[string]any{"stage": "keyword", "survivors": len(candidates)}).Debug("funnel stage applied")
	}

	if criteria.HasFocus() {
		candidates = filterByFocusAreas(candidates, focusKeywordsFor(criteria))
		log.WithFields(map[string]any{"stage": "focus", "survivors": len(candidates)}).Debug("funnel stage applied")
	}

	if len(candidates) > f.targetCount {
		candidates = rankAndLimit(candidates, incentive, f.targetCount)
		log.WithFields(map[string]any{"stage": "overshoot", "survivors": len(candidates)}).Debug("funnel stage applied")
	}

	if len(candidates) < f.targetCount/2 {
		candidates = f.expandPool(companies, candidates, incentive)
		log.WithFields(map[string]any{"stage": "undershoot", "survivors": len(candidates)}).Debug("funnel stage applied")
	}

	log.WithFields(map[string]any{"final": len(candidates)}).Info("candidate funnel complete")
	return candidates
}

func filterBySector(companies []models.Company, targetSectors []string) []models.Company {
	sectorsLower := lowerAll(targetSectors)

	var filtered []models.Company
	for _, company := range companies {
		label := strings.ToLower(company.SectorLabel())
		if label == "" {
			continue
		}
		if containsAny(label, sectorsLower) || matchesSectorSynonym(label, sectorsLower) {
			filtered = append(filtered, company)
		}
	}
	return filtered
}

// matchesSectorSynonym checks the fixed sector→synonym table for sectors the
// incentive targets.
func matchesSectorSynonym(label string, targetSectors []string) bool {
	for sector, synonyms := range sectorKeywords {
		targeted := false
		for _, target := range targetSectors {
			if target == sector {
				targeted = true
				break
			}
		}
		if !targeted {
			continue
		}
		for _, synonym := range synonyms {
			if strings.Contains(label, strings.ToLower(synonym)) {
				return true
			}
		}
	}
	return false
}

func filterByKeywords(companies []models.Company, keywords []string) []models.Company {
	keywordsLower := lowerAll(keywords)

	var filtered []models.Company
	for _, company := range companies {
		if containsAny(strings.ToLower(company.ActivityText()), keywordsLower) {
			filtered = append(filtered, company)
		}
	}
	return filtered
}

func filterByFocusAreas(companies []models.Company, focusKeywords []string) []models.Company {
	keywordsLower := lowerAll(focusKeywords)

	var filtered []models.Company
	for _, company := range companies {
		if containsAny(strings.ToLower(company.SearchText()), keywordsLower) {
			filtered = append(filtered, company)
		}
	}
	return filtered
}

func focusKeywordsFor(criteria *Criteria) []string {
	var keywords []string
	if criteria.InnovationFocus {
		keywords = append(keywords, innovationKeywords...)
	}
	if criteria.SustainabilityFocus {
		keywords = append(keywords, sustainabilityKeywords...)
	}
	if criteria.DigitalFocus {
		keywords = append(keywords, digitalKeywords...)
	}
	return keywords
}

// Candidates runs the funnel and converts the survivors into candidates
// carrying a Jaccard-derived similarity in [0,1], ordered best first, so the
// result can feed the same ranking contract vector retrieval feeds.
func (f *PreFilter) Candidates(ctx context.Context, incentive *models.Incentive, companies []models.Company, limit int) []models.Candidate {
	filtered := f.Filter(ctx, incentive, companies)

	incentiveWords := wordSet(incentiveTextOf(incentive))
	candidates := make([]models.Candidate, 0, len(filtered))
	for _, company := range filtered {
		score := heuristicScore(company, incentiveWords)
		if score > 1 {
			score = 1
		}
		candidates = append(candidates, models.Candidate{Company: company, Similarity: score})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Similarity > candidates[b].Similarity
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// rankAndLimit scores survivors by the Jaccard heuristic and keeps the best.
func rankAndLimit(companies []models.Company, incentive *models.Incentive, limit int) []models.Company {
	incentiveWords := wordSet(incentiveTextOf(incentive))

	type scored struct {
		score   float64
		company models.Company
	}
	scoredCompanies := make([]scored, 0, len(companies))

	for _, company := range companies {
		scoredCompanies = append(scoredCompanies, scored{
			score:   heuristicScore(company, incentiveWords),
			company: company,
		})
	}

	sort.SliceStable(scoredCompanies, func(a, b int) bool {
		return scoredCompanies[a].score > scoredCompanies[b].score
	})

	if len(scoredCompanies) > limit {
		scoredCompanies = scoredCompanies[:limit]
	}
	result := make([]models.Company, len(scoredCompanies))
	for idx, sc := range scoredCompanies {
		result[idx] = sc.company
	}
	return result
}

func incentiveTextOf(incentive *models.Incentive) string {
	text := strings.ToLower(incentive.Title)
	if incentive.Description != nil {
		text += " " + strings.ToLower(*incentive.Description)
	}
	return text
}

// heuristicScore is Jaccard word overlap with the incentive text, a +0.1
// bonus per incentive word (>3 chars) found literally in the company text,
// and a flat +0.2 bonus if any innovation keyword appears.
func heuristicScore(company models.Company, incentiveWords map[string]struct{}) float64 {
	companyText := strings.ToLower(company.SearchText())
	companyWords := wordSet(companyText)

	score := jaccard(incentiveWords, companyWords)

	for word := range incentiveWords {
		if len(word) > 3 && strings.Contains(companyText, word) {
			score += 0.1
		}
	}

	for _, keyword := range innovationKeywords {
		if strings.Contains(companyText, strings.ToLower(keyword)) {
			score += 0.2
			break
		}
	}

	return score
}

// expandPool re-scans the original pool with broadened terms, then fills any
// remaining shortfall with a random sample. The random fill trades precision
// for a workable candidate count; seeding the rng makes it reproducible.
func (f *PreFilter) expandPool(all []models.Company, selected []models.Company, incentive *models.Incentive) []models.Company {
	terms := lowerAll(broadenedKeywords(incentive))

	selectedIDs := make(map[int64]struct{}, len(selected))
	for _, company := range selected {
		selectedIDs[company.ID] = struct{}{}
	}

	candidates := append([]models.Company{}, selected...)
	for _, company := range all {
		if len(candidates) >= f.targetCount {
			break
		}
		if _, ok := selectedIDs[company.ID]; ok {
			continue
		}
		if containsAny(strings.ToLower(company.SearchText()), terms) {
			candidates = append(candidates, company)
			selectedIDs[company.ID] = struct{}{}
		}
	}

	if len(candidates) < f.targetCount/2 {
		var remaining []models.Company
		for _, company := range all {
			if _, ok := selectedIDs[company.ID]; !ok {
				remaining = append(remaining, company)
			}
		}

		needed := f.targetCount - len(candidates)
		if len(remaining) > needed {
			f.rng.Shuffle(len(remaining), func(a, b int) {
				remaining[a], remaining[b] = remaining[b], remaining[a]
			})
			remaining = remaining[:needed]
		}
		candidates = append(candidates, remaining...)
	}

	return candidates
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(value))
	}
	return lowered
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func wordSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, word := range strings.Fields(text) {
		set[word] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
