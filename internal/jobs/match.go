package jobs

import (
	"sort"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// skillSet folds skills into a lookup set, dropping blanks.
func skillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		if k := engine.FoldKey(s); k != "" {
			set[k] = true
		}
	}
	return set
}

// Score returns how much of what the job asks for the candidate has, 0–100.
// Comparison is case-insensitive; a skill listed twice by the job counts once.
// Half percentages round up: 1 of 8 skills is 13.
func Score(jobSkills, candidateSkills []string) int {
	a := Match("", jobSkills, candidateSkills)
	return a.MatchPercentage
}

// Match computes the full annotation for one posting.
// MatchedSkills keeps the job's spelling and order.
func Match(jobID string, jobSkills, candidateSkills []string) Annotation {
	ann := Annotation{JobID: jobID, MatchedSkills: []string{}}
	cand := skillSet(candidateSkills)
	if len(cand) == 0 {
		return ann
	}

	seen := make(map[string]bool, len(jobSkills))
	total := 0
	for _, s := range jobSkills {
		k := engine.FoldKey(s)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		total++
		if cand[k] {
			ann.MatchedSkills = append(ann.MatchedSkills, s)
		}
	}
	if total == 0 {
		return ann
	}
	ann.MatchPercentage = roundPercent(len(ann.MatchedSkills), total)
	return ann
}

// roundPercent is round-half-up of 100*n/d in integer arithmetic.
func roundPercent(n, d int) int {
	return (200*n + d) / (2 * d)
}

// Annotate pairs each posting with its annotation against candidateSkills.
// With no candidate skills every Match is nil.
func Annotate(postings []Posting, candidateSkills []string) []Annotated {
	out := make([]Annotated, len(postings))
	hasCandidate := len(skillSet(candidateSkills)) > 0
	for i, p := range postings {
		out[i] = Annotated{Posting: p}
		if hasCandidate {
			ann := Match(p.ID, p.Skills, candidateSkills)
			out[i].Match = &ann
		}
	}
	return out
}

// RankByMatch sorts annotated postings by match percentage (desc),
// then by posting date (newer first), then by id for a stable order.
// Unannotated postings rank as 0.
func RankByMatch(items []Annotated) {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := matchOf(items[i]), matchOf(items[j])
		if si != sj {
			return si > sj
		}
		if !items[i].PostedAt.Equal(items[j].PostedAt) {
			return items[i].PostedAt.After(items[j].PostedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func matchOf(a Annotated) int {
	if a.Match == nil {
		return 0
	}
	return a.Match.MatchPercentage
}
