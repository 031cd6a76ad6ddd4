package jobs

import "strings"

// MinCompleteness is the profile percentage required to apply.
const MinCompleteness = 50

// Checklist items, in display order.
const (
	ItemResume     = "resume"
	ItemPhone      = "phone"
	ItemSkills     = "skills"
	ItemEducation  = "education"
	ItemExperience = "experience"
)

// Completeness summarises which checklist items a profile covers.
type Completeness struct {
	Percentage int      `json:"percentage"`
	Completed  []string `json:"completed"`
	Missing    []string `json:"missing"`
}

// CanApply reports whether the profile meets MinCompleteness.
func (c Completeness) CanApply() bool {
	return c.Percentage >= MinCompleteness
}

// ComputeCompleteness evaluates the five-item checklist.
// Percentage is completed/total rounded half up, so 3 of 5 is 60.
func ComputeCompleteness(p Profile) Completeness {
	checks := []struct {
		item string
		ok   bool
	}{
		{ItemResume, len(p.Resumes) > 0},
		{ItemPhone, strings.TrimSpace(p.PhoneNumber) != ""},
		{ItemSkills, len(skillSet(p.Skills)) > 0},
		{ItemEducation, len(p.Education) > 0},
		{ItemExperience, len(p.Experience) > 0},
	}
	c := Completeness{Completed: []string{}, Missing: []string{}}
	for _, ch := range checks {
		if ch.ok {
			c.Completed = append(c.Completed, ch.item)
		} else {
			c.Missing = append(c.Missing, ch.item)
		}
	}
	c.Percentage = roundPercent(len(c.Completed), len(checks))
	return c
}
