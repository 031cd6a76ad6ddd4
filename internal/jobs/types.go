// Package jobs holds the posting model, skill matching and profile completeness.
package jobs

import (
	"strings"
	"time"
)

// JobType is the employment arrangement of a posting.
type JobType string

const (
	FullTime   JobType = "FULL_TIME"
	PartTime   JobType = "PART_TIME"
	Contract   JobType = "CONTRACT"
	Internship JobType = "INTERNSHIP"
	Temporary  JobType = "TEMPORARY"
	Freelance  JobType = "FREELANCE"
)

// AllJobTypes lists every JobType in display order.
var AllJobTypes = []JobType{FullTime, PartTime, Contract, Internship, Temporary, Freelance}

// ParseJobType accepts "FULL_TIME", "full-time", "Full Time" and similar spellings.
func ParseJobType(s string) (JobType, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, t := range AllJobTypes {
		if JobType(norm) == t {
			return t, true
		}
	}
	return "", false
}

// MaxSalary is the upper bound of any salary filter.
const MaxSalary = 1_000_000

// SalaryRange is an inclusive [Min, Max] pair. Zero Max means no upper bound.
type SalaryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Company is the employer reference carried by a posting.
type Company struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// Posting is a job as returned by the search collaborator. Never mutated.
type Posting struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Company         Company     `json:"company"`
	Location        string      `json:"location"`
	JobType         JobType     `json:"jobType"`
	Skills          []string    `json:"skills"`
	Salary          SalaryRange `json:"salary"`
	PostedAt        time.Time   `json:"postedAt"`
	Urgent          bool        `json:"urgent,omitempty"`
	ApplicantCount  *int        `json:"applicantCount,omitempty"`
	DescriptionHTML string      `json:"description,omitempty"`
}

// Annotation is the derived fit of one posting against a candidate's skills.
type Annotation struct {
	JobID           string   `json:"jobId"`
	MatchPercentage int      `json:"matchPercentage"`
	MatchedSkills   []string `json:"matchedSkills"`
}

// Annotated pairs a posting with its match annotation. Match is nil
// when no candidate skills are known.
type Annotated struct {
	Posting
	Match *Annotation `json:"match,omitempty"`
}

// Resume is a stored resume reference on a candidate profile.
type Resume struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Education is one education entry.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
}

// Experience is one work-history entry.
type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
}

// Profile is the candidate profile returned by fetchProfile.
type Profile struct {
	Skills      []string     `json:"skills"`
	Resumes     []Resume     `json:"resumes"`
	PhoneNumber string       `json:"phoneNumber"`
	Education   []Education  `json:"education"`
	Experience  []Experience `json:"experience"`
}

// DefaultResume returns the resume flagged default, else the first one.
func (p Profile) DefaultResume() (Resume, bool) {
	for _, r := range p.Resumes {
		if r.IsDefault {
			return r, true
		}
	}
	if len(p.Resumes) > 0 {
		return p.Resumes[0], true
	}
	return Resume{}, false
}
