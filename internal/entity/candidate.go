package entity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ExperienceEntry struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	DateRange   string `json:"date_range,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationEntry struct {
	School       string `json:"school,omitempty"`
	Degree       string `json:"degree,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	DateRange    string `json:"date_range,omitempty"`
}

// CandidateProfile is one sourced profile. Search produces the stub,
// enrichment fills in the optional fields.
type CandidateProfile struct {
	Name            string            `json:"name"`
	Headline        string            `json:"headline,omitempty"`
	Location        string            `json:"location,omitempty"`
	LinkedInURL     string            `json:"linkedin_url,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	CurrentCompany  string            `json:"current_company,omitempty"`
	CurrentPosition string            `json:"current_position,omitempty"`
	ProfileImage    string            `json:"profile_image,omitempty"`
	Website         string            `json:"website,omitempty"`
	Connections     int               `json:"connections,omitempty"`
	Skills          []string          `json:"skills,omitempty"`
	Experience      []ExperienceEntry `json:"experience,omitempty"`
	Education       []EducationEntry  `json:"education,omitempty"`
	GitHub          *GitHubSummary    `json:"github_data,omitempty"`
}

func (p CandidateProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.LinkedInURL) == "" {
		return errors.New("candidate needs a name or a profile url")
	}
	if p.LinkedInURL != "" {
		u, err := url.Parse(p.LinkedInURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid profile url %q", p.LinkedInURL)
		}
	}
	return nil
}

// Identity is the stable key used by the enrichment cache.
func (p CandidateProfile) Identity() string {
	if u := strings.TrimSpace(p.LinkedInURL); u != "" {
		return "url:" + strings.ToLower(strings.TrimSuffix(u, "/"))
	}
	return "name:" + strings.ToLower(strings.Join(strings.Fields(p.Name), " "))
}

// Merge folds secondary-source data into the profile. Skills are unioned in
// order; scalar fields are only filled when the profile has none.
func (p CandidateProfile) Merge(aux AuxiliaryData) CandidateProfile {
	out := p
	out.Skills = unionFold(p.Skills, aux.Skills)
	if out.Location == "" {
		out.Location = aux.Location
	}
	if out.CurrentCompany == "" {
		out.CurrentCompany = aux.Company
	}
	if out.Summary == "" {
		out.Summary = aux.Bio
	}
	if out.Website == "" {
		out.Website = aux.Website
	}
	if aux.GitHub != nil {
		gh := *aux.GitHub
		out.GitHub = &gh
	}
	return out
}

func unionFold(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			k := strings.ToLower(s)
			if s == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// AuxiliaryData is what a secondary source knows about an identity.
type AuxiliaryData struct {
	Source    string         `json:"source"`
	Skills    []string       `json:"skills,omitempty"`
	Bio       string         `json:"bio,omitempty"`
	Location  string         `json:"location,omitempty"`
	Company   string         `json:"company,omitempty"`
	Website   string         `json:"website,omitempty"`
	GitHub    *GitHubSummary `json:"github,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

type GitHubSummary struct {
	Username        string       `json:"username"`
	ProfileURL      string       `json:"profile_url"`
	PublicRepos     int          `json:"public_repos"`
	Followers       int          `json:"followers"`
	TopLanguages    []string     `json:"top_languages,omitempty"`
	TopRepositories []Repository `json:"top_repositories,omitempty"`
}

type Repository struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	URL         string `json:"url"`
	Stars       int    `json:"stars"`
}

// SearchResult is the output of the Search stage: candidates in the order the
// provider produced them.
type SearchResult struct {
	Query      string
	Candidates []CandidateProfile
	// AIKeywordsUsed reports whether the query came from model-extracted
	// keywords rather than the pattern fallback.
	AIKeywordsUsed bool
}
