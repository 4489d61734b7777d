// Package rapidapi searches full LinkedIn profiles through the Fresh
// LinkedIn Profile Data API on RapidAPI.
package rapidapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/search"
)

const (
	defaultHost = "fresh-linkedin-profile-data.p.rapidapi.com"
	searchPath  = "/google-full-profiles"
	anyName     = "[A-Za-Z]"
)

type Config struct {
	APIKey  string
	Host    string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	host    string
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("RAPIDAPI_KEY is required")
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		host:    cfg.Host,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type searchRequest struct {
	Name     string `json:"name"`
	JobTitle string `json:"job_title"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
}

type apiProfile struct {
	FullName        string          `json:"full_name"`
	Headline        string          `json:"headline"`
	LinkedInURL     string          `json:"linkedin_url"`
	Location        string          `json:"location"`
	About           string          `json:"about"`
	Skills          json.RawMessage `json:"skills"`
	Connections     int             `json:"connections"`
	ProfileImage    string          `json:"profile_image"`
	CurrentCompany  string          `json:"current_company"`
	CurrentPosition string          `json:"current_position"`
	Experiences     []struct {
		Title       string `json:"title"`
		Company     string `json:"company"`
		DateRange   string `json:"date_range"`
		Duration    string `json:"duration"`
		Location    string `json:"location"`
		Description string `json:"description"`
	} `json:"experiences"`
	Educations []struct {
		School       string `json:"school"`
		Degree       string `json:"degree"`
		FieldOfStudy string `json:"field_of_study"`
		DateRange    string `json:"date_range"`
	} `json:"educations"`
}

// Search implements search.Provider.
func (c *Client) Search(ctx context.Context, q search.Query) ([]entity.CandidateProfile, error) {
	body, err := json.Marshal(searchRequest{
		Name:     anyName,
		JobTitle: q.Keywords.JobTitle,
		Location: q.Keywords.Location,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &entity.TransientError{Err: fmt.Errorf("rapidapi: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &entity.TransientError{Err: fmt.Errorf("rapidapi status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rapidapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Data []apiProfile `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rapidapi decode: %w", err)
	}

	profiles := make([]entity.CandidateProfile, 0, len(out.Data))
	for _, p := range out.Data {
		profiles = append(profiles, p.toProfile())
	}
	return profiles, nil
}

func (p apiProfile) toProfile() entity.CandidateProfile {
	name := strings.TrimSpace(p.FullName)
	if name == "" {
		name = "Unknown"
	}
	out := entity.CandidateProfile{
		Name:            name,
		Headline:        strings.TrimSpace(p.Headline),
		Location:        strings.TrimSpace(p.Location),
		LinkedInURL:     strings.TrimSpace(p.LinkedInURL),
		Summary:         strings.TrimSpace(p.About),
		CurrentCompany:  strings.TrimSpace(p.CurrentCompany),
		CurrentPosition: strings.TrimSpace(p.CurrentPosition),
		ProfileImage:    p.ProfileImage,
		Connections:     p.Connections,
		Skills:          decodeSkills(p.Skills),
	}
	for _, e := range p.Experiences {
		out.Experience = append(out.Experience, entity.ExperienceEntry{
			Title:       e.Title,
			Company:     e.Company,
			DateRange:   e.DateRange,
			Duration:    e.Duration,
			Location:    e.Location,
			Description: e.Description,
		})
	}
	for _, e := range p.Educations {
		out.Education = append(out.Education, entity.EducationEntry{
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			DateRange:    e.DateRange,
		})
	}
	return out
}

// decodeSkills accepts either a JSON array or a single delimited string.
func decodeSkills(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compact(list)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return compact(strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' || r == ';' }))
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
