// Package triage turns scanned page candidates into scored, persisted
// listings: normalize, de-duplicate, fetch, score, save. Per-candidate
// failures degrade that one listing; they never fail the batch.
package triage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobsift/internal/fetch"
	"jobsift/internal/logging"
	"jobsift/internal/model"
	"jobsift/internal/score"
	"jobsift/internal/store"
)

// Candidate is one raw listing produced by the page scanner.
type Candidate struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

// Report summarizes a triage batch.
type Report struct {
	Saved     int      `json:"saved"`
	Refreshed int      `json:"refreshed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Degraded  int      `json:"degraded"`
	Issues    []string `json:"issues"`
}

type Service struct {
	store   *store.Store
	fetcher fetch.Fetcher
	log     *logging.Logger
}

func New(st *store.Store, fetcher fetch.Fetcher, log *logging.Logger) *Service {
	return &Service{store: st, fetcher: fetcher, log: log}
}

// Triage processes one scan batch. Candidates whose normalized URL already
// has a stored, fetched listing are skipped; stored listings missing a
// description (an earlier fetch failed) are re-fetched and re-scored instead
// of staying frozen. The rest are fetched, scored against the stored profile,
// and saved in a single transaction at the end.
func (s *Service) Triage(ctx context.Context, candidates []Candidate) (Report, error) {
	var rep Report
	if len(candidates) == 0 {
		return rep, nil
	}

	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return rep, err
	}
	if profile == nil {
		// No profile yet: score with a neutral one rather than refusing.
		profile = &model.Profile{}
	}

	now := time.Now().UTC()
	batch := make([]model.Listing, 0, len(candidates))
	for _, cand := range candidates {
		norm, err := NormalizeURL(cand.URL)
		if err != nil {
			rep.Failed++
			rep.Issues = append(rep.Issues, fmt.Sprintf("bad url %q: %v", cand.URL, err))
			continue
		}
		stored, err := s.store.GetBySourceURLs(ctx, []string{norm})
		if err != nil {
			return rep, err
		}
		if len(stored) > 0 {
			existing := stored[0]
			if strings.TrimSpace(existing.Description) != "" {
				rep.Skipped++
				continue
			}
			// An earlier fetch failure left this row without a description.
			// Retry instead of freezing it at score 0 forever.
			fetched, err := s.fetcher.FetchDescription(ctx, cand.URL)
			if err != nil {
				s.log.Warn("description refetch failed", "url", cand.URL, "err", err)
				rep.Degraded++
				continue
			}
			existing.Description = fetched.Description
			if existing.Title == "" {
				existing.Title = fetched.Title
			}
			res := score.Job(score.Input{
				Title:       existing.Title,
				Description: existing.Description,
				Location:    existing.Location,
			}, *profile)
			existing.FitScore = &res.Score
			existing.Explanations = res.Explanations
			batch = append(batch, existing)
			rep.Refreshed++
			continue
		}

		rec := model.Listing{
			ID:            ListingID(norm),
			SourceURL:     cand.URL,
			NormalizedURL: norm,
			Title:         strings.TrimSpace(cand.Title),
			Company:       strings.TrimSpace(cand.Company),
			Location:      strings.TrimSpace(cand.Location),
			Decision:      model.DecisionUnset,
			DiscoveredAt:  now,
		}

		fetched, err := s.fetcher.FetchDescription(ctx, cand.URL)
		if err != nil {
			// Retrieval failure: keep the listing with an empty description
			// so the user still sees it surfaced; the scorer's short circuit
			// marks it.
			s.log.Warn("description fetch failed", "url", cand.URL, "err", err)
			rep.Degraded++
		} else {
			rec.Description = fetched.Description
			if rec.Title == "" {
				rec.Title = fetched.Title
			}
		}

		res := score.Job(score.Input{
			Title:       rec.Title,
			Description: rec.Description,
			Location:    rec.Location,
		}, *profile)
		rec.FitScore = &res.Score
		rec.Explanations = res.Explanations

		batch = append(batch, rec)
	}

	if err := s.store.SaveMany(ctx, batch); err != nil {
		return rep, err
	}
	rep.Saved = len(batch) - rep.Refreshed
	s.log.Info("triage batch done",
		"saved", rep.Saved, "refreshed", rep.Refreshed, "skipped", rep.Skipped,
		"failed", rep.Failed, "degraded", rep.Degraded)
	return rep, nil
}

// RescoreOne re-scores a single stored listing against the current profile
// and saves it. Returns nil when the listing does not exist.
func (s *Service) RescoreOne(ctx context.Context, id string) (*model.Listing, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &model.Profile{}
	}
	res := score.Job(score.Input{
		Title:       rec.Title,
		Description: rec.Description,
		Location:    rec.Location,
	}, *profile)
	rec.FitScore = &res.Score
	rec.Explanations = res.Explanations
	if err := s.store.Save(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Rescore re-runs the scorer over every stored listing, e.g. after a profile
// change, and saves the batch in one transaction.
func (s *Service) Rescore(ctx context.Context) (int, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		profile = &model.Profile{}
	}
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	for i := range all {
		res := score.Job(score.Input{
			Title:       all[i].Title,
			Description: all[i].Description,
			Location:    all[i].Location,
		}, *profile)
		all[i].FitScore = &res.Score
		all[i].Explanations = res.Explanations
	}
	if err := s.store.SaveMany(ctx, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

// NormalizeURL canonicalizes a discovery URL: lowercase scheme and host, drop
// the query string and fragment, ensure a path. Two links to the same posting
// normalize identically, which is what the unique URL index enforces.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// ListingID derives the stable primary key from a normalized URL. Same URL,
// same id, so duplicate discoveries collapse by primary key as well as by the
// unique URL index.
func ListingID(normalizedURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(normalizedURL)).String()
}
