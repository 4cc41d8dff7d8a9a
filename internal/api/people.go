package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"activities/internal/domain"
)

// PrisonerSearchAPI looks prisoners up by number or name.
type PrisonerSearchAPI struct {
	*Client
}

func NewPrisonerSearchAPI(c *Client) *PrisonerSearchAPI { return &PrisonerSearchAPI{Client: c} }

// Prisoner fetches a prisoner by prison number.
func (p *PrisonerSearchAPI) Prisoner(ctx context.Context, prisonerNumber string) (domain.Prisoner, error) {
	var resp domain.Prisoner
	err := p.do(ctx, http.MethodGet, fmt.Sprintf("prisoner/%s", url.PathEscape(prisonerNumber)), nil, &resp)
	return resp, err
}

// Search finds prisoners in a prison whose name or number matches term.
func (p *PrisonerSearchAPI) Search(ctx context.Context, prisonCode, term string) ([]domain.Prisoner, error) {
	var resp struct {
		Content []domain.Prisoner `json:"content"`
	}
	endpoint := fmt.Sprintf("prison/%s/prisoners?term=%s&size=50", url.PathEscape(prisonCode), url.QueryEscape(term))
	err := p.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Content, err
}

// IncentivesAPI lists incentive levels.
type IncentivesAPI struct {
	*Client
}

func NewIncentivesAPI(c *Client) *IncentivesAPI { return &IncentivesAPI{Client: c} }

// Levels returns the active incentive levels of a prison.
func (i *IncentivesAPI) Levels(ctx context.Context, prisonCode string) ([]domain.IncentiveLevel, error) {
	var all []domain.IncentiveLevel
	if err := i.do(ctx, http.MethodGet, fmt.Sprintf("incentive/prison-levels/%s", url.PathEscape(prisonCode)), nil, &all); err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

// PrisonAPI provides internal locations.
type PrisonAPI struct {
	*Client
}

func NewPrisonAPI(c *Client) *PrisonAPI { return &PrisonAPI{Client: c} }

// Locations lists the internal locations of a prison usable for an event type
// ("PROG" for activities, "APP" for appointments).
func (p *PrisonAPI) Locations(ctx context.Context, prisonCode, eventType string) ([]domain.Location, error) {
	var resp []struct {
		LocationID     int    `json:"locationId"`
		LocationPrefix string `json:"locationPrefix"`
		Description    string `json:"description"`
		UserDesc       string `json:"userDescription"`
	}
	endpoint := fmt.Sprintf("api/agencies/%s/eventLocations?eventType=%s", url.PathEscape(prisonCode), url.QueryEscape(eventType))
	if err := p.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Location, 0, len(resp))
	for _, l := range resp {
		desc := l.UserDesc
		if desc == "" {
			desc = l.Description
		}
		out = append(out, domain.Location{ID: l.LocationID, Code: l.LocationPrefix, Description: desc})
	}
	return out, nil
}
