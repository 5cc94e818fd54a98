package adapters

import (
	"context"
	"net/http"
	"net/url"

	catalogclient "zac/internal/catalog/client"
	"zac/internal/zaak/models"
)

// DecisionClient asks the decision registry whether a case has a decision.
type DecisionClient struct {
	api *apiClient
}

func NewDecisionClient(baseURL string, session *catalogclient.TokenSession, opts ...Option) (*DecisionClient, error) {
	api, err := newAPIClient("decisions", baseURL, session, opts...)
	if err != nil {
		return nil, err
	}
	return &DecisionClient{api: api}, nil
}

type decisionPage struct {
	Count int `json:"count"`
}

func (c *DecisionClient) HasAttachedDecision(ctx context.Context, zaak *models.Case) (bool, error) {
	var p decisionPage
	target := c.api.endpoint(url.Values{"zaak": {zaak.ID.String()}}, "besluiten")
	if err := c.api.do(ctx, http.MethodGet, target, nil, &p); err != nil {
		return false, err
	}
	return p.Count > 0, nil
}

// NoDecisions is used when no decision registry is configured.
type NoDecisions struct{}

func (NoDecisions) HasAttachedDecision(context.Context, *models.Case) (bool, error) {
	return false, nil
}
