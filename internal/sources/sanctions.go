package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/upstream"
)

const sanctionsCategory = "sanctions"

// Sanctions screens addresses against the Chainalysis public sanctions API.
type Sanctions struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cfg     Config
}

// NewSanctions creates the sanctions adapter. An empty apiKey makes every
// lookup Unavailable.
func NewSanctions(apiKey, baseURL string, client *http.Client, cfg Config) *Sanctions {
	return &Sanctions{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: client, cfg: cfg}
}

type identification struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type sanctionsResponse struct {
	Identifications []identification `json:"identifications"`
}

// Fetch looks up address. Only the first identification in the sanctions
// category counts as a match; other categories are ignored.
func (s *Sanctions) Fetch(ctx context.Context, address string) signal.Result[signal.SanctionsMatch] {
	if s == nil || s.apiKey == "" {
		return unavailable[signal.SanctionsMatch](signal.SourceSanctions)
	}
	return fetch(ctx, s.cfg, signal.SourceSanctions, func(ctx context.Context) (signal.SanctionsMatch, error) {
		var resp sanctionsResponse
		err := upstream.DoJSON(ctx, s.client, upstream.Request{
			URL:     s.baseURL + "/" + url.PathEscape(address),
			Headers: map[string]string{"X-API-KEY": s.apiKey},
		}, &resp)
		if err != nil {
			return signal.SanctionsMatch{}, err
		}
		return match(resp.Identifications), nil
	})
}

func match(ids []identification) signal.SanctionsMatch {
	for _, id := range ids {
		if strings.EqualFold(id.Category, sanctionsCategory) {
			return signal.SanctionsMatch{
				Matched: true,
				Detail: &signal.SanctionDetail{
					Category:    id.Category,
					Name:        id.Name,
					Description: id.Description,
					URL:         id.URL,
				},
			}
		}
	}
	return signal.SanctionsMatch{}
}
