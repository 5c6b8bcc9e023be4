// Package directory resolves facility reference URLs against the external
// facility directory service.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/application"
	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
)

// Client looks up facilities over HTTP. It calls
// GET {baseURL}/facilities/lookup?url={referenceURL} and expects the facility
// snapshot and evaluator roster as JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a directory client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type lookupResponse struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Evaluators   []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"evaluators"`
}

// LookupFacility implements application.FacilityDirectory.
func (c *Client) LookupFacility(ctx context.Context, referenceURL string) (application.DirectoryFacility, error) {
	if c == nil || c.baseURL == "" {
		return application.DirectoryFacility{}, fmt.Errorf("directory client not configured")
	}

	endpoint := c.baseURL + "/facilities/lookup?url=" + url.QueryEscape(referenceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return application.DirectoryFacility{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return application.DirectoryFacility{}, fmt.Errorf("directory lookup: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return application.DirectoryFacility{}, fmt.Errorf("facility %s: %w", referenceURL, engine.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		c.logger.ErrorContext(ctx, "directory lookup failed", "status", resp.StatusCode, "reference_url", referenceURL)
		return application.DirectoryFacility{}, fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return application.DirectoryFacility{}, fmt.Errorf("decode lookup response: %w", err)
	}

	facility := application.DirectoryFacility{
		Name:         strings.TrimSpace(payload.Name),
		ContactName:  strings.TrimSpace(payload.ContactName),
		ContactEmail: strings.TrimSpace(payload.ContactEmail),
	}
	for _, member := range payload.Evaluators {
		facility.Evaluators = append(facility.Evaluators, application.DirectoryEvaluator{
			Name:  strings.TrimSpace(member.Name),
			Email: strings.TrimSpace(member.Email),
		})
	}
	return facility, nil
}
