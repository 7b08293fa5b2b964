// Package airtable fetches audit records from the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// DefaultBaseURL is the Airtable REST API v0 root.
const DefaultBaseURL = "https://api.airtable.com/v0"

// ErrNotFound is returned by GetByID when the record does not exist.
var ErrNotFound = errors.New("record not found")

// APIError is a non-2xx response from Airtable.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("airtable API error: %d %s", e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Config holds the connection settings. All of APIKey, BaseID and Table are
// required.
type Config struct {
	APIKey  string
	BaseID  string
	Table   string
	BaseURL string
}

// Validate reports the first missing required setting by its environment
// variable name.
func (c Config) Validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("AIRTABLE_API_KEY is required; set it in the environment or a .env file")
	case c.BaseID == "":
		return errors.New("AIRTABLE_BASE_ID is required; set it in the environment or a .env file")
	case c.Table == "":
		return errors.New("AIRTABLE_TABLE_NAME is required; set it in the environment or a .env file")
	}
	return nil
}

// RawRecord is a record as returned by the API.
type RawRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type listResponse struct {
	Records []RawRecord `json:"records"`
	Offset  string      `json:"offset,omitempty"`
}

// Client talks to one Airtable table.
type Client struct {
	apiKey   string
	tableURL string
	client   *http.Client
	logger   *slog.Logger
}

// New creates a client after validating the configuration.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		apiKey:   cfg.APIKey,
		tableURL: base + "/" + url.PathEscape(cfg.BaseID) + "/" + url.PathEscape(cfg.Table),
		client:   &http.Client{},
		logger:   logger.With("component", "airtable"),
	}, nil
}

// ListAll fetches every record in the table, following pagination.
func (c *Client) ListAll(ctx context.Context) ([]RawRecord, error) {
	records, err := c.list(ctx, "")
	if err != nil {
		return nil, err
	}
	c.logger.Info("fetched records", "total", len(records))
	return records, nil
}

// List fetches every record matching an Airtable formula.
func (c *Client) List(ctx context.Context, filterFormula string) ([]RawRecord, error) {
	records, err := c.list(ctx, filterFormula)
	if err != nil {
		return nil, err
	}
	c.logger.Info("fetched filtered records", "total", len(records), "filter", filterFormula)
	return records, nil
}

func (c *Client) list(ctx context.Context, filterFormula string) ([]RawRecord, error) {
	var all []RawRecord
	offset := ""
	for {
		params := defaultParams()
		if filterFormula != "" {
			params.Set("filterByFormula", filterFormula)
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		var page listResponse
		if err := c.get(ctx, "?"+params.Encode(), &page); err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		c.logger.Debug("fetched page", "records", len(page.Records), "total", len(all))

		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

// GetByID fetches one record. It returns ErrNotFound when Airtable reports
// the record as absent.
func (c *Client) GetByID(ctx context.Context, id string) (*RawRecord, error) {
	var rec RawRecord
	err := c.get(ctx, "/"+url.PathEscape(id)+"?"+defaultParams().Encode(), &rec)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.logger.Info("fetched record", "id", id)
	return &rec, nil
}

// ExtractFields projects raw API records onto normalized audit records.
func ExtractFields(records []RawRecord) []audit.Record {
	out := make([]audit.Record, len(records))
	for i, r := range records {
		out[i] = audit.Normalize(r.ID, r.Fields)
	}
	return out
}

func (c *Client) get(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("airtable request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding airtable response: %w", err)
	}
	return nil
}

func defaultParams() url.Values {
	return url.Values{
		"timeZone":   {"UTC"},
		"userLocale": {"en"},
	}
}
