package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pders01/fragments/internal/config"
	"github.com/pders01/fragments/internal/debuglog"
	"github.com/pders01/fragments/internal/validation"
)

// maxBodySize bounds how much of a response is read before decoding.
const maxBodySize = 8 << 20

// Fetcher is the read API of the news backend.
type Fetcher interface {
	FetchLatest(ctx context.Context, tag *string, limit, offset int) (*Page, error)
	FetchByID(ctx context.Context, id string) (*Card, error)
	FetchTags(ctx context.Context) ([]string, error)
}

// Client talks to the news REST API. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	baseURL   *url.URL
	client    *http.Client
	userAgent string
	validate  *validator.Validate
	log       *debuglog.FieldLogger
}

var _ Fetcher = (*Client)(nil)

func NewClient(cfg *config.Config) (*Client, error) {
	v := validation.NewAPIURLValidator()
	v.AllowLocalhost = cfg.API.AllowLocal
	v.AllowPrivateIPs = cfg.API.AllowLocal

	normalized, err := v.ValidateAndNormalize(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w: %w", ErrInvalidRequest, err)
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("api base url: %w: %w", ErrInvalidRequest, err)
	}

	return &Client{
		baseURL:   base,
		client:    &http.Client{Timeout: cfg.API.HTTPTimeout},
		userAgent: cfg.API.UserAgent,
		validate:  validator.New(),
		log:       debuglog.Component("news"),
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchLatest returns one page of the newest cards, optionally restricted to
// a single tag.
func (c *Client) FetchLatest(ctx context.Context, tag *string, limit, offset int) (*Page, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrInvalidRequest)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset %d: %w", offset, ErrInvalidRequest)
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if tag != nil && strings.TrimSpace(*tag) != "" {
		q.Set("tag", strings.TrimSpace(*tag))
	}

	var page Page
	if err := c.getJSON(ctx, c.endpoint(q, "news", "latest"), &page); err != nil {
		return nil, err
	}
	c.log.Debugf("latest: %d cards (total %d, offset %d)", len(page.Cards), page.Meta.Total, offset)
	return &page, nil
}

// FetchByID returns a single card. A 404 is reported as ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id string) (*Card, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("empty card id: %w", ErrInvalidRequest)
	}

	var card Card
	err := c.getJSON(ctx, c.endpoint(nil, "news", "card", id), &card)
	if StatusCode(err) == http.StatusNotFound {
		return nil, fmt.Errorf("card %q: %w: %w", id, ErrNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// FetchTags returns the tag names known to the server.
func (c *Client) FetchTags(ctx context.Context) ([]string, error) {
	var resp tagsResponse
	if err := c.getJSON(ctx, c.endpoint(nil, "news", "tags"), &resp); err != nil {
		return nil, err
	}
	return resp.Tags, nil
}

func (c *Client) endpoint(q url.Values, segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w: %w", ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		c.log.With("path", req.URL.Path).Warnf("status %d", resp.StatusCode)
		return &ServerError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := c.validate.Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("validating response: %w", err)
		}
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
