package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/catalog-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client fetches listing pages and item details from the catalog API.
// It satisfies pagination.PageFetcher and enrichment.DetailFetcher.
type Client struct {
	pages    *client.Client
	details  *client.Client
	pageSize int
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// NewClient wraps an HTTP transport. Page requests are issued exactly once per
// call behind their own circuit breaker; detail requests use the transport's
// retry policy and breaker.
func NewClient(transport *client.Client, opts ...Option) *Client {
	c := &Client{
		pages:    transport.WithRetry(client.NoRetry()).WithBreaker("catalog-pages"),
		details:  transport,
		pageSize: DefaultPageSize,
		logger:   log.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the number of records requested per page.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage fetches the page at the zero-based cursor.
func (c *Client) FetchPage(ctx context.Context, cursor int) (Page, error) {
	if cursor < 0 {
		return Page{}, fmt.Errorf("invalid cursor %d", cursor)
	}

	query := url.Values{}
	query.Set("offset", strconv.Itoa(cursor*c.pageSize))
	query.Set("limit", strconv.Itoa(c.pageSize))

	var payload listResponse
	if err := c.pages.GetJSON(ctx, client.Request{Route: "page", Path: "/pokemon", Query: query}, &payload); err != nil {
		return Page{}, fmt.Errorf("fetch page %d: %w", cursor, err)
	}

	c.logger.Debug().
		Int("cursor", cursor).
		Int("records", len(payload.Results)).
		Bool("has_more", payload.hasNext()).
		Msg("Fetched catalog page")

	return Page{Records: payload.Results, HasMore: payload.hasNext()}, nil
}

// FetchDetail looks up an item's detail. It never fails: any transport or
// decode error is logged and the empty sentinel is returned instead.
func (c *Client) FetchDetail(ctx context.Context, identifier string) Detail {
	d, err := c.fetchDetail(ctx, identifier)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("identifier", identifier).
			Str("error_class", string(client.ClassOf(err))).
			Msg("Detail lookup failed, using empty result")
		return EmptyDetail(identifier)
	}
	return d
}

func (c *Client) fetchDetail(ctx context.Context, identifier string) (Detail, error) {
	if identifier == "" {
		return Detail{}, fmt.Errorf("empty identifier")
	}

	var payload detailResponse
	req := client.Request{Route: "detail", Path: "/pokemon/" + url.PathEscape(identifier)}
	if err := c.details.GetJSON(ctx, req, &payload); err != nil {
		return Detail{}, fmt.Errorf("fetch detail %s: %w", identifier, err)
	}
	return payload.toDetail(identifier), nil
}
