package usdm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/couchcryptid/drought-map/internal/config"
	"github.com/couchcryptid/drought-map/internal/domain"
	"github.com/couchcryptid/drought-map/internal/observability"
)

// Client implements mapper.DataPortal against the public USDM portal.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	boundaryURL string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates a USDM portal client.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL:     cfg.BaseURL,
		boundaryURL: cfg.BoundaryURL,
		logger:      logger,
		metrics:     metrics,
	}
}

// totalDocument is the shape of /tabular/total.xml: a root element holding
// one <week> child per published release, newest first.
type totalDocument struct {
	Weeks []struct {
		Date string `xml:"date,attr"`
	} `xml:"week"`
}

// LatestDate fetches the metadata index and returns the first listed week.
// The portal lists weeks newest-first; that ordering is trusted.
func (c *Client) LatestDate(ctx context.Context) (domain.DatasetDate, error) {
	u := c.baseURL + "/tabular/total.xml"

	body, err := c.fetch(ctx, u, "metadata")
	if err != nil {
		return domain.DatasetDate{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return domain.DatasetDate{}, &domain.FetchError{URL: u, Err: fmt.Errorf("read metadata: %w", err)}
	}

	var doc totalDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return domain.DatasetDate{}, &domain.FetchError{URL: u, Err: fmt.Errorf("parse metadata: %w", err)}
	}
	if len(doc.Weeks) == 0 {
		return domain.DatasetDate{}, &domain.FetchError{URL: u, Err: errors.New("no week elements in metadata document")}
	}

	date, err := domain.ParseDatasetDate(doc.Weeks[0].Date)
	if err != nil {
		return domain.DatasetDate{}, &domain.FetchError{URL: u, Err: err}
	}

	c.logger.Debug("resolved latest dataset", "date", date.String())
	return date, nil
}

// DroughtArchive streams the weekly M-series archive for a date. The caller
// owns the returned body.
func (c *Client) DroughtArchive(ctx context.Context, date domain.DatasetDate) (io.ReadCloser, error) {
	u := c.baseURL + "/data/shapefiles_m/" + date.ArchiveName()
	return c.fetch(ctx, u, "drought")
}

// BoundaryArchive streams the national boundary reference archive.
func (c *Client) BoundaryArchive(ctx context.Context) (io.ReadCloser, error) {
	return c.fetch(ctx, c.boundaryURL, "boundary")
}

// BoundaryName returns the cache filename for the boundary archive, taken
// from the remote basename.
func (c *Client) BoundaryName() string {
	return path.Base(c.boundaryURL)
}

func (c *Client) fetch(ctx context.Context, fullURL, kind string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: fullURL, Err: fmt.Errorf("create request: %w", err)}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.PortalRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.PortalRequests.WithLabelValues(kind, "error").Inc()
		return nil, &domain.FetchError{URL: fullURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		c.metrics.PortalRequests.WithLabelValues(kind, "error").Inc()
		return nil, &domain.FetchError{
			URL:    fullURL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", snippet),
		}
	}

	c.metrics.PortalRequests.WithLabelValues(kind, "success").Inc()
	c.logger.Debug("portal fetch", "kind", kind, "url", fullURL, "duration", time.Since(start))
	return resp.Body, nil
}
