// Package upstream retrieves the public border crossing listing.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"pasosd/internal/models"
	"pasosd/internal/providers"
	"pasosd/internal/structures"
)

const maxResponseBodySize = 32 << 20 // 32 MB

// FetchError reports a failed listing retrieval: transport errors,
// timeouts, non-2xx responses and undecodable payloads.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

type Fetcher interface {
	Fetch(ctx context.Context) ([]models.RemoteRecord, error)
}

type HTTPFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	timeout   time.Duration
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

func NewHTTPFetcher(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) Fetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: conf.Upstream.Timeout},
		url:       conf.Upstream.Url,
		userAgent: conf.Upstream.UserAgent,
		timeout:   conf.Upstream.Timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Fetch performs one GET against the listing. Every error is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]models.RemoteRecord, error) {
	start := time.Now()
	records, err := f.fetch(ctx)
	elapsed := time.Since(start)
	f.metrics.ObserveFetchDuration(elapsed)

	if err != nil {
		f.metrics.IncFetchFailures()
		f.logger.Errorf(providers.TypeUpstream, "Fetching %s failed after %s: %s", f.url, elapsed, err)
		return nil, err
	}
	f.logger.Infof(providers.TypeUpstream, "Fetched %d records from %s in %s", len(records), f.url, elapsed)
	return records, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context) ([]models.RemoteRecord, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{Op: "request", Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &FetchError{Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Op: "get", StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return nil, &FetchError{Op: "read", StatusCode: resp.StatusCode, Err: err}
	}
	if len(body) > maxResponseBodySize {
		return nil, &FetchError{Op: "read", StatusCode: resp.StatusCode, Err: errors.New("response body too large")}
	}

	records, err := Decode(body)
	if err != nil {
		return nil, &FetchError{Op: "decode", StatusCode: resp.StatusCode, Err: err}
	}
	return records, nil
}

// listingRecord mirrors one element of the published listing.
type listingRecord struct {
	ID                      models.OptionalID `json:"id"`
	Name                    string            `json:"nombre_paso"`
	PriorityStatus          *string           `json:"estado_prioridad"`
	Province                *string           `json:"provincia"`
	Country                 *string           `json:"pais"`
	Schedule                *string           `json:"fecha_schema"`
	ForeignMinistrySchedule *string           `json:"fecha_schema_cancilleria"`
}

// Decode parses a listing payload. The listing is a JSON array; an object
// wrapping the array under "data" is accepted as well. Elements without a
// name are dropped since they cannot be matched or displayed.
func Decode(body []byte) ([]models.RemoteRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty payload")
	}

	var raw []listingRecord
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
	case '{':
		var envelope struct {
			Data *[]listingRecord `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		if envelope.Data == nil {
			return nil, errors.New(`object payload without "data" array`)
		}
		raw = *envelope.Data
	default:
		return nil, fmt.Errorf("unexpected payload starting with %q", body[0])
	}

	records := make([]models.RemoteRecord, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		records = append(records, models.RemoteRecord{
			ID:                          r.ID.Ptr(),
			Name:                        name,
			PriorityStatus:              r.PriorityStatus,
			Province:                    r.Province,
			NeighborCountry:             r.Country,
			ScheduleExpressionPrimary:   r.Schedule,
			ScheduleExpressionSecondary: r.ForeignMinistrySchedule,
		})
	}
	return records, nil
}
