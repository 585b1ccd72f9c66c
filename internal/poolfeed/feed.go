// internal/poolfeed/feed.go
package poolfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/swap-router/internal/types"
	"github.com/rovshanmuradov/swap-router/internal/venue"
)

const (
	DefaultRaydiumURL = "https://api.raydium.io/v2/sdk/liquidity/mainnet.json"
	DefaultSaberURL   = "https://registry.saber.so/data/pools-info.mainnet.json"

	defaultRequestTimeout = 15 * time.Second
)

// Options configure the discovery feeds. Empty URLs disable a feed.
type Options struct {
	RaydiumURL string
	SaberURL   string
	Retry      types.RetryPolicy
	HTTPClient *http.Client
}

// Feed downloads pool lists published by the venues.
type Feed struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Feed {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if opts.Retry == (types.RetryPolicy{}) {
		opts.Retry = types.RetryPolicy{
			Interval:    time.Second,
			MaxInterval: 4 * time.Second,
			MaxAttempts: 4,
			Exponential: true,
		}
	}
	return &Feed{opts: opts, client: client, logger: logger.Named("poolfeed")}
}

// Venues fetches every enabled feed concurrently.
func (f *Feed) Venues(ctx context.Context) ([]venue.Venue, error) {
	var (
		raydium []*venue.RaydiumPool
		saber   []*venue.SaberPool
	)
	g, gctx := errgroup.WithContext(ctx)
	if f.opts.RaydiumURL != "" {
		g.Go(func() error {
			var err error
			raydium, err = f.Raydium(gctx)
			return err
		})
	}
	if f.opts.SaberURL != "" {
		g.Go(func() error {
			var err error
			saber, err = f.Saber(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]venue.Venue, 0, len(raydium)+len(saber))
	seen := make(map[string]struct{}, cap(out))
	add := func(v venue.Venue) {
		if _, dup := seen[v.Name()]; dup {
			f.logger.Debug("duplicate pool in feed", zap.String("name", v.Name()))
			return
		}
		seen[v.Name()] = struct{}{}
		out = append(out, v)
	}
	for _, p := range raydium {
		add(p)
	}
	for _, p := range saber {
		add(p)
	}
	return out, nil
}

// get downloads url and decodes the body into out, retrying transport
// failures and 5xx answers.
func (f *Feed) get(ctx context.Context, url string, out interface{}) error {
	_, err := types.Retry(ctx, "fetch "+url, f.opts.Retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.fetchOnce(ctx, url, out)
	})
	return err
}

func (f *Feed) fetchOnce(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	f.logger.Debug("feed request completed",
		zap.String("url", url),
		zap.Duration("duration", time.Since(start)),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
