// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// Основные константы
const (
	DefaultAttempts       = 2
	DefaultRetryDelay     = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// Options настраивают переключение узлов и ограничение частоты запросов.
type Options struct {
	// RequestsPerSecond == 0 отключает лимитер.
	RequestsPerSecond float64
	Burst             int
	Attempts          int
	RetryDelay        time.Duration
	RequestTimeout    time.Duration
	// Latency, если задан, получает длительность каждого запроса к узлу.
	Latency func(method, endpoint string, d time.Duration)
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	return o
}

// RPCClient распределяет запросы по списку узлов по кругу.
type RPCClient struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.Mutex
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

// NewClient создает новый RPC клиент
func NewClient(urls []string, opts Options, logger *zap.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	opts = opts.withDefaults()

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	c := &RPCClient{
		nodes:  nodes,
		urls:   urls,
		opts:   opts,
		logger: logger.Named("rpc-client"),
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	return c, nil
}

// URLs returns the configured node endpoints.
func (c *RPCClient) URLs() []string {
	out := make([]string, len(c.urls))
	copy(out, c.urls)
	return out
}

func (c *RPCClient) next() (*solanarpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, url := c.nodes[c.current], c.urls[c.current]
	c.current = (c.current + 1) % len(c.nodes)
	return node, url
}

// isFinal reports errors that another node would answer the same way.
func isFinal(err error) bool {
	return errors.Is(err, solanarpc.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		types.IsPermanent(err)
}

// ExecuteWithRetry выполняет RPC-запрос с автоматическим переключением узлов при ошибке.
func (c *RPCClient) ExecuteWithRetry(ctx context.Context, method string, operation func(context.Context, *solanarpc.Client) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < c.opts.Attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(timeoutCtx); err != nil {
				return NewError(fmt.Errorf("%w: %v", ErrRateLimit, err), "", method)
			}
		}

		node, url := c.next()
		start := time.Now()
		err := operation(timeoutCtx, node)
		if c.opts.Latency != nil {
			c.opts.Latency(method, url, time.Since(start))
		}
		if err == nil {
			return nil
		}
		if isFinal(err) {
			return err
		}
		lastErr = NewError(err, url, method)

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < c.opts.Attempts-1 {
			select {
			case <-timeoutCtx.Done():
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("%w: %v", ErrTimeout, lastErr)
			case <-time.After(c.opts.RetryDelay):
			}
		}
	}

	c.logger.Warn("All RPC attempts failed", zap.String("method", method), zap.Error(lastErr))
	return lastErr
}
