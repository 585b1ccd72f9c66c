// internal/blockchain/solbc/cache.go
package solbc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/blockchain"
)

// DefaultCacheURL serves pre-fetched getProgramAccounts results by name.
const DefaultCacheURL = "https://api.raydium.io/cache/rpc"

// ProgramAccountsCache reads program accounts from a cache endpoint and
// falls back to a live getProgramAccounts call on any failure.
type ProgramAccountsCache struct {
	baseURL    string
	httpClient *http.Client
	client     blockchain.Client
	logger     *zap.Logger
}

func NewProgramAccountsCache(client blockchain.Client, baseURL string, httpClient *http.Client, logger *zap.Logger) *ProgramAccountsCache {
	if baseURL == "" {
		baseURL = DefaultCacheURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ProgramAccountsCache{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		client:     client,
		logger:     logger.Named("program-accounts-cache"),
	}
}

type cacheResponse struct {
	Result rpc.GetProgramAccountsResult `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Get returns the accounts cached under name, or the live program accounts
// of programID filtered by opts. Cache errors are logged, never returned.
func (c *ProgramAccountsCache) Get(ctx context.Context, name string, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if name != "" {
		accounts, err := c.fetch(ctx, name)
		if err == nil {
			return accounts, nil
		}
		c.logger.Warn("Program accounts cache unavailable, falling back to RPC",
			zap.String("name", name),
			zap.String("program_id", programID.String()),
			zap.Error(err))
	}
	return c.client.GetProgramAccounts(ctx, programID, opts)
}

func (c *ProgramAccountsCache) fetch(ctx context.Context, name string) (rpc.GetProgramAccountsResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cache: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cache returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache body: %w", err)
	}

	var out cacheResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cache body: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("cache error: %s", out.Error.Message)
	}
	return out.Result, nil
}
