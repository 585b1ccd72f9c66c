// internal/bridge/guardian.go
package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// AttestationService returns the guardian-signed message for a sequence.
// The bytes are opaque to this module.
type AttestationService interface {
	SignedVAA(ctx context.Context, chain ChainID, emitterHex string, sequence uint64) ([]byte, error)
}

var _ AttestationService = (*GuardianClient)(nil)

// errVAAPending: guardians have not signed yet; retried until the policy ends.
var errVAAPending = errors.New("signed message not available yet")

// DefaultGuardianPolicy polls for about five minutes, as guardians need
// finality on Solana before they sign.
func DefaultGuardianPolicy() types.RetryPolicy {
	return types.RetryPolicy{
		Interval:    time.Second,
		MaxInterval: 15 * time.Second,
		MaxElapsed:  5 * time.Minute,
		Exponential: true,
	}
}

// GuardianClient fetches signed messages from guardian REST hosts, rotating
// to the next host on every attempt.
type GuardianClient struct {
	hosts  []string
	next   uint32
	client *http.Client
	policy types.RetryPolicy
	logger *zap.Logger
}

func NewGuardianClient(hosts []string, policy types.RetryPolicy, httpClient *http.Client, logger *zap.Logger) (*GuardianClient, error) {
	if len(hosts) == 0 {
		return nil, errors.New("at least one guardian host is required")
	}
	trimmed := make([]string, len(hosts))
	for i, h := range hosts {
		trimmed[i] = strings.TrimRight(h, "/")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if policy == (types.RetryPolicy{}) {
		policy = DefaultGuardianPolicy()
	}
	return &GuardianClient{
		hosts:  trimmed,
		client: httpClient,
		policy: policy,
		logger: logger.Named("guardian"),
	}, nil
}

func (g *GuardianClient) host() string {
	n := atomic.AddUint32(&g.next, 1) - 1
	return g.hosts[int(n)%len(g.hosts)]
}

type signedVAAResponse struct {
	VAABytes string `json:"vaaBytes"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
}

// SignedVAA polls until a host returns the signed message or the policy is
// exhausted (*types.TimeoutError).
func (g *GuardianClient) SignedVAA(ctx context.Context, chain ChainID, emitterHex string, sequence uint64) ([]byte, error) {
	op := fmt.Sprintf("signed message %d/%s/%d", chain, emitterHex, sequence)
	return types.Retry(ctx, op, g.policy, func(ctx context.Context) ([]byte, error) {
		host := g.host()
		vaa, err := g.fetch(ctx, host, chain, emitterHex, sequence)
		if err != nil {
			g.logger.Debug("Signed message not fetched",
				zap.String("host", host),
				zap.Uint64("sequence", sequence),
				zap.Error(err))
		}
		return vaa, err
	})
}

func (g *GuardianClient) fetch(ctx context.Context, host string, chain ChainID, emitterHex string, sequence uint64) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/signed_vaa/%d/%s/%d", host, uint16(chain), emitterHex, sequence)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errVAAPending
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out signedVAAResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.VAABytes == "" {
		return nil, errVAAPending
	}
	vaa, err := base64.StdEncoding.DecodeString(out.VAABytes)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode signed message: %w", err))
	}
	return vaa, nil
}
