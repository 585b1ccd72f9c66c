// internal/poolfeed/saber.go
package poolfeed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/swap-router/internal/venue"
)

type saberList struct {
	Pools []saberEntry `json:"pools"`
}

type saberEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Swap struct {
		Config struct {
			SwapAccount   string `json:"swapAccount"`
			Authority     string `json:"authority"`
			SwapProgramID string `json:"swapProgramID"`
		} `json:"config"`
		State struct {
			TokenA saberToken `json:"tokenA"`
			TokenB saberToken `json:"tokenB"`
		} `json:"state"`
	} `json:"swap"`
}

type saberToken struct {
	Mint            string `json:"mint"`
	Reserve         string `json:"reserve"`
	AdminFeeAccount string `json:"adminFeeAccount"`
}

// Saber returns the pools of the Saber registry.
func (f *Feed) Saber(ctx context.Context) ([]*venue.SaberPool, error) {
	var list saberList
	if err := f.get(ctx, f.opts.SaberURL, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch saber pools: %w", err)
	}

	pools := make([]*venue.SaberPool, 0, len(list.Pools))
	for _, e := range list.Pools {
		p, err := e.toPool()
		if err != nil {
			f.logger.Debug("skipping saber pool", zap.String("id", e.ID), zap.Error(err))
			continue
		}
		pools = append(pools, p)
	}
	f.logger.Info("Saber pools loaded",
		zap.Int("listed", len(list.Pools)),
		zap.Int("usable", len(pools)))
	return pools, nil
}

func (e saberEntry) toPool() (*venue.SaberPool, error) {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	if name == "" {
		name = e.Swap.Config.SwapAccount
	}
	var d keyDecoder
	cfg, st := e.Swap.Config, e.Swap.State
	p := &venue.SaberPool{
		Label:       "saber:" + name,
		ProgramID:   d.key("swapProgramID", cfg.SwapProgramID),
		SwapAccount: d.key("swapAccount", cfg.SwapAccount),
		Authority:   d.key("authority", cfg.Authority),
		MintA:       d.key("tokenA.mint", st.TokenA.Mint),
		MintB:       d.key("tokenB.mint", st.TokenB.Mint),
		ReserveA:    d.key("tokenA.reserve", st.TokenA.Reserve),
		ReserveB:    d.key("tokenB.reserve", st.TokenB.Reserve),
		AdminFeeA:   d.key("tokenA.adminFeeAccount", st.TokenA.AdminFeeAccount),
		AdminFeeB:   d.key("tokenB.adminFeeAccount", st.TokenB.AdminFeeAccount),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, p.Validate()
}
