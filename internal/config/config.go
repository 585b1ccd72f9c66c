// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/swap-router/internal/amount"
	"github.com/rovshanmuradov/swap-router/internal/blockchain/solbc"
	"github.com/rovshanmuradov/swap-router/internal/poolfeed"
	"github.com/rovshanmuradov/swap-router/internal/types"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	RPCRate      float64  `mapstructure:"rpc_rate"`
	RPCBurst     int      `mapstructure:"rpc_burst"`
	Retries      int      `mapstructure:"retries"`
	Commitment   string   `mapstructure:"commitment"`
	DebugLogging bool     `mapstructure:"debug_logging"`
	LogFile      string   `mapstructure:"log_file"`
	MetricsAddr  string   `mapstructure:"metrics_addr"`

	RouterProgramID string               `mapstructure:"router_program_id"`
	StateSeed       string               `mapstructure:"state_seed"`
	MidBufferBps    uint64               `mapstructure:"mid_buffer_bps"`
	Slippage        types.SlippageConfig `mapstructure:"slippage"`
	Priority        string               `mapstructure:"priority"`
	IdempotentATA   bool                 `mapstructure:"idempotent_ata"`
	Simulate        bool                 `mapstructure:"simulate"`

	RegistryFile    string `mapstructure:"registry_file"`
	RaydiumPoolsURL string `mapstructure:"raydium_pools_url"`
	SaberPoolsURL   string `mapstructure:"saber_pools_url"`
	ProgramCacheURL string `mapstructure:"program_cache_url"`

	// PollInterval в миллисекундах, PollTimeout в секундах.
	PollInterval int `mapstructure:"poll_interval"`
	PollTimeout  int `mapstructure:"poll_timeout"`

	Bridge BridgeConfig `mapstructure:"bridge"`
}

type BridgeConfig struct {
	CoreProgramID  string   `mapstructure:"core_program_id"`
	TokenProgramID string   `mapstructure:"token_program_id"`
	GuardianHosts  []string `mapstructure:"guardian_hosts"`
	// GuardianTimeout в секундах.
	GuardianTimeout int `mapstructure:"guardian_timeout"`
}

const (
	DefaultRPCRate         = 10
	DefaultRPCBurst        = 5
	DefaultRetries         = 3
	DefaultPollInterval    = 500
	DefaultPollTimeout     = 60
	DefaultGuardianTimeout = 300
	DefaultMidBufferBps    = 15
	DefaultLogFile         = "router.log"
)

var DefaultGuardianHosts = []string{
	"https://wormhole-v2-mainnet-api.certus.one",
	"https://wormhole.inotel.ro",
	"https://wormhole-v2-mainnet-api.mcf.rocks",
	"https://wormhole-v2-mainnet-api.chainlayer.network",
	"https://wormhole-v2-mainnet-api.staking.fund",
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_rate":                DefaultRPCRate,
		"rpc_burst":               DefaultRPCBurst,
		"retries":                 DefaultRetries,
		"commitment":              string(rpc.CommitmentConfirmed),
		"log_file":                DefaultLogFile,
		"mid_buffer_bps":          DefaultMidBufferBps,
		"slippage.type":           string(types.SlippageBps),
		"slippage.bps":            50,
		"priority":                string(types.PriorityNone),
		"idempotent_ata":          true,
		"poll_interval":           DefaultPollInterval,
		"poll_timeout":            DefaultPollTimeout,
		"raydium_pools_url":       poolfeed.DefaultRaydiumURL,
		"saber_pools_url":         poolfeed.DefaultSaberURL,
		"program_cache_url":       solbc.DefaultCacheURL,
		"bridge.core_program_id":  "worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth",
		"bridge.token_program_id": "wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb",
		"bridge.guardian_hosts":   DefaultGuardianHosts,
		"bridge.guardian_timeout": DefaultGuardianTimeout,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	for _, host := range cfg.Bridge.GuardianHosts {
		if err := validateURLWithCache(host, "http"); err != nil {
			return errors.New("invalid guardian host protocol")
		}
	}
	for _, feed := range []string{cfg.RaydiumPoolsURL, cfg.SaberPoolsURL, cfg.ProgramCacheURL} {
		if feed == "" {
			continue
		}
		if err := validateURLWithCache(feed, "https"); err != nil {
			return fmt.Errorf("feed URL %s must use HTTPS", feed)
		}
	}
	if err := validateKeys(cfg); err != nil {
		return err
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if err := cfg.Slippage.Validate(); err != nil {
		return fmt.Errorf("invalid slippage: %w", err)
	}
	if _, err := types.ProfileFor(types.PriorityLevel(cfg.Priority)); err != nil {
		return err
	}
	switch rpc.CommitmentType(cfg.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	return nil
}

func validateKeys(cfg *Config) error {
	if cfg.RouterProgramID == "" {
		return errors.New("missing router_program_id in configuration")
	}
	for name, key := range map[string]string{
		"router_program_id":       cfg.RouterProgramID,
		"bridge.core_program_id":  cfg.Bridge.CoreProgramID,
		"bridge.token_program_id": cfg.Bridge.TokenProgramID,
	} {
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.RPCRate < 0 {
		return errors.New("invalid rpc_rate")
	}
	if cfg.RPCBurst < 0 {
		return errors.New("invalid rpc_burst")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.PollTimeout <= 0 {
		return errors.New("invalid poll_timeout")
	}
	if cfg.Bridge.GuardianTimeout <= 0 {
		return errors.New("invalid bridge.guardian_timeout")
	}
	if cfg.MidBufferBps > amount.BpsDenominator {
		return errors.New("invalid mid_buffer_bps")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.SetEnvPrefix("SWAP_ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if programID := v.GetString("ROUTER_PROGRAM_ID"); programID != "" {
		cfg.RouterProgramID = programID
	}
	if rpcs := splitList(v.GetString("RPC_LIST")); len(rpcs) > 0 {
		cfg.RPCList = rpcs
	}
	if hosts := splitList(v.GetString("GUARDIAN_HOSTS")); len(hosts) > 0 {
		cfg.Bridge.GuardianHosts = hosts
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// RouterProgram returns the parsed router program id.
func (c *Config) RouterProgram() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.RouterProgramID)
}

func (c *Config) BridgePrograms() (core, tokenBridge solana.PublicKey) {
	return solana.MustPublicKeyFromBase58(c.Bridge.CoreProgramID),
		solana.MustPublicKeyFromBase58(c.Bridge.TokenProgramID)
}

func (c *Config) PollPolicy() types.RetryPolicy {
	interval := time.Duration(c.PollInterval) * time.Millisecond
	return types.RetryPolicy{
		Interval:    interval,
		MaxInterval: interval,
		MaxElapsed:  time.Duration(c.PollTimeout) * time.Second,
	}
}

func (c *Config) GuardianPolicy() types.RetryPolicy {
	return types.RetryPolicy{
		Interval:    time.Second,
		MaxInterval: 15 * time.Second,
		MaxElapsed:  time.Duration(c.Bridge.GuardianTimeout) * time.Second,
		Exponential: true,
	}
}

func (c *Config) PriorityProfile() types.PriorityProfile {
	p, _ := types.ProfileFor(types.PriorityLevel(c.Priority))
	return p
}
