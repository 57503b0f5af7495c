package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Config holds all configuration for the sniper pipeline.
type Config struct {
	Network       NetworkConfig
	Wallet        WalletConfig
	Queue         QueueConfig
	Window        WindowConfig
	Filter        FilterConfig
	Strategy      StrategyConfig
	Exit          ExitConfig
	ThresholdTrig ThresholdTriggerConfig
	FirstWave     FirstWaveConfig
	Momentum      MomentumConfig
	Monitor       MonitorConfig
	Position      PositionConfig
	Submission    SubmissionConfig
	Venue         VenueConfig
	Sweeper       SweeperConfig
	Observability ObservabilityConfig
}

// NetworkConfig describes the chain RPC / WS endpoints and commitment level.
type NetworkConfig struct {
	RPCEndpoint string
	WSEndpoint  string
	Commitment  string
	DialTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// WalletConfig holds the path to the signer's key material.
type WalletConfig struct {
	KeypairPath string
}

// QueueConfig sizes the Source->Aggregator ring and the downstream channels.
type QueueConfig struct {
	EventRingCapacity      int
	MetricsChannelCapacity int
	SignalChannelCapacity  int
	BackoffMin             time.Duration
	BackoffMax             time.Duration
}

// WindowConfig bounds the per-token MintWindow and EventHistory.
type WindowConfig struct {
	MaxEvents           int
	WindowDuration       time.Duration
	EventHistoryMaxSize int
	HighFrequencySubWindow time.Duration
	LargeTradeThresholdSOL float64
}

// FilterConfig parameterizes the multi-layer filter chain (§4.3).
type FilterConfig struct {
	MinSOLAmount            float64
	MaxSOLAmount            float64
	RequireDevTrade         bool
	EnableBlacklist         bool
	Blacklist               []string
	EnableWhitelist         bool
	Whitelist               []string
	TimeWindowEnabled       bool
	TimeWindowStartHour     int
	TimeWindowEndHour       int
	MaxFrequencyPerSecond   float64
	EnableDuplicateDetect   bool
	DuplicateWindow         time.Duration
}

// StrategyConfig selects the active dynamic-strategy mode and snipe size.
type StrategyConfig struct {
	EnableCustomMode      bool
	EnableConservativeMode bool
	EnableAggressiveMode  bool
	EnableBalancedMode    bool
	Mode                  string // conservative|balanced|aggressive, used if no boolean wins

	SnipeAmountSOL      float64
	MaxSlippageBps      uint64
	NetInflowThresholdSOL float64
	AccelerationRequired  bool
	AccelerationMultiplier float64
	BuyRatioThreshold     float64

	Conservative ModeThresholds
	Balanced     ModeThresholds
	Aggressive   ModeThresholds

	AdaptiveVolatility bool
	AdaptiveTimeOfDay  bool
}

// ModeThresholds holds the per-mode dynamic-strategy buy/sell trigger constants.
type ModeThresholds struct {
	MinBuyRatio        float64
	MinNetInflowSOL    float64
	MinAcceleration    float64
	MaxSlippage        float64
	MinHFTrades        int
	MinLiquidityDepth  float64
	MaxPriceImpact     float64
	MinCompositeScore  float64

	TakeProfitMultiplier  float64
	StopLossMultiplier    float64
	MinHoldDuration       time.Duration
	MaxHoldDuration       time.Duration
	MomentumDecayThreshold float64
}

// ExitConfig carries the legacy exit field the original source pulls
// SellTriggers.MomentumDecayThreshold from ("exit_buy_ratio_threshold"),
// kept distinct from StrategyConfig per the original's field-to-key mapping.
type ExitConfig struct {
	BuyRatioThreshold float64
}

// ThresholdTriggerConfig is the one-shot cumulative-buy bypass branch.
type ThresholdTriggerConfig struct {
	Enabled              bool
	CumulativeBuySOL     float64
	BuyRatio             float64
	MinBuySOL            float64
	MaxBuySOL            float64
	ObservationWindow    time.Duration
}

// FirstWaveConfig is the earliest-trades fast-path branch.
type FirstWaveConfig struct {
	Enabled         bool
	InflowMultiplier float64
	BuyRatio         float64
}

// MomentumConfig parameterizes the momentum-decay detector.
type MomentumConfig struct {
	BuyRatioThreshold      float64
	NetInflowThreshold     float64
	ActivityThreshold      int
	CompositeScoreThreshold float64
	StrictMode             bool
}

// MonitorConfig parameterizes the real-time risk monitor.
type MonitorConfig struct {
	PriceAlertThresholdPct     float64
	LiquidityAlertThresholdPct float64
	LargeSellThresholdSOL      float64
	RugPullConfidenceThreshold float64
	Interval                   time.Duration
	PriceHistoryWindow         time.Duration
}

// PositionConfig bounds the position manager.
type PositionConfig struct {
	MaxPositions         int
	BuyConfirmTimeout    time.Duration
	SellConfirmTimeout   time.Duration
}

// SubmissionConfig parameterizes the submission racer (§4.6).
type SubmissionConfig struct {
	ParallelSend    bool
	TimeoutMs       int
	MaxRetries      int
	MaxTips         int
	PriorityFeeMicroLamports uint64
	ComputeUnitLimit         uint32
	// PriorityFeeTipAddress/Lamports build the standalone priority-fee tip
	// transfer the build order places after the venue trade instruction,
	// distinct from both compute-unit-price (paid to the validator, not
	// transferred) and the per-submitter tips below. Grounded on
	// lightspeed_buy.rs's lightspeed_tip_address/get_lightspeed_tip_lamports,
	// generalized since this port has no single named priority vendor.
	PriorityFeeTipAddress solana.PublicKey
	PriorityFeeTipLamports uint64
	Submitters      []SubmitterConfig
}

// SubmitterConfig describes one named priority-submission backend.
type SubmitterConfig struct {
	Name        string
	Enabled     bool
	Endpoint    string
	Region      string
	Priority    uint32
	APIKey      string
	TipLamports uint64
}

// VenueConfig holds the venue program's fixed account addresses that the
// Submission Racer's instruction builder cannot derive as PDAs (global and
// __event_authority are PDAs, see domain.DeriveGlobal/DeriveEventAuthority;
// these three are deployed, program-owned accounts instead).
type VenueConfig struct {
	FeeRecipient solana.PublicKey
	FeeConfig    solana.PublicKey
	FeeProgram   solana.PublicKey
}

// SweeperConfig parameterizes the periodic window/event-history GC.
type SweeperConfig struct {
	Interval time.Duration
	WindowTTL time.Duration
}

// ObservabilityConfig configures the structured logger and tracer.
type ObservabilityConfig struct {
	JaegerEndpoint string
	ServiceName    string
	LogLevel       string
	LogFormat      string
}

// Load builds a Config from the process environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Network: NetworkConfig{
			RPCEndpoint: getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
			WSEndpoint:  getEnv("SOLANA_WS_ENDPOINT", "wss://api.mainnet-beta.solana.com"),
			Commitment:  getEnv("SOLANA_COMMITMENT", "confirmed"),
			DialTimeout: getDurationEnv("SOLANA_DIAL_TIMEOUT", 10*time.Second),
			MaxRetries:  getIntEnv("SOLANA_MAX_RETRIES", 3),
			RetryDelay:  getDurationEnv("SOLANA_RETRY_DELAY", 2*time.Second),
		},
		Wallet: WalletConfig{
			KeypairPath: getEnv("WALLET_KEYPAIR_PATH", ""),
		},
		Queue: QueueConfig{
			EventRingCapacity:      getIntEnv("EVENT_RING_CAPACITY", 10000),
			MetricsChannelCapacity: getIntEnv("METRICS_CHANNEL_CAPACITY", 1000),
			SignalChannelCapacity:  getIntEnv("SIGNAL_CHANNEL_CAPACITY", 100),
			BackoffMin:             getDurationEnv("QUEUE_BACKOFF_MIN", 100*time.Microsecond),
			BackoffMax:             getDurationEnv("QUEUE_BACKOFF_MAX", 5*time.Millisecond),
		},
		Window: WindowConfig{
			MaxEvents:              getIntEnv("WINDOW_MAX_EVENTS", 50),
			WindowDuration:         getDurationEnv("WINDOW_DURATION", 30*time.Second),
			EventHistoryMaxSize:    getIntEnv("EVENT_HISTORY_MAX_SIZE", 100),
			HighFrequencySubWindow: getDurationEnv("HIGH_FREQUENCY_SUB_WINDOW", 10*time.Second),
			LargeTradeThresholdSOL: getFloatEnv("LARGE_TRADE_THRESHOLD_SOL", 1.0),
		},
		Filter: FilterConfig{
			MinSOLAmount:          getFloatEnv("FILTER_MIN_SOL_AMOUNT", 0.1),
			MaxSOLAmount:          getFloatEnv("FILTER_MAX_SOL_AMOUNT", 10.0),
			RequireDevTrade:       getBoolEnv("FILTER_REQUIRE_DEV_TRADE", true),
			EnableBlacklist:       getBoolEnv("FILTER_ENABLE_BLACKLIST", true),
			Blacklist:             getSliceEnv("FILTER_BLACKLIST", nil),
			EnableWhitelist:       getBoolEnv("FILTER_ENABLE_WHITELIST", false),
			Whitelist:             getSliceEnv("FILTER_WHITELIST", nil),
			TimeWindowEnabled:     getBoolEnv("FILTER_TIME_WINDOW_ENABLED", false),
			TimeWindowStartHour:   getIntEnv("FILTER_TIME_WINDOW_START_HOUR", 0),
			TimeWindowEndHour:     getIntEnv("FILTER_TIME_WINDOW_END_HOUR", 23),
			MaxFrequencyPerSecond: getFloatEnv("FILTER_MAX_FREQUENCY_PER_SECOND", 10.0),
			EnableDuplicateDetect: getBoolEnv("FILTER_ENABLE_DUPLICATE_DETECT", true),
			DuplicateWindow:       getDurationEnv("FILTER_DUPLICATE_WINDOW", 5*time.Second),
		},
		Strategy: StrategyConfig{
			EnableCustomMode:       getBoolEnv("ENABLE_CUSTOM_MODE", false),
			EnableConservativeMode: getBoolEnv("ENABLE_CONSERVATIVE_MODE", false),
			EnableAggressiveMode:   getBoolEnv("ENABLE_AGGRESSIVE_MODE", false),
			EnableBalancedMode:     getBoolEnv("ENABLE_BALANCED_MODE", false),
			Mode:                   getEnv("DYNAMIC_STRATEGY_MODE", "balanced"),
			SnipeAmountSOL:         getFloatEnv("SNIPE_AMOUNT_SOL", 0.5),
			MaxSlippageBps:         uint64(getIntEnv("MAX_SLIPPAGE_BPS", 500)),
			NetInflowThresholdSOL:  getFloatEnv("NET_INFLOW_THRESHOLD_SOL", 1.0),
			AccelerationRequired:   getBoolEnv("ACCELERATION_REQUIRED", true),
			AccelerationMultiplier: getFloatEnv("ACCELERATION_MULTIPLIER", 1.2),
			BuyRatioThreshold:      getFloatEnv("BUY_RATIO_THRESHOLD", 0.7),
			Conservative: ModeThresholds{
				MinBuyRatio: getFloatEnv("CONSERVATIVE_MIN_BUY_RATIO", 0.80),
				MinNetInflowSOL: getFloatEnv("CONSERVATIVE_NET_INFLOW_THRESHOLD_SOL", 1.5),
				MinAcceleration: getFloatEnv("CONSERVATIVE_MIN_ACCELERATION", 1.5),
				MaxSlippage: getFloatEnv("CONSERVATIVE_MAX_SLIPPAGE", 0.03),
				MinHFTrades: getIntEnv("CONSERVATIVE_MIN_HF_TRADES", 5),
				MinLiquidityDepth: getFloatEnv("CONSERVATIVE_MIN_LIQUIDITY_DEPTH", 0.7),
				MaxPriceImpact: getFloatEnv("CONSERVATIVE_MAX_PRICE_IMPACT", 0.03),
				MinCompositeScore: getFloatEnv("CONSERVATIVE_MIN_COMPOSITE_SCORE", 0.7),
				TakeProfitMultiplier: getFloatEnv("CONSERVATIVE_TAKE_PROFIT_MULTIPLIER", 1.5),
				StopLossMultiplier: getFloatEnv("CONSERVATIVE_STOP_LOSS_MULTIPLIER", 0.9),
				MinHoldDuration: getDurationEnv("CONSERVATIVE_HOLD_MIN_DURATION", 60*time.Second),
				MaxHoldDuration: getDurationEnv("CONSERVATIVE_HOLD_MAX_DURATION", 300*time.Second),
			},
			Balanced: ModeThresholds{
				MinBuyRatio: getFloatEnv("BALANCED_MIN_BUY_RATIO", 0.70),
				MinNetInflowSOL: getFloatEnv("BALANCED_NET_INFLOW_THRESHOLD_SOL", 1.0),
				MinAcceleration: getFloatEnv("BALANCED_MIN_ACCELERATION", 1.2),
				MaxSlippage: getFloatEnv("BALANCED_MAX_SLIPPAGE", 0.05),
				MinHFTrades: getIntEnv("BALANCED_MIN_HF_TRADES", 3),
				MinLiquidityDepth: getFloatEnv("BALANCED_MIN_LIQUIDITY_DEPTH", 0.5),
				MaxPriceImpact: getFloatEnv("BALANCED_MAX_PRICE_IMPACT", 0.05),
				MinCompositeScore: getFloatEnv("BALANCED_MIN_COMPOSITE_SCORE", 0.5),
				TakeProfitMultiplier: getFloatEnv("BALANCED_TAKE_PROFIT_MULTIPLIER", 2.0),
				StopLossMultiplier: getFloatEnv("BALANCED_STOP_LOSS_MULTIPLIER", 0.7),
				MinHoldDuration: getDurationEnv("BALANCED_HOLD_MIN_DURATION", 30*time.Second),
				MaxHoldDuration: getDurationEnv("BALANCED_HOLD_MAX_DURATION", 600*time.Second),
			},
			Aggressive: ModeThresholds{
				MinBuyRatio: getFloatEnv("AGGRESSIVE_MIN_BUY_RATIO", 0.60),
				MinNetInflowSOL: getFloatEnv("AGGRESSIVE_NET_INFLOW_THRESHOLD_SOL", 0.5),
				MinAcceleration: getFloatEnv("AGGRESSIVE_MIN_ACCELERATION", 1.0),
				MaxSlippage: getFloatEnv("AGGRESSIVE_MAX_SLIPPAGE", 0.08),
				MinHFTrades: getIntEnv("AGGRESSIVE_MIN_HF_TRADES", 2),
				MinLiquidityDepth: getFloatEnv("AGGRESSIVE_MIN_LIQUIDITY_DEPTH", 0.3),
				MaxPriceImpact: getFloatEnv("AGGRESSIVE_MAX_PRICE_IMPACT", 0.08),
				MinCompositeScore: getFloatEnv("AGGRESSIVE_MIN_COMPOSITE_SCORE", 0.3),
				TakeProfitMultiplier: getFloatEnv("AGGRESSIVE_TAKE_PROFIT_MULTIPLIER", 3.0),
				StopLossMultiplier: getFloatEnv("AGGRESSIVE_STOP_LOSS_MULTIPLIER", 0.5),
				MinHoldDuration: getDurationEnv("AGGRESSIVE_HOLD_MIN_DURATION", 15*time.Second),
				MaxHoldDuration: getDurationEnv("AGGRESSIVE_HOLD_MAX_DURATION", 900*time.Second),
			},
			AdaptiveVolatility: getBoolEnv("ADAPTIVE_VOLATILITY", true),
			AdaptiveTimeOfDay:  getBoolEnv("ADAPTIVE_TIME_OF_DAY", true),
		},
		Exit: ExitConfig{
			BuyRatioThreshold: getFloatEnv("EXIT_BUY_RATIO_THRESHOLD", 0.5),
		},
		ThresholdTrig: ThresholdTriggerConfig{
			Enabled:           getBoolEnv("ENABLE_THRESHOLD_TRIGGER", false),
			CumulativeBuySOL:  getFloatEnv("THRESHOLD_CUMULATIVE_BUY_SOL", 2.0),
			BuyRatio:          getFloatEnv("THRESHOLD_BUY_RATIO", 0.5),
			MinBuySOL:         getFloatEnv("THRESHOLD_MIN_BUY_SOL", 0.2),
			MaxBuySOL:         getFloatEnv("THRESHOLD_MAX_BUY_SOL", 1.0),
			ObservationWindow: getDurationEnv("THRESHOLD_OBSERVATION_WINDOW", 60*time.Second),
		},
		FirstWave: FirstWaveConfig{
			Enabled:          getBoolEnv("ENABLE_FIRST_WAVE_SNIPER", false),
			InflowMultiplier: getFloatEnv("FIRST_WAVE_INFLOW_MULTIPLIER", 1.0),
			BuyRatio:         getFloatEnv("FIRST_WAVE_BUY_RATIO", 0.7),
		},
		Momentum: MomentumConfig{
			BuyRatioThreshold:       getFloatEnv("MOMENTUM_BUY_RATIO_THRESHOLD", 0.5),
			NetInflowThreshold:      getFloatEnv("MOMENTUM_NET_INFLOW_THRESHOLD", 0.0),
			ActivityThreshold:       getIntEnv("MOMENTUM_ACTIVITY_THRESHOLD", 2),
			CompositeScoreThreshold: getFloatEnv("MOMENTUM_COMPOSITE_SCORE_THRESHOLD", 0.3),
			StrictMode:              getBoolEnv("MOMENTUM_STRICT_MODE", false),
		},
		Monitor: MonitorConfig{
			PriceAlertThresholdPct:     getFloatEnv("MONITOR_PRICE_ALERT_THRESHOLD", 20.0),
			LiquidityAlertThresholdPct: getFloatEnv("MONITOR_LIQUIDITY_ALERT_THRESHOLD", 30.0),
			LargeSellThresholdSOL:      getFloatEnv("MONITOR_LARGE_SELL_THRESHOLD_SOL", 1.0),
			RugPullConfidenceThreshold: getFloatEnv("MONITOR_RUG_PULL_CONFIDENCE_THRESHOLD", 0.7),
			Interval:                   getDurationEnv("MONITOR_INTERVAL", 10*time.Second),
			PriceHistoryWindow:         getDurationEnv("MONITOR_PRICE_HISTORY_WINDOW", 24*time.Hour),
		},
		Position: PositionConfig{
			MaxPositions:       getIntEnv("MAX_POSITIONS", 5),
			BuyConfirmTimeout:  getDurationEnv("BUY_CONFIRM_TIMEOUT", 30*time.Second),
			SellConfirmTimeout: getDurationEnv("SELL_CONFIRM_TIMEOUT", 10*time.Second),
		},
		Submission: SubmissionConfig{
			ParallelSend:             getBoolEnv("SWQOS_PARALLEL_SEND", true),
			TimeoutMs:                getIntEnv("SWQOS_TIMEOUT_MS", 2000),
			MaxRetries:               getIntEnv("SWQOS_MAX_RETRIES", 2),
			MaxTips:                  getIntEnv("SWQOS_MAX_TIPS", 4),
			PriorityFeeMicroLamports: uint64(getIntEnv("PRIORITY_FEE_MICRO_LAMPORTS", 100000)),
			ComputeUnitLimit:         uint32(getIntEnv("COMPUTE_UNIT_LIMIT", 200000)),
			PriorityFeeTipAddress:    getPubkeyEnv("PRIORITY_FEE_TIP_ADDRESS", solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")),
			PriorityFeeTipLamports:   uint64(getIntEnv("PRIORITY_FEE_TIP_LAMPORTS", 100000)),
			Submitters:               loadSubmitters(),
		},
		Venue: VenueConfig{
			FeeRecipient: getPubkeyEnv("VENUE_FEE_RECIPIENT", solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")),
			FeeConfig:    getPubkeyEnv("VENUE_FEE_CONFIG", solana.MustPublicKeyFromBase58("8Ks12pbrD6PXxfty1hVQiE9sc289zgU1CohvVohT11DU")),
			FeeProgram:   getPubkeyEnv("VENUE_FEE_PROGRAM", solana.MustPublicKeyFromBase58("pfeeUxB6jkeY1Hxd7CsFCAjcbHA9rWtchMGdZ6VojVZ")),
		},
		Sweeper: SweeperConfig{
			Interval:  getDurationEnv("SWEEPER_INTERVAL", 60*time.Second),
			WindowTTL: getDurationEnv("SWEEPER_WINDOW_TTL", 10*time.Minute),
		},
		Observability: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "pumpfun-sniper"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// submitterNames enumerates the named priority-submission backends (§4.6,
// original source swqos.rs) in their default priority order.
var submitterNames = []string{
	"JITO", "NEXTBLOCK", "ZEROSLOT", "TEMPORAL", "BLOXROUTE",
	"NODE1", "FLASHBLOCK", "BLOCKRAZOR", "ASTRALANE",
}

func loadSubmitters() []SubmitterConfig {
	submitters := make([]SubmitterConfig, 0, len(submitterNames))
	for i, name := range submitterNames {
		submitters = append(submitters, SubmitterConfig{
			Name:        strings.ToLower(name),
			Enabled:     getBoolEnv(name+"_ENABLED", false),
			Endpoint:    getEnv(name+"_ENDPOINT", ""),
			Region:      getEnv(name+"_REGION", "ny"),
			Priority:    uint32(getIntEnv(name+"_PRIORITY", i+1)),
			APIKey:      getEnv(name+"_API_KEY", ""),
			TipLamports: uint64(getIntEnv(name+"_TIP_LAMPORTS", 100000)),
		})
	}
	return submitters
}

func (c *Config) validate() error {
	if c.Network.RPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	if err := checkRatio("FILTER_MAX_FREQUENCY_PER_SECOND", c.Filter.MaxFrequencyPerSecond, 0, 1e9); err != nil {
		return err
	}
	if c.Filter.MinSOLAmount < 0 || c.Filter.MaxSOLAmount <= 0 {
		return fmt.Errorf("FILTER_MIN_SOL_AMOUNT/FILTER_MAX_SOL_AMOUNT must be positive")
	}
	if c.Filter.MinSOLAmount >= c.Filter.MaxSOLAmount {
		return fmt.Errorf("FILTER_MIN_SOL_AMOUNT must be < FILTER_MAX_SOL_AMOUNT")
	}
	if c.Filter.TimeWindowEnabled {
		if c.Filter.TimeWindowStartHour < 0 || c.Filter.TimeWindowStartHour > 23 ||
			c.Filter.TimeWindowEndHour < 0 || c.Filter.TimeWindowEndHour > 23 {
			return fmt.Errorf("FILTER_TIME_WINDOW_START_HOUR/END_HOUR must be in [0,23]")
		}
	}
	if !c.Strategy.EnableCustomMode && !c.Strategy.EnableConservativeMode &&
		!c.Strategy.EnableAggressiveMode && !c.Strategy.EnableBalancedMode {
		switch c.Strategy.Mode {
		case "conservative", "balanced", "aggressive":
		default:
			return fmt.Errorf("DYNAMIC_STRATEGY_MODE must be one of conservative, balanced, aggressive (got %q)", c.Strategy.Mode)
		}
	}
	for _, mt := range []ModeThresholds{c.Strategy.Conservative, c.Strategy.Balanced, c.Strategy.Aggressive} {
		if err := checkRatio("mode min_buy_ratio", mt.MinBuyRatio, 0, 1); err != nil {
			return err
		}
		if err := checkRatio("mode min_liquidity_depth", mt.MinLiquidityDepth, 0, 1); err != nil {
			return err
		}
		if mt.MinHoldDuration >= mt.MaxHoldDuration {
			return fmt.Errorf("mode min hold duration must be < max hold duration")
		}
	}
	if c.ThresholdTrig.Enabled && c.ThresholdTrig.MinBuySOL >= c.ThresholdTrig.MaxBuySOL {
		return fmt.Errorf("THRESHOLD_MIN_BUY_SOL must be < THRESHOLD_MAX_BUY_SOL")
	}
	if c.Strategy.MaxSlippageBps > 10000 {
		return fmt.Errorf("MAX_SLIPPAGE_BPS must be in [0,10000], got %d", c.Strategy.MaxSlippageBps)
	}
	if c.Position.MaxPositions <= 0 {
		return fmt.Errorf("MAX_POSITIONS must be positive")
	}
	if c.Submission.MaxTips <= 0 {
		return fmt.Errorf("SWQOS_MAX_TIPS must be positive")
	}
	if c.Queue.EventRingCapacity <= 0 || c.Queue.MetricsChannelCapacity <= 0 || c.Queue.SignalChannelCapacity <= 0 {
		return fmt.Errorf("queue capacities must be positive")
	}
	return nil
}

func checkRatio(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be in [%v,%v], got %v", name, lo, hi, v)
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getPubkeyEnv(key string, defaultValue solana.PublicKey) solana.PublicKey {
	if value := os.Getenv(key); value != "" {
		if pk, err := solana.PublicKeyFromBase58(value); err == nil {
			return pk
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
