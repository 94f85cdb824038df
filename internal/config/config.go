// Package config holds the immutable runtime configuration for the
// governance engine. A Config value is produced once by merging optional
// overrides over defaults and is never mutated afterwards; hot-reload
// swaps the whole value.
package config

import "time"

// Config is the complete engine configuration.
type Config struct {
	AutonomyLevel int // 1-4, see router
	Risk          RiskConfig
	Pipeline      PipelineConfig
	Boundaries    BoundaryConfig
	Queue         QueueConfig
	Notify        NotifyConfig
	Audit         AuditConfig

	// ParamSchemas maps a category name to a JSON Schema applied to
	// action params at ingress. Validation failures surface as
	// assessment constraints, never as rejections.
	ParamSchemas map[string]map[string]any
}

// FactorWeights are the per-factor weights for single-action classification.
type FactorWeights struct {
	Financial     float64
	Reversibility float64
	Category      float64
	Urgency       float64
	Visibility    float64
}

// LevelThresholds are the ascending score boundaries mapping a 0-100
// score to a risk level. Score below Low is safe; at or above Critical
// is critical.
type LevelThresholds struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// FinancialThresholds are the ascending dollar boundaries for the
// financial factor buckets.
type FinancialThresholds struct {
	Minor    float64
	Moderate float64
	Major    float64
	Severe   float64
}

// RiskConfig configures the single-action RiskClassifier.
type RiskConfig struct {
	Weights             FactorWeights
	Thresholds          LevelThresholds
	Financial           FinancialThresholds
	CategoryBaseRisk    map[string]float64 // category name → base risk, overrides defaults
	SafeActionTypes     []string           // allow-list → auto_execute recommendation
	DangerousActionTypes []string          // deny-list → escalate recommendation
	PublicKeywords      []string           // action types matching these are publicly visible
}

// PipelineWeights are the per-factor weights for pipeline classification.
type PipelineWeights struct {
	ToolRisk     float64
	Combinations float64
	Complexity   float64
	DataFlow     float64
	Declared     float64
}

// PipelineConfig configures the PipelineRiskClassifier.
type PipelineConfig struct {
	Weights               PipelineWeights
	ToolRisk              map[string]float64 // tool name → base risk score
	DefaultToolRisk       float64            // unknown tools
	DangerousCombinations [][]string         // tool sets that are risky together
	SensitiveTerms        []string           // keyword scan over step inputs
	ReviewStepThreshold   int                // pipelines longer than this get a complexity bump
}

// TradingLimits are the per-day trading boundaries.
type TradingLimits struct {
	MaxDailyTrades int
	MaxTradeSize   float64
	MaxPositionPct float64
	AllowedBots    []string
	AllowedTokens  []string
}

// ContentLimits are the content-posting boundaries.
type ContentLimits struct {
	MaxDailyPosts    int
	MaxWeeklyPosts   int
	RestrictedTopics []string
}

// BuildLimits are the build/commit boundaries.
type BuildLimits struct {
	MaxDailyBuilds     int
	MaxAutoCommitLines int
	MaxAutoCommitFiles int
	RestrictedPaths    []string
}

// DeploymentLimits gate deployment targets.
type DeploymentLimits struct {
	AllowProduction bool
	AllowStaging    bool
}

// BoundaryConfig configures the BoundaryChecker.
type BoundaryConfig struct {
	Trading    TradingLimits
	Content    ContentLimits
	Build      BuildLimits
	Deployment DeploymentLimits

	MaxActionValue     float64 // hard per-action ceiling, violation above
	AutoApproveCeiling float64 // soft per-action ceiling, warning above
	MaxDailySpend      float64 // projected daily spend cap

	// Quiet hours produce a non-blocking warning for non-critical
	// actions. The window may wrap midnight (start >= end). Start == End
	// disables the check.
	QuietHoursStart int // 0-23 UTC
	QuietHoursEnd   int // 0-23 UTC
}

// QueueConfig configures the ApprovalQueue.
type QueueConfig struct {
	MaxPendingItems int
	ExpireAfter     time.Duration // expiresAt = createdAt + ExpireAfter
	EscalateAfter   time.Duration // age past which pending requests escalate
	AutoRejectAfter time.Duration // age past which pending requests auto-reject
	SweepInterval   time.Duration
}

// ChannelConfig names one notification channel.
type ChannelConfig struct {
	Name string
	Kind string // "log" or "webhook"
	URL  string // webhook only
}

// NotifyConfig configures the NotificationManager.
type NotifyConfig struct {
	Channels     []ChannelConfig
	MaxPerMinute int
}

// AuditConfig configures audit log retention.
type AuditConfig struct {
	RetentionDays int
	MaxEntries    int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		AutonomyLevel: 2,
		Risk: RiskConfig{
			Weights: FactorWeights{
				Financial:     0.30,
				Reversibility: 0.25,
				Category:      0.20,
				Urgency:       0.15,
				Visibility:    0.10,
			},
			Thresholds: LevelThresholds{Low: 20, Medium: 40, High: 60, Critical: 80},
			Financial:  FinancialThresholds{Minor: 10, Moderate: 100, Major: 1000, Severe: 10_000},
			CategoryBaseRisk: map[string]float64{
				"trading":       70,
				"deployment":    60,
				"configuration": 50,
				"build":         40,
				"content":       30,
			},
			SafeActionTypes:      []string{"health_check", "status_report", "metrics_snapshot"},
			DangerousActionTypes: []string{"wallet_transfer", "key_rotation", "prod_deploy"},
			PublicKeywords:       []string{"post", "publish", "tweet", "announce", "release"},
		},
		Pipeline: PipelineConfig{
			Weights: PipelineWeights{
				ToolRisk:     0.30,
				Combinations: 0.25,
				Complexity:   0.20,
				DataFlow:     0.15,
				Declared:     0.10,
			},
			ToolRisk: map[string]float64{
				"wallet_agent":  90,
				"trading_agent": 80,
				"deploy_agent":  75,
				"shell_agent":   70,
				"browser_agent": 50,
				"search_agent":  20,
				"summarizer":    10,
			},
			DefaultToolRisk: 50,
			DangerousCombinations: [][]string{
				{"wallet_agent", "trading_agent"},
				{"shell_agent", "deploy_agent"},
				{"browser_agent", "wallet_agent"},
			},
			SensitiveTerms: []string{
				"wallet", "private_key", "key", "secret", "password",
				"transfer", "deploy", "credential", "seed",
			},
			ReviewStepThreshold: 5,
		},
		Boundaries: BoundaryConfig{
			Trading: TradingLimits{
				MaxDailyTrades: 10,
				MaxTradeSize:   500,
				MaxPositionPct: 20,
			},
			Content: ContentLimits{
				MaxDailyPosts:  5,
				MaxWeeklyPosts: 20,
			},
			Build: BuildLimits{
				MaxDailyBuilds:     20,
				MaxAutoCommitLines: 500,
				MaxAutoCommitFiles: 20,
				RestrictedPaths:    []string{".github/", "infra/", "secrets/"},
			},
			Deployment: DeploymentLimits{
				AllowProduction: false,
				AllowStaging:    true,
			},
			MaxActionValue:     1000,
			AutoApproveCeiling: 100,
			MaxDailySpend:      2000,
			QuietHoursStart:    23,
			QuietHoursEnd:      6,
		},
		Queue: QueueConfig{
			MaxPendingItems: 50,
			ExpireAfter:     24 * time.Hour,
			EscalateAfter:   4 * time.Hour,
			AutoRejectAfter: 72 * time.Hour,
			SweepInterval:   time.Hour,
		},
		Notify: NotifyConfig{
			Channels:     []ChannelConfig{{Name: "log", Kind: "log"}},
			MaxPerMinute: 10,
		},
		Audit: AuditConfig{
			RetentionDays: 30,
			MaxEntries:    10_000,
		},
	}
}
