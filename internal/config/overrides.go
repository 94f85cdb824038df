package config

import "time"

// Overrides holds the optional configuration supplied by the operator.
// Every field is a pointer or nil-able collection; nil means "keep the
// default". Build applies them field by field — no reflection, no
// recursive merge.
type Overrides struct {
	AutonomyLevel *int                `yaml:"autonomy_level"`
	Risk          *RiskOverrides      `yaml:"risk"`
	Pipeline      *PipelineOverrides  `yaml:"pipeline"`
	Boundaries    *BoundaryOverrides  `yaml:"boundaries"`
	Queue         *QueueOverrides     `yaml:"queue"`
	Notify        *NotifyOverrides    `yaml:"notify"`
	Audit         *AuditOverrides     `yaml:"audit"`
	ParamSchemas  map[string]map[string]any `yaml:"param_schemas"`
}

// RiskOverrides overrides RiskConfig fields.
type RiskOverrides struct {
	WeightFinancial     *float64           `yaml:"weight_financial"`
	WeightReversibility *float64           `yaml:"weight_reversibility"`
	WeightCategory      *float64           `yaml:"weight_category"`
	WeightUrgency       *float64           `yaml:"weight_urgency"`
	WeightVisibility    *float64           `yaml:"weight_visibility"`
	ThresholdLow        *float64           `yaml:"threshold_low"`
	ThresholdMedium     *float64           `yaml:"threshold_medium"`
	ThresholdHigh       *float64           `yaml:"threshold_high"`
	ThresholdCritical   *float64           `yaml:"threshold_critical"`
	FinancialMinor      *float64           `yaml:"financial_minor"`
	FinancialModerate   *float64           `yaml:"financial_moderate"`
	FinancialMajor      *float64           `yaml:"financial_major"`
	FinancialSevere     *float64           `yaml:"financial_severe"`
	CategoryBaseRisk    map[string]float64 `yaml:"category_base_risk"`
	SafeActionTypes     []string           `yaml:"safe_action_types"`
	DangerousActionTypes []string          `yaml:"dangerous_action_types"`
	PublicKeywords      []string           `yaml:"public_keywords"`
}

// PipelineOverrides overrides PipelineConfig fields.
type PipelineOverrides struct {
	WeightToolRisk        *float64           `yaml:"weight_tool_risk"`
	WeightCombinations    *float64           `yaml:"weight_combinations"`
	WeightComplexity      *float64           `yaml:"weight_complexity"`
	WeightDataFlow        *float64           `yaml:"weight_data_flow"`
	WeightDeclared        *float64           `yaml:"weight_declared"`
	ToolRisk              map[string]float64 `yaml:"tool_risk"`
	DefaultToolRisk       *float64           `yaml:"default_tool_risk"`
	DangerousCombinations [][]string         `yaml:"dangerous_combinations"`
	SensitiveTerms        []string           `yaml:"sensitive_terms"`
	ReviewStepThreshold   *int               `yaml:"review_step_threshold"`
}

// BoundaryOverrides overrides BoundaryConfig fields.
type BoundaryOverrides struct {
	MaxDailyTrades     *int     `yaml:"max_daily_trades"`
	MaxTradeSize       *float64 `yaml:"max_trade_size"`
	MaxPositionPct     *float64 `yaml:"max_position_pct"`
	AllowedBots        []string `yaml:"allowed_bots"`
	AllowedTokens      []string `yaml:"allowed_tokens"`
	MaxDailyPosts      *int     `yaml:"max_daily_posts"`
	MaxWeeklyPosts     *int     `yaml:"max_weekly_posts"`
	RestrictedTopics   []string `yaml:"restricted_topics"`
	MaxDailyBuilds     *int     `yaml:"max_daily_builds"`
	MaxAutoCommitLines *int     `yaml:"max_auto_commit_lines"`
	MaxAutoCommitFiles *int     `yaml:"max_auto_commit_files"`
	RestrictedPaths    []string `yaml:"restricted_paths"`
	AllowProduction    *bool    `yaml:"allow_production"`
	AllowStaging       *bool    `yaml:"allow_staging"`
	MaxActionValue     *float64 `yaml:"max_action_value"`
	AutoApproveCeiling *float64 `yaml:"auto_approve_ceiling"`
	MaxDailySpend      *float64 `yaml:"max_daily_spend"`
	QuietHoursStart    *int     `yaml:"quiet_hours_start"`
	QuietHoursEnd      *int     `yaml:"quiet_hours_end"`
}

// QueueOverrides overrides QueueConfig fields. Durations are given in
// minutes in the file to keep the YAML plain.
type QueueOverrides struct {
	MaxPendingItems    *int `yaml:"max_pending_items"`
	ExpireAfterMin     *int `yaml:"expire_after_minutes"`
	EscalateAfterMin   *int `yaml:"escalate_after_minutes"`
	AutoRejectAfterMin *int `yaml:"auto_reject_after_minutes"`
	SweepIntervalMin   *int `yaml:"sweep_interval_minutes"`
}

// ChannelOverride names one notification channel in the file.
type ChannelOverride struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

// NotifyOverrides overrides NotifyConfig fields.
type NotifyOverrides struct {
	Channels     []ChannelOverride `yaml:"channels"`
	MaxPerMinute *int              `yaml:"max_per_minute"`
}

// AuditOverrides overrides AuditConfig fields.
type AuditOverrides struct {
	RetentionDays *int `yaml:"retention_days"`
	MaxEntries    *int `yaml:"max_entries"`
}

// Build merges overrides over Default() and returns one immutable Config.
func Build(ov Overrides) Config {
	cfg := Default()

	if ov.AutonomyLevel != nil {
		cfg.AutonomyLevel = clampAutonomy(*ov.AutonomyLevel)
	}
	if ov.Risk != nil {
		applyRisk(&cfg.Risk, ov.Risk)
	}
	if ov.Pipeline != nil {
		applyPipeline(&cfg.Pipeline, ov.Pipeline)
	}
	if ov.Boundaries != nil {
		applyBoundaries(&cfg.Boundaries, ov.Boundaries)
	}
	if ov.Queue != nil {
		applyQueue(&cfg.Queue, ov.Queue)
	}
	if ov.Notify != nil {
		applyNotify(&cfg.Notify, ov.Notify)
	}
	if ov.Audit != nil {
		applyAudit(&cfg.Audit, ov.Audit)
	}
	if ov.ParamSchemas != nil {
		cfg.ParamSchemas = ov.ParamSchemas
	}

	return cfg
}

func clampAutonomy(level int) int {
	if level < 1 {
		return 1
	}
	if level > 4 {
		return 4
	}
	return level
}

func applyRisk(dst *RiskConfig, ov *RiskOverrides) {
	setF(&dst.Weights.Financial, ov.WeightFinancial)
	setF(&dst.Weights.Reversibility, ov.WeightReversibility)
	setF(&dst.Weights.Category, ov.WeightCategory)
	setF(&dst.Weights.Urgency, ov.WeightUrgency)
	setF(&dst.Weights.Visibility, ov.WeightVisibility)
	setF(&dst.Thresholds.Low, ov.ThresholdLow)
	setF(&dst.Thresholds.Medium, ov.ThresholdMedium)
	setF(&dst.Thresholds.High, ov.ThresholdHigh)
	setF(&dst.Thresholds.Critical, ov.ThresholdCritical)
	setF(&dst.Financial.Minor, ov.FinancialMinor)
	setF(&dst.Financial.Moderate, ov.FinancialModerate)
	setF(&dst.Financial.Major, ov.FinancialMajor)
	setF(&dst.Financial.Severe, ov.FinancialSevere)
	if ov.CategoryBaseRisk != nil {
		merged := make(map[string]float64, len(dst.CategoryBaseRisk))
		for k, v := range dst.CategoryBaseRisk {
			merged[k] = v
		}
		for k, v := range ov.CategoryBaseRisk {
			merged[k] = v
		}
		dst.CategoryBaseRisk = merged
	}
	if ov.SafeActionTypes != nil {
		dst.SafeActionTypes = ov.SafeActionTypes
	}
	if ov.DangerousActionTypes != nil {
		dst.DangerousActionTypes = ov.DangerousActionTypes
	}
	if ov.PublicKeywords != nil {
		dst.PublicKeywords = ov.PublicKeywords
	}
}

func applyPipeline(dst *PipelineConfig, ov *PipelineOverrides) {
	setF(&dst.Weights.ToolRisk, ov.WeightToolRisk)
	setF(&dst.Weights.Combinations, ov.WeightCombinations)
	setF(&dst.Weights.Complexity, ov.WeightComplexity)
	setF(&dst.Weights.DataFlow, ov.WeightDataFlow)
	setF(&dst.Weights.Declared, ov.WeightDeclared)
	if ov.ToolRisk != nil {
		merged := make(map[string]float64, len(dst.ToolRisk))
		for k, v := range dst.ToolRisk {
			merged[k] = v
		}
		for k, v := range ov.ToolRisk {
			merged[k] = v
		}
		dst.ToolRisk = merged
	}
	setF(&dst.DefaultToolRisk, ov.DefaultToolRisk)
	if ov.DangerousCombinations != nil {
		dst.DangerousCombinations = ov.DangerousCombinations
	}
	if ov.SensitiveTerms != nil {
		dst.SensitiveTerms = ov.SensitiveTerms
	}
	setI(&dst.ReviewStepThreshold, ov.ReviewStepThreshold)
}

func applyBoundaries(dst *BoundaryConfig, ov *BoundaryOverrides) {
	setI(&dst.Trading.MaxDailyTrades, ov.MaxDailyTrades)
	setF(&dst.Trading.MaxTradeSize, ov.MaxTradeSize)
	setF(&dst.Trading.MaxPositionPct, ov.MaxPositionPct)
	if ov.AllowedBots != nil {
		dst.Trading.AllowedBots = ov.AllowedBots
	}
	if ov.AllowedTokens != nil {
		dst.Trading.AllowedTokens = ov.AllowedTokens
	}
	setI(&dst.Content.MaxDailyPosts, ov.MaxDailyPosts)
	setI(&dst.Content.MaxWeeklyPosts, ov.MaxWeeklyPosts)
	if ov.RestrictedTopics != nil {
		dst.Content.RestrictedTopics = ov.RestrictedTopics
	}
	setI(&dst.Build.MaxDailyBuilds, ov.MaxDailyBuilds)
	setI(&dst.Build.MaxAutoCommitLines, ov.MaxAutoCommitLines)
	setI(&dst.Build.MaxAutoCommitFiles, ov.MaxAutoCommitFiles)
	if ov.RestrictedPaths != nil {
		dst.Build.RestrictedPaths = ov.RestrictedPaths
	}
	setB(&dst.Deployment.AllowProduction, ov.AllowProduction)
	setB(&dst.Deployment.AllowStaging, ov.AllowStaging)
	setF(&dst.MaxActionValue, ov.MaxActionValue)
	setF(&dst.AutoApproveCeiling, ov.AutoApproveCeiling)
	setF(&dst.MaxDailySpend, ov.MaxDailySpend)
	setI(&dst.QuietHoursStart, ov.QuietHoursStart)
	setI(&dst.QuietHoursEnd, ov.QuietHoursEnd)
}

func applyQueue(dst *QueueConfig, ov *QueueOverrides) {
	setI(&dst.MaxPendingItems, ov.MaxPendingItems)
	setMinutes(&dst.ExpireAfter, ov.ExpireAfterMin)
	setMinutes(&dst.EscalateAfter, ov.EscalateAfterMin)
	setMinutes(&dst.AutoRejectAfter, ov.AutoRejectAfterMin)
	setMinutes(&dst.SweepInterval, ov.SweepIntervalMin)
}

func applyNotify(dst *NotifyConfig, ov *NotifyOverrides) {
	if ov.Channels != nil {
		channels := make([]ChannelConfig, 0, len(ov.Channels))
		for _, ch := range ov.Channels {
			channels = append(channels, ChannelConfig{Name: ch.Name, Kind: ch.Kind, URL: ch.URL})
		}
		dst.Channels = channels
	}
	setI(&dst.MaxPerMinute, ov.MaxPerMinute)
}

func applyAudit(dst *AuditConfig, ov *AuditOverrides) {
	setI(&dst.RetentionDays, ov.RetentionDays)
	setI(&dst.MaxEntries, ov.MaxEntries)
}

func setF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setI(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setB(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setMinutes(dst *time.Duration, src *int) {
	if src != nil {
		*dst = time.Duration(*src) * time.Minute
	}
}
