// Package boundary enforces configured policy limits against running
// daily usage counters.
package boundary

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/triage-ai/warden/internal/action"
	"github.com/triage-ai/warden/internal/config"
	"github.com/triage-ai/warden/internal/engine"
	"go.uber.org/zap"
)

// Result is the outcome of one boundary check. Violations are hard and
// block execution; warnings are informational. Checks never fail with an
// error, they only populate these lists.
type Result struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Usage      Snapshot `json:"usage"`
}

// Snapshot is a copy of the current day's usage counters.
type Snapshot struct {
	Day          int     `json:"day"` // days since epoch, UTC
	Trades       int     `json:"trades"`
	ContentPosts int     `json:"content_posts"`
	Builds       int     `json:"builds"`
	Spend        float64 `json:"spend"`
}

type dayUsage struct {
	trades       int
	contentPosts int
	builds       int
	spend        float64
}

// retainDays is how many day buckets are kept for the weekly post count.
const retainDays = 8

// Checker evaluates actions against configured limits and tracks daily
// usage. RecordUsage is the only mutator of usage state; counters only
// increase within a calendar day and reset at the UTC day boundary.
type Checker struct {
	mu     sync.Mutex
	cfg    config.BoundaryConfig
	usage  map[int]*dayUsage // keyed by days since epoch, UTC
	now    func() time.Time
	logger *zap.Logger
}

// NewChecker creates a Checker with the given limits.
func NewChecker(cfg config.BoundaryConfig, logger *zap.Logger) *Checker {
	return &Checker{
		cfg:    cfg,
		usage:  make(map[int]*dayUsage),
		now:    time.Now,
		logger: logger,
	}
}

// SetConfig swaps the limit set, for config hot-reload. Usage counters
// are preserved.
func (c *Checker) SetConfig(cfg config.BoundaryConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// dayIndex converts a time to integer days since epoch in UTC, avoiding
// date-string keys and timezone ambiguity at day boundaries.
func dayIndex(t time.Time) int {
	return int(t.UTC().Unix() / 86_400)
}

// Check evaluates the action against category rules and global limits.
func (c *Checker) Check(a *action.Action, level engine.RiskLevel) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	day := dayIndex(now)
	usage := c.usageFor(day)

	res := Result{
		Usage: Snapshot{
			Day:          day,
			Trades:       usage.trades,
			ContentPosts: usage.contentPosts,
			Builds:       usage.builds,
			Spend:        usage.spend,
		},
	}

	switch a.Category {
	case action.CategoryTrading:
		c.checkTrading(a, usage, &res)
	case action.CategoryContent:
		c.checkContent(a, usage, day, &res)
	case action.CategoryBuild:
		c.checkBuild(a, usage, &res)
	case action.CategoryDeployment:
		c.checkDeployment(a, &res)
	}

	c.checkGlobal(a, usage, now, level, &res)

	res.Passed = len(res.Violations) == 0
	return res
}

// RecordUsage increments the day-bucket counters for an executed action.
// Called exactly once per executed action.
func (c *Checker) RecordUsage(a *action.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := dayIndex(c.now())
	usage := c.usageFor(day)

	switch a.Category {
	case action.CategoryTrading:
		usage.trades++
	case action.CategoryContent:
		usage.contentPosts++
	case action.CategoryBuild:
		usage.builds++
	}
	usage.spend += a.Metadata.EstimatedValue

	c.logger.Debug("usage recorded",
		zap.String("action_id", a.ID),
		zap.String("category", a.Category.String()),
		zap.Float64("spend", usage.spend),
	)
}

// usageFor returns the bucket for a day, creating it and pruning stale
// buckets on first touch. Caller holds the mutex.
func (c *Checker) usageFor(day int) *dayUsage {
	u, ok := c.usage[day]
	if !ok {
		u = &dayUsage{}
		c.usage[day] = u
		for d := range c.usage {
			if d < day-retainDays {
				delete(c.usage, d)
			}
		}
	}
	return u
}

func (c *Checker) checkTrading(a *action.Action, usage *dayUsage, res *Result) {
	lim := c.cfg.Trading

	if lim.MaxDailyTrades > 0 && usage.trades >= lim.MaxDailyTrades {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Daily trade count %d exceeds limit of %d trades", usage.trades, lim.MaxDailyTrades))
	}
	if lim.MaxTradeSize > 0 && a.Metadata.EstimatedValue > lim.MaxTradeSize {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Trade size $%.0f exceeds $%.0f limit", a.Metadata.EstimatedValue, lim.MaxTradeSize))
	}
	if len(lim.AllowedBots) > 0 {
		if bot := paramString(a, "bot"); bot != "" && !contains(lim.AllowedBots, bot) {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Bot %q is not on the allowed list", bot))
		}
	}
	if len(lim.AllowedTokens) > 0 {
		if token := paramString(a, "token"); token != "" && !contains(lim.AllowedTokens, token) {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Token %q is not on the allowed list", token))
		}
	}
	if lim.MaxPositionPct > 0 {
		if pct, ok := paramFloat(a, "position_pct"); ok && pct > lim.MaxPositionPct {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Position %.1f%% exceeds %.1f%% limit", pct, lim.MaxPositionPct))
		}
	}
}

func (c *Checker) checkContent(a *action.Action, usage *dayUsage, day int, res *Result) {
	lim := c.cfg.Content

	if lim.MaxDailyPosts > 0 && usage.contentPosts >= lim.MaxDailyPosts {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Daily post count %d exceeds limit of %d", usage.contentPosts, lim.MaxDailyPosts))
	}
	if lim.MaxWeeklyPosts > 0 {
		weekly := 0
		for d := day - 6; d <= day; d++ {
			if u, ok := c.usage[d]; ok {
				weekly += u.contentPosts
			}
		}
		if weekly >= lim.MaxWeeklyPosts {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Weekly post count %d exceeds limit of %d", weekly, lim.MaxWeeklyPosts))
		}
	}

	text := strings.ToLower(a.Description + " " + paramString(a, "title"))
	for _, topic := range lim.RestrictedTopics {
		if strings.Contains(text, strings.ToLower(topic)) {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Content touches restricted topic %q", topic))
		}
	}
}

func (c *Checker) checkBuild(a *action.Action, usage *dayUsage, res *Result) {
	lim := c.cfg.Build

	if lim.MaxDailyBuilds > 0 && usage.builds >= lim.MaxDailyBuilds {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Daily build count %d exceeds limit of %d", usage.builds, lim.MaxDailyBuilds))
	}
	if lim.MaxAutoCommitLines > 0 && a.Metadata.LinesChanged > lim.MaxAutoCommitLines {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Change of %d lines exceeds auto-commit limit of %d", a.Metadata.LinesChanged, lim.MaxAutoCommitLines))
	}
	if lim.MaxAutoCommitFiles > 0 && a.Metadata.FilesChanged > lim.MaxAutoCommitFiles {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Change of %d files exceeds auto-commit limit of %d", a.Metadata.FilesChanged, lim.MaxAutoCommitFiles))
	}
	for _, p := range paramStrings(a, "paths") {
		for _, restricted := range lim.RestrictedPaths {
			if strings.HasPrefix(p, restricted) {
				res.Violations = append(res.Violations,
					fmt.Sprintf("Path %q is under restricted prefix %q", p, restricted))
			}
		}
	}
}

func (c *Checker) checkDeployment(a *action.Action, res *Result) {
	target := strings.ToLower(paramString(a, "target"))
	switch target {
	case "production":
		if !c.cfg.Deployment.AllowProduction {
			res.Violations = append(res.Violations,
				"Production deployment requires explicit opt-in")
		}
	case "staging":
		if !c.cfg.Deployment.AllowStaging {
			res.Warnings = append(res.Warnings,
				"Staging deployments are disabled; proceeding is discouraged")
		}
	}
}

func (c *Checker) checkGlobal(a *action.Action, usage *dayUsage, now time.Time, level engine.RiskLevel, res *Result) {
	value := a.Metadata.EstimatedValue

	if c.cfg.MaxActionValue > 0 && value > c.cfg.MaxActionValue {
		res.Violations = append(res.Violations,
			fmt.Sprintf("Action value $%.0f exceeds $%.0f limit", value, c.cfg.MaxActionValue))
	} else if c.cfg.AutoApproveCeiling > 0 && value > c.cfg.AutoApproveCeiling {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Action value $%.0f is above the $%.0f auto-approve ceiling", value, c.cfg.AutoApproveCeiling))
	}

	if c.cfg.MaxDailySpend > 0 {
		projected := usage.spend + value
		if projected > c.cfg.MaxDailySpend {
			res.Violations = append(res.Violations,
				fmt.Sprintf("Projected daily spend $%.0f exceeds $%.0f limit", projected, c.cfg.MaxDailySpend))
		} else if projected >= 0.8*c.cfg.MaxDailySpend {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Projected daily spend $%.0f is at %.0f%% of the daily cap", projected, 100*projected/c.cfg.MaxDailySpend))
		}
	}

	if a.Metadata.Urgency != action.UrgencyCritical && c.inQuietHours(now.UTC().Hour()) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Action proposed during quiet hours (%02d:00-%02d:00 UTC)", c.cfg.QuietHoursStart, c.cfg.QuietHoursEnd))
	}

	if level == engine.RiskCritical {
		res.Violations = append(res.Violations,
			"Critical risk level requires escalation")
	}
}

// inQuietHours reports whether the hour falls in the quiet window.
// The window may wrap midnight: start >= end means
// "hour >= start || hour < end". Start == End disables the check.
func (c *Checker) inQuietHours(hour int) bool {
	start, end := c.cfg.QuietHoursStart, c.cfg.QuietHoursEnd
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func paramString(a *action.Action, key string) string {
	if a.Params == nil {
		return ""
	}
	s, _ := a.Params[key].(string)
	return s
}

func paramFloat(a *action.Action, key string) (float64, bool) {
	if a.Params == nil {
		return 0, false
	}
	switch v := a.Params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func paramStrings(a *action.Action, key string) []string {
	if a.Params == nil {
		return nil
	}
	switch v := a.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
