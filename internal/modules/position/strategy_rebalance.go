package position

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Asset classes the rebalance strategy allocates across.
var rebalanceClasses = []string{"equity", "bond", "gold"}

var classLabels = map[string]string{
	"equity": "权益",
	"bond":   "债券",
	"gold":   "黄金",
}

type classTarget struct {
	Target float64
	Min    float64
	Max    float64
}

var defaultTargets = map[string]classTarget{
	"equity": {Target: 70, Min: 65, Max: 75},
	"bond":   {Target: 10, Min: 8, Max: 12},
	"gold":   {Target: 20, Min: 16, Max: 24},
}

const (
	defaultExecutionWindowDays     = 5
	defaultMinPositionForRebalance = 80.0
)

// AssetRebalanceStrategy keeps the portfolio near target equity/bond/gold
// weights. Rebalancing only triggers inside the last-N-days-of-month execution
// window, and never before the position itself reaches a minimum ratio —
// below that, building the position comes first.
type AssetRebalanceStrategy struct {
	now func() time.Time
}

// NewAssetRebalanceStrategy creates the rebalance strategy using the given
// clock; nil uses time.Now.
func NewAssetRebalanceStrategy(now func() time.Time) *AssetRebalanceStrategy {
	if now == nil {
		now = time.Now
	}
	return &AssetRebalanceStrategy{now: now}
}

func (s *AssetRebalanceStrategy) Name() string        { return "asset_rebalance" }
func (s *AssetRebalanceStrategy) DisplayName() string { return "资产再平衡策略" }
func (s *AssetRebalanceStrategy) Description() string {
	return "按权益/债券/黄金三类资产设定目标比例，当偏离触发阈值时在每月末执行窗口内给出再平衡建议。"
}

// ClassifyFund maps a fund type string to equity/bond/gold.
func ClassifyFund(fundType string) string {
	ft := strings.ToLower(fundType)
	if strings.Contains(ft, "债") {
		return "bond"
	}
	if strings.Contains(ft, "黄金") || strings.Contains(ft, "贵金属") {
		return "gold"
	}
	return "equity"
}

// Evaluate implements Strategy.
func (s *AssetRebalanceStrategy) Evaluate(ctx *Context) *Result {
	if ctx.TotalBudget <= 0 {
		return &Result{StrategyName: s.Name(), Summary: noBudgetSummary}
	}

	targets := s.targets(ctx)
	windowDays := int(ctx.Config.Get("execution_window_days").IntOr(defaultExecutionWindowDays))
	minPosition := ctx.Config.Get("min_position_for_rebalance").FloatOr(defaultMinPositionForRebalance)

	classValues := map[string]float64{"equity": 0, "bond": 0, "gold": 0}
	for _, h := range ctx.Holdings {
		classValues[ClassifyFund(h.FundType)] += h.MarketValue
	}
	totalValue := classValues["equity"] + classValues["bond"] + classValues["gold"]

	classRatios := map[string]float64{}
	for _, cls := range rebalanceClasses {
		if totalValue > 0 {
			classRatios[cls] = classValues[cls] / totalValue * 100
		}
	}

	// Below the minimum position, fill the position before rebalancing.
	if ctx.PositionRatio < minPosition {
		gap := ctx.TotalBudget*minPosition/100 - ctx.TotalValue
		return &Result{
			StrategyName: s.Name(),
			Summary: fmt.Sprintf(
				"当前仓位 %.1f%% 低于再平衡最低仓位要求 %.0f%%，优先补充仓位至 %.0f%% 以上（约需买入 ¥%.2f），达标后再执行资产再平衡。",
				ctx.PositionRatio, minPosition, minPosition, gap),
			Suggestions: []Suggestion{{
				FundName: "补充仓位",
				Action:   ActionBuy,
				Amount:   round2f(gap),
				Reason:   fmt.Sprintf("仓位 %.1f%% 不足 %.0f%%，建议先补仓", ctx.PositionRatio, minPosition),
			}},
			Metadata: map[string]interface{}{
				"action":                     "fill_position",
				"position_ratio":             round2f(ctx.PositionRatio),
				"min_position_for_rebalance": minPosition,
				"gap":                        round2f(gap),
				"class_ratios":               roundMap(classRatios),
				"class_values":               roundMap(classValues),
			},
		}
	}

	statusLines := make([]string, 0, len(rebalanceClasses))
	for _, cls := range rebalanceClasses {
		t := targets[cls]
		statusLines = append(statusLines, fmt.Sprintf(
			"%s：当前 %.1f%%（目标 %.0f%%，区间 %.0f%%-%.0f%%）",
			classLabels[cls], classRatios[cls], t.Target, t.Min, t.Max))
	}

	today := s.now()
	lastDay := daysInMonth(today)
	if today.Day() <= lastDay-windowDays {
		windowStart := lastDay - windowDays + 1
		return &Result{
			StrategyName: s.Name(),
			Summary: fmt.Sprintf("当前非执行窗口（本月执行窗口：%d月%d日-%d日）。\n%s",
				int(today.Month()), windowStart, lastDay, strings.Join(statusLines, "\n")),
			Metadata: map[string]interface{}{
				"action":       ActionHold,
				"in_window":    false,
				"class_ratios": roundMap(classRatios),
				"class_values": roundMap(classValues),
			},
		}
	}

	var suggestions []Suggestion
	var triggered []string
	for _, cls := range rebalanceClasses {
		label := classLabels[cls]
		t := targets[cls]
		ratio := classRatios[cls]
		targetValue := totalValue * t.Target / 100

		if ratio < t.Min {
			gap := targetValue - classValues[cls]
			triggered = append(triggered, label)
			suggestions = append(suggestions, Suggestion{
				FundCode: cls,
				FundName: label + "类资产",
				Action:   ActionBuy,
				Amount:   round2f(gap),
				Reason: fmt.Sprintf("%s占比 %.1f%% 低于下限 %.0f%%，建议买入约 ¥%.2f 至目标 %.0f%%",
					label, ratio, t.Min, gap, t.Target),
			})
		} else if ratio > t.Max {
			excess := classValues[cls] - targetValue
			triggered = append(triggered, label)
			suggestions = append(suggestions, Suggestion{
				FundCode: cls,
				FundName: label + "类资产",
				Action:   ActionSell,
				Amount:   round2f(excess),
				Reason: fmt.Sprintf("%s占比 %.1f%% 高于上限 %.0f%%，建议卖出约 ¥%.2f 至目标 %.0f%%",
					label, ratio, t.Max, excess, t.Target),
			})
		}
	}

	summary := "执行窗口内，各资产类别均在目标区间内，无需调仓。\n" + strings.Join(statusLines, "\n")
	action := ActionHold
	if len(suggestions) > 0 {
		summary = fmt.Sprintf("执行窗口内，以下资产类别触发再平衡：%s。\n%s",
			strings.Join(triggered, "、"), strings.Join(statusLines, "\n"))
		action = "rebalance"
	}

	return &Result{
		StrategyName: s.Name(),
		Summary:      summary,
		Suggestions:  suggestions,
		Metadata: map[string]interface{}{
			"action":       action,
			"in_window":    true,
			"class_ratios": roundMap(classRatios),
			"class_values": roundMap(classValues),
		},
	}
}

// targets merges configured per-class overrides over the defaults.
func (s *AssetRebalanceStrategy) targets(ctx *Context) map[string]classTarget {
	merged := make(map[string]classTarget, len(defaultTargets))
	configured := ctx.Config.Get("targets")
	for cls, def := range defaultTargets {
		t := def
		if override := configured.Get(cls); !override.IsNull() {
			t.Target = override.Get("target").FloatOr(def.Target)
			t.Min = override.Get("min").FloatOr(def.Min)
			t.Max = override.Get("max").FloatOr(def.Max)
		}
		merged[cls] = t
	}
	return merged
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

func round2f(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2f(v)
	}
	return out
}
