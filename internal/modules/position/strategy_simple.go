package position

import "fmt"

// SimpleStrategy compares the position ratio to the target range and suggests
// the amount to move back inside it. It never recommends specific funds.
type SimpleStrategy struct{}

// NewSimpleStrategy creates the simple position strategy.
func NewSimpleStrategy() *SimpleStrategy { return &SimpleStrategy{} }

func (s *SimpleStrategy) Name() string        { return "simple" }
func (s *SimpleStrategy) DisplayName() string { return "简单仓位策略" }
func (s *SimpleStrategy) Description() string {
	return "根据目标仓位区间判断是否需要加仓或减仓，不推荐具体基金。"
}

// Evaluate implements Strategy.
func (s *SimpleStrategy) Evaluate(ctx *Context) *Result {
	if ctx.TotalBudget <= 0 {
		return &Result{StrategyName: s.Name(), Summary: noBudgetSummary}
	}

	ratio := ctx.PositionRatio
	lo := ctx.TargetPositionMin
	hi := ctx.TargetPositionMax

	if ratio < lo {
		gap := ctx.TotalBudget*lo/100 - ctx.TotalValue
		return &Result{
			StrategyName: s.Name(),
			Summary:      fmt.Sprintf("当前仓位 %.1f%% 低于下限 %.1f%%，建议加仓约 ¥%.2f。", ratio, lo, gap),
			Metadata:     map[string]interface{}{"action": ActionBuy, "gap": round2f(gap)},
		}
	}

	if ratio > hi {
		excess := ctx.TotalValue - ctx.TotalBudget*hi/100
		return &Result{
			StrategyName: s.Name(),
			Summary:      fmt.Sprintf("当前仓位 %.1f%% 高于上限 %.1f%%，建议减仓约 ¥%.2f。", ratio, hi, excess),
			Metadata:     map[string]interface{}{"action": ActionSell, "excess": round2f(excess)},
		}
	}

	return &Result{
		StrategyName: s.Name(),
		Summary:      fmt.Sprintf("当前仓位 %.1f%%，处于目标区间 [%.1f%%, %.1f%%] 内，无需调仓。", ratio, lo, hi),
		Metadata:     map[string]interface{}{"action": ActionHold},
	}
}
