package swap

import (
	"time"
)

// Direction 表示一次兑换的方向。
type Direction int

const (
	// DirectionAToB 用代币A换代币B。
	DirectionAToB Direction = iota
	// DirectionBToA 用代币B换代币A。
	DirectionBToA
)

// DirectionForSlot 返回槽位对应的方向：偶数槽位 A→B，奇数槽位 B→A。
// 方向只随槽位推进，与槽位内消耗了多少次重试无关。
func DirectionForSlot(slot int) Direction {
	if slot%2 == 0 {
		return DirectionAToB
	}
	return DirectionBToA
}

// Opposite 返回相反方向。
func (d Direction) Opposite() Direction {
	if d == DirectionAToB {
		return DirectionBToA
	}
	return DirectionAToB
}

func (d Direction) String() string {
	if d == DirectionAToB {
		return "a_to_b"
	}
	return "b_to_a"
}

// Token 描述参与兑换的代币。
type Token struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// Pair 是固定的一对兑换代币。
type Pair struct {
	TokenA Token `json:"token_a"`
	TokenB Token `json:"token_b"`
}

// Legs 按方向返回输入、输出代币。
func (p Pair) Legs(d Direction) (in Token, out Token) {
	if d == DirectionAToB {
		return p.TokenA, p.TokenB
	}
	return p.TokenB, p.TokenA
}

// Outcome 是一次尝试的三态结果。
// 确认查询失败与链上执行失败语义不同，需要在类型上区分开。
type Outcome string

const (
	// OutcomeSuccess 交易确认成功。
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed 尝试失败（询价、构造、提交或链上执行失败）。
	OutcomeFailed Outcome = "failed"
	// OutcomeAssumedSuccess 确认查询失败，按乐观策略视为成功。
	OutcomeAssumedSuccess Outcome = "assumed_success"
)

// Succeeded 判断该结果是否计入成功。
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomeAssumedSuccess
}

// AttemptResult 记录一次兑换尝试的完整结果，创建后不再修改。
type AttemptResult struct {
	Slot         int           `json:"slot"`
	Attempt      int           `json:"attempt"`
	Direction    Direction     `json:"direction"`
	InputSymbol  string        `json:"input_symbol"`
	OutputSymbol string        `json:"output_symbol"`
	InputAmount  uint64        `json:"input_amount"`
	EstimatedOut uint64        `json:"estimated_out"`
	Signature    string        `json:"signature,omitempty"`
	Duration     time.Duration `json:"duration"`
	FeeLamports  *uint64       `json:"fee_lamports,omitempty"`
	Outcome      Outcome       `json:"outcome"`
	Error        string        `json:"error,omitempty"`
}

// Summary 汇总一个批次的执行结果。
type Summary struct {
	Target           int    `json:"target"`
	Succeeded        int    `json:"succeeded"`
	FailedSlots      int    `json:"failed_slots"`
	TotalAttempts    int    `json:"total_attempts"`
	TotalFeeLamports uint64 `json:"total_fee_lamports"`
}

// Summarize 对结果日志做纯聚合，重复调用产生相同结果。
// 成功槽位按是否存在成功尝试判定，手续费只累计成功尝试的测量值。
func Summarize(results []AttemptResult, target int) Summary {
	summary := Summary{
		Target:        target,
		TotalAttempts: len(results),
	}

	slotSucceeded := make(map[int]bool)
	slotSeen := make(map[int]bool)

	for _, r := range results {
		slotSeen[r.Slot] = true
		if r.Outcome.Succeeded() {
			slotSucceeded[r.Slot] = true
			if r.FeeLamports != nil {
				summary.TotalFeeLamports += *r.FeeLamports
			}
		}
	}

	for slot := range slotSeen {
		if slotSucceeded[slot] {
			summary.Succeeded++
		} else {
			summary.FailedSlots++
		}
	}

	return summary
}
