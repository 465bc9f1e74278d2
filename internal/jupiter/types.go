package jupiter

import (
	"encoding/json"
	"fmt"
)

// QuoteRequest 描述一次询价参数。
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

// QuoteResponse 是聚合器返回的询价结果。
// raw 保存原始报文，构造 swap 交易时原样回传。
type QuoteResponse struct {
	InputMint            string `json:"inputMint"`
	InAmount             string `json:"inAmount"`
	OutputMint           string `json:"outputMint"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SwapMode             string `json:"swapMode"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`

	raw json.RawMessage
}

// Raw 返回询价的原始报文。
func (q *QuoteResponse) Raw() json.RawMessage {
	return q.raw
}

// PriorityFee 描述交易优先费设置。
type PriorityFee struct {
	Auto     bool
	Lamports uint64
}

// MarshalJSON 按聚合器约定输出 "auto" 或具体 lamports 数值。
func (p PriorityFee) MarshalJSON() ([]byte, error) {
	if p.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(p.Lamports)
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports PriorityFee     `json:"prioritizationFeeLamports"`
}

// SwapResponse 是聚合器返回的待签名交易。
type SwapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// APIError 表示聚合器返回的非 2xx 响应。
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jupiter: 接口返回 %d: %s", e.Status, e.Body)
}
