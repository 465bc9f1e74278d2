package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"swapcycle/internal/chain"
	"swapcycle/internal/jupiter"
)

type mockQuoter struct {
	quoteErr   error
	buildErr   error
	quoteCalls int
	buildCalls int
	lastQuote  jupiter.QuoteRequest
}

func (m *mockQuoter) Quote(_ context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error) {
	m.quoteCalls++
	m.lastQuote = req
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return &jupiter.QuoteResponse{OutAmount: "999000", PriceImpactPct: "0.01"}, nil
}

func (m *mockQuoter) BuildSwap(_ context.Context, _ *jupiter.QuoteResponse, _ string, _ jupiter.PriorityFee) (*jupiter.SwapResponse, error) {
	m.buildCalls++
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	return &jupiter.SwapResponse{SwapTransaction: "dGVzdA=="}, nil
}

type mockSender struct {
	sendErr      error
	confirmErr   error
	balances     []uint64
	balanceErr   error
	balanceCalls int
	sendCalls    int
}

func (m *mockSender) SignAndSend(_ context.Context, _ string) (solana.Signature, error) {
	m.sendCalls++
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	return solana.Signature{}, nil
}

func (m *mockSender) Confirm(_ context.Context, _ solana.Signature) error {
	return m.confirmErr
}

func (m *mockSender) LamportBalance(_ context.Context) (uint64, error) {
	idx := m.balanceCalls
	m.balanceCalls++
	if m.balanceErr != nil {
		return 0, m.balanceErr
	}
	if idx < len(m.balances) {
		return m.balances[idx], nil
	}
	return 0, nil
}

func testConfig() ExecutorConfig {
	return ExecutorConfig{
		Pair: Pair{
			TokenA: Token{Symbol: "USDC", Mint: "mintA", Decimals: 6},
			TokenB: Token{Symbol: "USDT", Mint: "mintB", Decimals: 6},
		},
		Amount:        decimal.RequireFromString("1.0"),
		SlippageBps:   50,
		UserPublicKey: "user",
		Optimistic:    true,
		MeasureFee:    true,
	}
}

func TestExecuteSwap_Success(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{balances: []uint64{10_000, 4_000}}
	exec, err := NewExecutor(quoter, sender, testConfig(), nil)
	if err != nil {
		t.Fatalf("NewExecutor returned error: %v", err)
	}

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}

	if result.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeSuccess)
	}
	if result.InputSymbol != "USDC" || result.OutputSymbol != "USDT" {
		t.Errorf("legs = %s->%s, want USDC->USDT", result.InputSymbol, result.OutputSymbol)
	}
	if result.InputAmount != 1_000_000 {
		t.Errorf("inputAmount = %d, want 1000000", result.InputAmount)
	}
	if result.EstimatedOut != 999_000 {
		t.Errorf("estimatedOut = %d, want 999000", result.EstimatedOut)
	}
	if quoter.lastQuote.InputMint != "mintA" || quoter.lastQuote.OutputMint != "mintB" {
		t.Errorf("quote mints = %s->%s, want mintA->mintB", quoter.lastQuote.InputMint, quoter.lastQuote.OutputMint)
	}
	if result.FeeLamports == nil || *result.FeeLamports != 6_000 {
		t.Errorf("feeLamports = %v, want 6000", result.FeeLamports)
	}
	if result.Signature == "" {
		t.Error("expected signature on success")
	}
}

func TestExecuteSwap_ReverseDirection(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionBToA)
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if result.InputSymbol != "USDT" || result.OutputSymbol != "USDC" {
		t.Errorf("legs = %s->%s, want USDT->USDC", result.InputSymbol, result.OutputSymbol)
	}
	if quoter.lastQuote.InputMint != "mintB" {
		t.Errorf("quote input mint = %s, want mintB", quoter.lastQuote.InputMint)
	}
}

func TestExecuteSwap_QuoteFailure(t *testing.T) {
	quoter := &mockQuoter{quoteErr: errors.New("liquidity unavailable")}
	sender := &mockSender{}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err == nil {
		t.Fatal("expected error on quote failure")
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeFailed)
	}
	if !strings.Contains(result.Error, "询价失败") {
		t.Errorf("unexpected error text: %s", result.Error)
	}
	if sender.sendCalls != 0 {
		t.Errorf("sendCalls = %d, want 0", sender.sendCalls)
	}
}

func TestExecuteSwap_SubmitFailure(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{sendErr: errors.New("broadcast rejected")}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err == nil {
		t.Fatal("expected error on submit failure")
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeFailed)
	}
	if result.Signature != "" {
		t.Errorf("signature = %q, want empty", result.Signature)
	}
}

func TestExecuteSwap_OnChainFailure(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{confirmErr: fmt.Errorf("instruction error: %w", chain.ErrTransactionFailed)}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err == nil {
		t.Fatal("expected error on on-chain failure")
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeFailed)
	}
}

// 确认查询失败不同于链上失败：乐观策略下按成功记账。
func TestExecuteSwap_ConfirmQueryErrorOptimistic(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{confirmErr: errors.New("rpc timeout")}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if result.Outcome != OutcomeAssumedSuccess {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeAssumedSuccess)
	}
	if !result.Outcome.Succeeded() {
		t.Error("assumed success must count as success")
	}
}

func TestExecuteSwap_ConfirmQueryErrorPessimistic(t *testing.T) {
	cfg := testConfig()
	cfg.Optimistic = false
	quoter := &mockQuoter{}
	sender := &mockSender{confirmErr: errors.New("rpc timeout")}
	exec, _ := NewExecutor(quoter, sender, cfg, nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err == nil {
		t.Fatal("expected error under pessimistic policy")
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeFailed)
	}
}

// 手续费测量失败不能影响兑换结果，只是降级为未测量。
func TestExecuteSwap_FeeMeasurementDegrades(t *testing.T) {
	quoter := &mockQuoter{}
	sender := &mockSender{balanceErr: errors.New("balance unavailable")}
	exec, _ := NewExecutor(quoter, sender, testConfig(), nil)

	result, err := exec.ExecuteSwap(context.Background(), DirectionAToB)
	if err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if result.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %s, want %s", result.Outcome, OutcomeSuccess)
	}
	if result.FeeLamports != nil {
		t.Errorf("feeLamports = %v, want nil", result.FeeLamports)
	}
}

func TestExecuteSwap_FeeMeasurementDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MeasureFee = false
	quoter := &mockQuoter{}
	sender := &mockSender{}
	exec, _ := NewExecutor(quoter, sender, cfg, nil)

	if _, err := exec.ExecuteSwap(context.Background(), DirectionAToB); err != nil {
		t.Fatalf("ExecuteSwap returned error: %v", err)
	}
	if sender.balanceCalls != 0 {
		t.Errorf("balanceCalls = %d, want 0", sender.balanceCalls)
	}
}
