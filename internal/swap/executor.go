package swap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"swapcycle/internal/chain"
	"swapcycle/internal/jupiter"
)

// Quoter 抽象聚合器的询价与交易构造接口。
type Quoter interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
	BuildSwap(ctx context.Context, quote *jupiter.QuoteResponse, userPublicKey string, fee jupiter.PriorityFee) (*jupiter.SwapResponse, error)
}

// TransactionSender 抽象签名提交与确认接口。
type TransactionSender interface {
	SignAndSend(ctx context.Context, encodedTx string) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) error
	LamportBalance(ctx context.Context) (uint64, error)
}

// ExecutorConfig 控制单笔兑换参数。
type ExecutorConfig struct {
	Pair          Pair
	Amount        decimal.Decimal
	SlippageBps   int
	PriorityFee   jupiter.PriorityFee
	UserPublicKey string
	// Optimistic 为真时，确认查询失败按成功处理；否则按失败处理并触发重试。
	Optimistic bool
	MeasureFee bool
}

// Executor 负责端到端执行一笔兑换：询价、构造、签名提交、确认。
type Executor struct {
	quoter Quoter
	sender TransactionSender
	cfg    ExecutorConfig
	logger *zap.Logger
}

// NewExecutor 创建兑换执行器。
func NewExecutor(quoter Quoter, sender TransactionSender, cfg ExecutorConfig, logger *zap.Logger) (*Executor, error) {
	if quoter == nil {
		return nil, errors.New("swap: quoter 不能为空")
	}
	if sender == nil {
		return nil, errors.New("swap: sender 不能为空")
	}
	if cfg.Amount.Sign() <= 0 {
		return nil, errors.New("swap: 兑换金额必须大于0")
	}
	if cfg.SlippageBps <= 0 {
		return nil, errors.New("swap: 滑点必须大于0")
	}
	if cfg.UserPublicKey == "" {
		return nil, errors.New("swap: 缺少用户公钥")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		quoter: quoter,
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ExecuteSwap 按指定方向执行一笔兑换。
// 返回的 AttemptResult 无论成败都有效；err 非空时 Outcome 必为 OutcomeFailed。
func (e *Executor) ExecuteSwap(ctx context.Context, direction Direction) (AttemptResult, error) {
	start := time.Now()
	in, out := e.cfg.Pair.Legs(direction)

	result := AttemptResult{
		Direction:    direction,
		InputSymbol:  in.Symbol,
		OutputSymbol: out.Symbol,
	}

	fail := func(err error) (AttemptResult, error) {
		result.Duration = time.Since(start)
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result, err
	}

	amountIn, err := BaseUnits(e.cfg.Amount, in.Decimals)
	if err != nil {
		return fail(err)
	}
	result.InputAmount = amountIn

	// 手续费测量是尽力而为的增强，任何失败都不影响兑换本身。
	preBalance, preOK := e.balanceSnapshot(ctx)

	quote, err := e.quoter.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   in.Mint,
		OutputMint:  out.Mint,
		Amount:      amountIn,
		SlippageBps: e.cfg.SlippageBps,
	})
	if err != nil {
		return fail(fmt.Errorf("swap: 询价失败: %w", err))
	}
	if estimate, parseErr := strconv.ParseUint(quote.OutAmount, 10, 64); parseErr == nil {
		result.EstimatedOut = estimate
	}

	e.logger.Info("获取报价",
		zap.String("direction", direction.String()),
		zap.String("in", in.Symbol),
		zap.String("out", out.Symbol),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("estimated_out", result.EstimatedOut),
		zap.String("price_impact_pct", quote.PriceImpactPct),
	)

	built, err := e.quoter.BuildSwap(ctx, quote, e.cfg.UserPublicKey, e.cfg.PriorityFee)
	if err != nil {
		return fail(fmt.Errorf("swap: 构造交易失败: %w", err))
	}

	sig, err := e.sender.SignAndSend(ctx, built.SwapTransaction)
	if err != nil {
		return fail(fmt.Errorf("swap: 提交交易失败: %w", err))
	}
	result.Signature = sig.String()

	switch confirmErr := e.sender.Confirm(ctx, sig); {
	case confirmErr == nil:
		result.Outcome = OutcomeSuccess
	case errors.Is(confirmErr, chain.ErrTransactionFailed):
		return fail(fmt.Errorf("swap: 链上执行失败: %w", confirmErr))
	case !e.cfg.Optimistic:
		return fail(fmt.Errorf("swap: 确认交易失败: %w", confirmErr))
	default:
		// 交易可能已经落地，确认查询失败不足以断定兑换失败。
		e.logger.Warn("确认查询失败，按成功记账",
			zap.String("signature", result.Signature),
			zap.Error(confirmErr),
		)
		result.Outcome = OutcomeAssumedSuccess
	}

	if preOK {
		if postBalance, postOK := e.balanceSnapshot(ctx); postOK && preBalance >= postBalance {
			fee := preBalance - postBalance
			result.FeeLamports = &fee
		}
	}

	result.Duration = time.Since(start)

	e.logger.Info("兑换完成",
		zap.String("direction", direction.String()),
		zap.String("signature", result.Signature),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

func (e *Executor) balanceSnapshot(ctx context.Context) (uint64, bool) {
	if !e.cfg.MeasureFee {
		return 0, false
	}
	balance, err := e.sender.LamportBalance(ctx)
	if err != nil {
		e.logger.Debug("查询余额失败，跳过手续费测量", zap.Error(err))
		return 0, false
	}
	return balance, true
}
