package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapcycle/internal/chain"
	"swapcycle/internal/config"
	"swapcycle/internal/jupiter"
	"swapcycle/internal/monitor"
	"swapcycle/internal/store"
	"swapcycle/internal/swap"
	"swapcycle/internal/wallet"
)

// App 聚合核心依赖并驱动一次批量兑换。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// observerChain 把监控事件同时送入事件表与指标。
type observerChain struct {
	svc     *monitor.Service
	metrics *monitor.Metrics
}

func (o *observerChain) ObserveAttempt(ctx context.Context, result swap.AttemptResult) {
	o.svc.RecordAttempt(ctx, result)
	o.metrics.ObserveAttempt(result)
}

func (o *observerChain) ObserveSummary(ctx context.Context, summary swap.Summary) {
	o.svc.RecordSummary(ctx, summary)
}

// Run 组装依赖并执行批次。targetOverride 大于0时覆盖配置中的目标笔数。
func (a *App) Run(ctx context.Context, targetOverride int) error {
	w, err := wallet.Load(a.cfg.Wallet)
	if err != nil {
		return fmt.Errorf("加载钱包失败: %w", err)
	}

	a.logger.Info("兑换系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("wallet", w.PublicKey().String()),
		zap.String("pair", fmt.Sprintf("%s/%s", a.cfg.Swap.TokenA.Symbol, a.cfg.Swap.TokenB.Symbol)),
	)

	chainClient, err := chain.NewClient(a.cfg.RPC, w, a.logger)
	if err != nil {
		return fmt.Errorf("初始化链上客户端失败: %w", err)
	}

	jupiterClient, err := jupiter.NewClient(a.cfg.Jupiter, a.logger)
	if err != nil {
		return fmt.Errorf("初始化聚合器客户端失败: %w", err)
	}

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}
	metrics := monitor.NewMetrics()

	executor, err := a.buildExecutor(jupiterClient, chainClient, w)
	if err != nil {
		return fmt.Errorf("初始化执行器失败: %w", err)
	}

	observer := &observerChain{svc: monitorSvc, metrics: metrics}
	engine, err := swap.NewEngine(executor, a.cfg.Batch.MaxRetries, observer, a.logger)
	if err != nil {
		return fmt.Errorf("初始化批量引擎失败: %w", err)
	}

	target := a.resolveTarget(targetOverride)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	if a.cfg.Monitor.Enabled {
		group.Go(func() error {
			return serveMonitor(groupCtx, monitorSvc, metrics, a.cfg.Monitor.Port, a.logger)
		})
	}

	group.Go(func() error {
		defer cancel()

		summary, runErr := engine.RunBatch(groupCtx, target, a.cfg.Batch.Delay)
		a.reportSummary(summary)
		if runErr != nil {
			monitorSvc.RecordError(groupCtx, "批次执行中断", runErr, map[string]interface{}{
				"target":    target,
				"succeeded": summary.Succeeded,
			})
			return fmt.Errorf("批次执行失败: %w", runErr)
		}
		return nil
	})

	return group.Wait()
}

func (a *App) buildExecutor(quoter swap.Quoter, sender swap.TransactionSender, w *wallet.Wallet) (*swap.Executor, error) {
	amount, err := a.cfg.Swap.AmountDecimal()
	if err != nil {
		return nil, err
	}

	feeLamports, err := a.cfg.Swap.PriorityFeeLamports()
	if err != nil {
		return nil, err
	}

	return swap.NewExecutor(quoter, sender, swap.ExecutorConfig{
		Pair: swap.Pair{
			TokenA: tokenFromConfig(a.cfg.Swap.TokenA),
			TokenB: tokenFromConfig(a.cfg.Swap.TokenB),
		},
		Amount:      amount,
		SlippageBps: a.cfg.Swap.SlippageBps,
		PriorityFee: jupiter.PriorityFee{
			Auto:     a.cfg.Swap.PriorityFeeAuto(),
			Lamports: feeLamports,
		},
		UserPublicKey: w.PublicKey().String(),
		Optimistic:    a.cfg.Swap.ConfirmationPolicy == config.ConfirmationOptimistic,
		MeasureFee:    a.cfg.Swap.MeasureFee,
	}, a.logger)
}

func (a *App) resolveTarget(override int) int {
	target := a.cfg.Batch.TargetCount
	if override > 0 {
		target = override
	}
	if target > a.cfg.Batch.MaxTarget {
		a.logger.Warn("目标笔数超过上限，已收敛",
			zap.Int("requested", target),
			zap.Int("max", a.cfg.Batch.MaxTarget),
		)
		target = a.cfg.Batch.MaxTarget
	}
	return target
}

func (a *App) reportSummary(summary swap.Summary) {
	a.logger.Info("批次汇总",
		zap.Int("target", summary.Target),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed_slots", summary.FailedSlots),
		zap.Int("total_attempts", summary.TotalAttempts),
		zap.String("total_fee_sol", swap.LamportsToSOL(summary.TotalFeeLamports).String()),
	)
}

func tokenFromConfig(cfg config.TokenConfig) swap.Token {
	return swap.Token{
		Symbol:   cfg.Symbol,
		Mint:     cfg.Mint,
		Decimals: cfg.Decimals,
	}
}
