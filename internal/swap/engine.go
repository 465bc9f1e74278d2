package swap

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Observer 接收批次执行过程中的观测事件。
type Observer interface {
	ObserveAttempt(ctx context.Context, result AttemptResult)
	ObserveSummary(ctx context.Context, summary Summary)
}

// Engine 驱动批量兑换：按槽位交替方向、槽位内重试、槽位间限速。
// 整个批次严格串行，同一签名身份不允许并发提交交易。
type Engine struct {
	runner     Runner
	maxRetries int
	observer   Observer
	logger     *zap.Logger
}

// NewEngine 创建批量执行引擎。maxRetries 是每个槽位首次尝试之外的重试上限。
func NewEngine(runner Runner, maxRetries int, observer Observer, logger *zap.Logger) (*Engine, error) {
	if runner == nil {
		return nil, errors.New("swap: runner 不能为空")
	}
	if maxRetries < 0 {
		return nil, errors.New("swap: maxRetries 不能为负")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		runner:     runner,
		maxRetries: maxRetries,
		observer:   observer,
		logger:     logger,
	}, nil
}

// RunBatch 执行批次直到累计成功 target 笔。
// 槽位重试耗尽记为失败槽位并继续推进，取消信号在槽位边界生效，
// 此时返回已产生的部分汇总与上下文错误。
func (e *Engine) RunBatch(ctx context.Context, target int, delay time.Duration) (Summary, error) {
	if target <= 0 {
		return Summary{}, errors.New("swap: 目标笔数必须大于0")
	}
	if delay < 0 {
		return Summary{}, errors.New("swap: 间隔不能为负")
	}

	results := make([]AttemptResult, 0, target)
	succeeded := 0
	slot := 0

	for succeeded < target {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("批次在槽位边界被取消",
				zap.Int("slot", slot),
				zap.Int("succeeded", succeeded),
			)
			return Summarize(results, target), err
		}

		direction := DirectionForSlot(slot)
		resolved := false

		for attempt := 1; attempt <= e.maxRetries+1; attempt++ {
			result, err := e.runner.ExecuteSwap(ctx, direction)
			result.Slot = slot
			result.Attempt = attempt
			results = append(results, result)
			e.observeAttempt(ctx, result)

			if err == nil {
				resolved = true
				break
			}

			e.logger.Warn("兑换尝试失败",
				zap.Int("slot", slot),
				zap.Int("attempt", attempt),
				zap.String("direction", direction.String()),
				zap.Error(err),
			)

			if attempt <= e.maxRetries {
				if waitErr := e.wait(ctx, delay); waitErr != nil {
					return Summarize(results, target), waitErr
				}
			}
		}

		if resolved {
			succeeded++
			e.logger.Info("槽位完成",
				zap.Int("slot", slot),
				zap.String("direction", direction.String()),
				zap.Int("succeeded", succeeded),
				zap.Int("target", target),
			)
		} else {
			// 重试预算耗尽：记为失败槽位并继续，不让批次卡死。
			e.logger.Error("槽位重试耗尽",
				zap.Int("slot", slot),
				zap.String("direction", direction.String()),
				zap.Int("attempts", e.maxRetries+1),
			)
		}

		slot++

		if succeeded < target {
			if waitErr := e.wait(ctx, delay); waitErr != nil {
				return Summarize(results, target), waitErr
			}
		}
	}

	summary := Summarize(results, target)
	e.observeSummary(ctx, summary)

	e.logger.Info("批次完成",
		zap.Int("target", summary.Target),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed_slots", summary.FailedSlots),
		zap.Int("total_attempts", summary.TotalAttempts),
		zap.Uint64("total_fee_lamports", summary.TotalFeeLamports),
	)

	return summary, nil
}

// wait 在尝试之间等待限速间隔，外部 API 有按钱包的调用频率上限。
func (e *Engine) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) observeAttempt(ctx context.Context, result AttemptResult) {
	if e.observer != nil {
		e.observer.ObserveAttempt(ctx, result)
	}
}

func (e *Engine) observeSummary(ctx context.Context, summary Summary) {
	if e.observer != nil {
		e.observer.ObserveSummary(ctx, summary)
	}
}
