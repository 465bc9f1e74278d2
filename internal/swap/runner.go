package swap

import "context"

// Runner 抽象单笔兑换执行，方便在测试中脚本化结果。
type Runner interface {
	ExecuteSwap(ctx context.Context, direction Direction) (AttemptResult, error)
}

var _ Runner = (*Executor)(nil)
