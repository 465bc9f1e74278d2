package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// ConfirmationPolicy 决定确认查询失败时的处理方式。
type ConfirmationPolicy string

const (
	// ConfirmationOptimistic 确认查询失败时视为成功，仅留告警。
	ConfirmationOptimistic ConfirmationPolicy = "optimistic"
	// ConfirmationPessimistic 确认查询失败时按失败处理并触发重试。
	ConfirmationPessimistic ConfirmationPolicy = "pessimistic"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Jupiter  JupiterConfig  `mapstructure:"jupiter"`
	Swap     SwapConfig     `mapstructure:"swap"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// RPCConfig 描述 Solana 节点连接信息。
type RPCConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Commitment     string        `mapstructure:"commitment"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPoll    time.Duration `mapstructure:"confirm_poll"`
}

// WalletConfig 描述签名钱包来源，二选一。
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	KeygenFile string `mapstructure:"keygen_file"`
}

// JupiterConfig 描述聚合器 API 连接参数。
type JupiterConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenConfig 描述一种参与兑换的代币。
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Mint     string `mapstructure:"mint"`
	Decimals int    `mapstructure:"decimals"`
}

// SwapConfig 控制单笔兑换参数。
type SwapConfig struct {
	TokenA             TokenConfig        `mapstructure:"token_a"`
	TokenB             TokenConfig        `mapstructure:"token_b"`
	Amount             string             `mapstructure:"amount"`
	SlippageBps        int                `mapstructure:"slippage_bps"`
	PriorityFee        string             `mapstructure:"priority_fee"`
	ConfirmationPolicy ConfirmationPolicy `mapstructure:"confirmation_policy"`
	MeasureFee         bool               `mapstructure:"measure_fee"`
}

// BatchConfig 控制批量兑换节奏。
type BatchConfig struct {
	TargetCount int           `mapstructure:"target_count"`
	MaxTarget   int           `mapstructure:"max_target"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Delay       time.Duration `mapstructure:"delay"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制监控接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// AmountDecimal 将人类可读金额解析为 decimal。
func (c SwapConfig) AmountDecimal() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("解析 swap.amount 失败: %w", err)
	}
	return amount, nil
}

// PriorityFeeAuto 判断优先费是否采用自动模式。
func (c SwapConfig) PriorityFeeAuto() bool {
	return strings.EqualFold(strings.TrimSpace(c.PriorityFee), "auto")
}

// PriorityFeeLamports 返回固定优先费数值，自动模式下为 0。
func (c SwapConfig) PriorityFeeLamports() (uint64, error) {
	if c.PriorityFeeAuto() {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(c.PriorityFee), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("解析 swap.priority_fee 失败: %w", err)
	}
	return v, nil
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.RPC.Endpoint == "" {
		err = multierr.Append(err, errors.New("rpc.endpoint 不能为空"))
	}
	switch c.RPC.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		err = multierr.Append(err, errors.New("rpc.commitment 必须为 processed/confirmed/finalized"))
	}
	if c.RPC.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("rpc.request_timeout 必须大于0"))
	}
	if c.RPC.ConfirmTimeout <= 0 {
		err = multierr.Append(err, errors.New("rpc.confirm_timeout 必须大于0"))
	}
	if c.RPC.ConfirmPoll <= 0 {
		err = multierr.Append(err, errors.New("rpc.confirm_poll 必须大于0"))
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.KeygenFile == "" {
		err = multierr.Append(err, errors.New("wallet.private_key 与 wallet.keygen_file 至少配置一项"))
	}
	if c.Jupiter.BaseURL == "" {
		err = multierr.Append(err, errors.New("jupiter.base_url 不能为空"))
	}
	if c.Jupiter.Timeout <= 0 {
		err = multierr.Append(err, errors.New("jupiter.timeout 必须大于0"))
	}
	err = multierr.Append(err, validateToken("swap.token_a", c.Swap.TokenA))
	err = multierr.Append(err, validateToken("swap.token_b", c.Swap.TokenB))
	if c.Swap.TokenA.Mint != "" && c.Swap.TokenA.Mint == c.Swap.TokenB.Mint {
		err = multierr.Append(err, errors.New("swap.token_a 与 swap.token_b 不能是同一代币"))
	}
	if amount, parseErr := c.Swap.AmountDecimal(); parseErr != nil {
		err = multierr.Append(err, parseErr)
	} else if amount.Sign() <= 0 {
		err = multierr.Append(err, errors.New("swap.amount 必须大于0"))
	}
	if c.Swap.SlippageBps <= 0 || c.Swap.SlippageBps > 10000 {
		err = multierr.Append(err, errors.New("swap.slippage_bps 必须位于(0,10000]"))
	}
	if _, parseErr := c.Swap.PriorityFeeLamports(); parseErr != nil {
		err = multierr.Append(err, parseErr)
	}
	switch c.Swap.ConfirmationPolicy {
	case ConfirmationOptimistic, ConfirmationPessimistic:
	default:
		err = multierr.Append(err, errors.New("swap.confirmation_policy 必须为 optimistic 或 pessimistic"))
	}
	if c.Batch.TargetCount <= 0 {
		err = multierr.Append(err, errors.New("batch.target_count 必须大于0"))
	}
	if c.Batch.MaxTarget <= 0 {
		err = multierr.Append(err, errors.New("batch.max_target 必须大于0"))
	}
	if c.Batch.MaxRetries < 0 {
		err = multierr.Append(err, errors.New("batch.max_retries 不能为负"))
	}
	if c.Batch.Delay < 0 {
		err = multierr.Append(err, errors.New("batch.delay 不能为负"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[1,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}

func validateToken(field string, token TokenConfig) error {
	var err error
	if token.Symbol == "" {
		err = multierr.Append(err, fmt.Errorf("%s.symbol 不能为空", field))
	}
	if token.Mint == "" {
		err = multierr.Append(err, fmt.Errorf("%s.mint 不能为空", field))
	}
	if token.Decimals < 0 || token.Decimals > 18 {
		err = multierr.Append(err, fmt.Errorf("%s.decimals 必须位于[0,18]", field))
	}
	return err
}
