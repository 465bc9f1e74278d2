package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "swapcycle"
)

// 主网上的 USDC 与 USDT mint 地址。
const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	usdtMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("rpc.endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.request_timeout", "15s")
	v.SetDefault("rpc.confirm_timeout", "60s")
	v.SetDefault("rpc.confirm_poll", "2s")

	v.SetDefault("jupiter.base_url", "https://quote-api.jup.ag")
	v.SetDefault("jupiter.timeout", "15s")

	v.SetDefault("swap.token_a.symbol", "USDC")
	v.SetDefault("swap.token_a.mint", usdcMint)
	v.SetDefault("swap.token_a.decimals", 6)
	v.SetDefault("swap.token_b.symbol", "USDT")
	v.SetDefault("swap.token_b.mint", usdtMint)
	v.SetDefault("swap.token_b.decimals", 6)
	v.SetDefault("swap.amount", "1.0")
	v.SetDefault("swap.slippage_bps", 50)
	v.SetDefault("swap.priority_fee", "auto")
	v.SetDefault("swap.confirmation_policy", "optimistic")
	v.SetDefault("swap.measure_fee", true)

	// 默认节奏按 Jupiter 免费档限速设计：10 笔在 3s 间隔下约 40 次调用/分钟。
	v.SetDefault("batch.target_count", 10)
	v.SetDefault("batch.max_target", 100)
	v.SetDefault("batch.max_retries", 3)
	v.SetDefault("batch.delay", "3s")

	v.SetDefault("database.path", "data/swapcycle.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.port", 8787)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
