package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"swapcycle/internal/config"
)

// Client 封装 Jupiter v6 询价与交易构造接口。
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient 使用给定配置创建聚合器客户端。
func NewClient(cfg config.JupiterConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("jupiter base_url 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Quote 查询兑换报价。
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if req.InputMint == "" || req.OutputMint == "" {
		return nil, errors.New("jupiter: 询价缺少代币 mint")
	}
	if req.Amount == 0 {
		return nil, errors.New("jupiter: 询价数量不能为0")
	}

	query := url.Values{}
	query.Set("inputMint", req.InputMint)
	query.Set("outputMint", req.OutputMint)
	query.Set("amount", strconv.FormatUint(req.Amount, 10))
	query.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	query.Set("swapMode", "ExactIn")

	endpoint := fmt.Sprintf("%s/v6/quote?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("jupiter: 构造询价请求失败: %w", err)
	}

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jupiter: 询价失败: %w", err)
	}

	var quote QuoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("jupiter: 解析询价响应失败: %w", err)
	}
	quote.raw = body

	return &quote, nil
}

// BuildSwap 基于报价构造待签名的 swap 交易。
func (c *Client) BuildSwap(ctx context.Context, quote *QuoteResponse, userPublicKey string, fee PriorityFee) (*SwapResponse, error) {
	if quote == nil || len(quote.raw) == 0 {
		return nil, errors.New("jupiter: 报价为空")
	}
	if userPublicKey == "" {
		return nil, errors.New("jupiter: 缺少用户公钥")
	}

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.raw,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: fee,
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter: 序列化 swap 请求失败: %w", err)
	}

	endpoint := c.baseURL + "/v6/swap"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("jupiter: 构造 swap 请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jupiter: 构造交易失败: %w", err)
	}

	var swap SwapResponse
	if err := json.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("jupiter: 解析 swap 响应失败: %w", err)
	}
	if swap.SwapTransaction == "" {
		return nil, errors.New("jupiter: swap 响应缺少交易数据")
	}

	return &swap, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	c.logger.Debug("聚合器调用完成",
		zap.String("path", req.URL.Path),
		zap.Duration("latency", time.Since(start)),
	)

	return body, nil
}
