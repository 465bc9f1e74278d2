package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"swapcycle/internal/config"
	"swapcycle/internal/wallet"
)

// ErrTransactionFailed 表示交易已上链但执行失败。
// 确认查询本身的网络错误不会包装这个哨兵，两类错误上层处理方式不同。
var ErrTransactionFailed = errors.New("chain: transaction failed on-chain")

// Client 封装 Solana RPC：签名提交、确认查询与余额读取。
type Client struct {
	rpc        *rpc.Client
	wallet     *wallet.Wallet
	commitment rpc.CommitmentType
	reqTimeout time.Duration
	cfmTimeout time.Duration
	cfmPoll    time.Duration
	logger     *zap.Logger
}

// NewClient 构造 RPC 客户端。
func NewClient(cfg config.RPCConfig, w *wallet.Wallet, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("rpc endpoint 不能为空")
	}
	if w == nil {
		return nil, errors.New("钱包不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		rpc:        rpc.New(cfg.Endpoint),
		wallet:     w,
		commitment: rpc.CommitmentType(cfg.Commitment),
		reqTimeout: cfg.RequestTimeout,
		cfmTimeout: cfg.ConfirmTimeout,
		cfmPoll:    cfg.ConfirmPoll,
		logger:     logger,
	}, nil
}

// SignAndSend 解码 base64 交易、签名并提交。
// 跳过预检模拟以降低提交延迟，失败类交易交由确认阶段判定。
func (c *Client) SignAndSend(ctx context.Context, encodedTx string) (solana.Signature, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedTx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("解码交易失败: %w", err)
	}

	trx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("反序列化交易失败: %w", err)
	}

	if _, err := trx.Sign(c.wallet.Signer()); err != nil {
		return solana.Signature{}, fmt.Errorf("签名交易失败: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	sig, err := c.rpc.SendTransactionWithOpts(reqCtx, trx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("提交交易失败: %w", err)
	}

	c.logger.Debug("交易已提交", zap.String("signature", sig.String()))
	return sig, nil
}

// Confirm 轮询签名状态直至达到配置的确认级别或超时。
// 链上执行失败返回包装了 ErrTransactionFailed 的错误，其余错误均视为查询失败。
func (c *Client) Confirm(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(c.cfmTimeout)
	ticker := time.NewTicker(c.cfmPoll)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, sig)
		if err != nil {
			return fmt.Errorf("查询交易状态失败: %w", err)
		}

		if status != nil {
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if c.reached(status.ConfirmationStatus) {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("等待交易确认超时: %s", sig)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LamportBalance 读取钱包 SOL 余额，用于手续费估算。
func (c *Client) LamportBalance(ctx context.Context) (uint64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	result, err := c.rpc.GetBalance(reqCtx, c.wallet.PublicKey(), c.commitment)
	if err != nil {
		return 0, fmt.Errorf("查询余额失败: %w", err)
	}
	return result.Value, nil
}

func (c *Client) signatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	result, err := c.rpc.GetSignatureStatuses(reqCtx, true, sig)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func (c *Client) reached(status rpc.ConfirmationStatusType) bool {
	switch c.commitment {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}
