package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"swapcycle/internal/config"
)

// Wallet 持有签名私钥，整个批次共用同一签名身份。
type Wallet struct {
	key solana.PrivateKey
}

// Load 按配置加载签名私钥，配置无效时直接失败且不重试。
func Load(cfg config.WalletConfig) (*Wallet, error) {
	switch {
	case cfg.PrivateKey != "":
		key, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("解析 base58 私钥失败: %w", err)
		}
		return &Wallet{key: key}, nil
	case cfg.KeygenFile != "":
		key, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.KeygenFile)
		if err != nil {
			return nil, fmt.Errorf("读取密钥文件 %q 失败: %w", cfg.KeygenFile, err)
		}
		return &Wallet{key: key}, nil
	default:
		return nil, errors.New("未配置钱包私钥")
	}
}

// PublicKey 返回钱包公钥。
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// Signer 返回按公钥检索私钥的回调，供交易签名使用。
func (w *Wallet) Signer() func(key solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if w.key.PublicKey().Equals(key) {
			return &w.key
		}
		return nil
	}
}
