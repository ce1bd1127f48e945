package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"trevpay/pkg/keystore"
	"trevpay/pkg/logger"

	"github.com/ethereum/go-ethereum/crypto"
)

// LoadSigner 从加密 keystore 文件读取签名私钥
func LoadSigner(path, password string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := keystore.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	secret, err := keystore.Decrypt(keyJSON, password)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return key, nil
}

// LoadOrEphemeralSigner keystore 不存在时生成临时私钥 (仅用于模拟模式)
func LoadOrEphemeralSigner(path, password string) (*ecdsa.PrivateKey, error) {
	key, err := LoadSigner(path, password)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	logger.Warn("Keystore not found, using an ephemeral signer key")
	return crypto.GenerateKey()
}

// NewKeystore 生成新私钥并加密保存, 返回地址
func NewKeystore(path, password string) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	keyJSON, err := keystore.Encrypt(fmt.Sprintf("%x", crypto.FromECDSA(key)), password, address)
	if err != nil {
		return "", err
	}
	if err := keyJSON.SaveToFile(path); err != nil {
		return "", err
	}
	return address, nil
}
