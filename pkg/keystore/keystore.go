// Package keystore stores the payment signer's private key encrypted at rest
// (scrypt key derivation + AES-256-GCM).
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"trevpay/pkg/safe_random"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// ErrInvalidPassword 密码错误或文件被篡改
var ErrInvalidPassword = errors.New("invalid password or corrupted data (MAC mismatch)")

// EncryptedKeyJSON 参照 Ethereum Keystore V3 的结构
type EncryptedKeyJSON struct {
	Address string     `json:"address,omitempty"` // 明文地址, 便于识别
	Crypto  CryptoJSON `json:"crypto"`
	Id      string     `json:"id"`
	Version int        `json:"version"`
}

type CryptoJSON struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

type CipherParams struct {
	IV string `json:"iv"`
}

type KDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

const (
	scryptN     = 1 << 15
	scryptR     = 8
	scryptP     = 1
	scryptDKLen = 32
)

// Encrypt 用密码加密 secret (例如 hex 私钥)
func Encrypt(secret, password, address string) (*EncryptedKeyJSON, error) {
	salt, err := safe_random.GenerateRandomBytes(32)
	if err != nil {
		return nil, err
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce, err := safe_random.GenerateRandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(secret), nil)

	// MAC = SHA256(derivedKey || ciphertext)
	mac := sha256.Sum256(append(append([]byte{}, derivedKey...), ciphertext...))

	return &EncryptedKeyJSON{
		Address: address,
		Version: 3,
		Id:      uuid.NewString(),
		Crypto: CryptoJSON{
			Cipher:       "aes-256-gcm",
			CipherText:   hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{IV: hex.EncodeToString(nonce)},
			KDF:          "scrypt",
			KDFParams: KDFParams{
				DKLen: scryptDKLen,
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac[:]),
		},
	}, nil
}

// Decrypt 解密得到 secret
func Decrypt(keyJSON *EncryptedKeyJSON, password string) (string, error) {
	c := keyJSON.Crypto
	if c.KDF != "scrypt" || c.Cipher != "aes-256-gcm" {
		return "", fmt.Errorf("unsupported keystore kdf/cipher: %s/%s", c.KDF, c.Cipher)
	}

	salt, err := hex.DecodeString(c.KDFParams.Salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	nonce, err := hex.DecodeString(c.CipherParams.IV)
	if err != nil {
		return "", fmt.Errorf("invalid iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(c.CipherText)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext: %w", err)
	}
	mac, err := hex.DecodeString(c.MAC)
	if err != nil {
		return "", fmt.Errorf("invalid mac: %w", err)
	}

	derivedKey, err := scrypt.Key([]byte(password), salt, c.KDFParams.N, c.KDFParams.R, c.KDFParams.P, c.KDFParams.DKLen)
	if err != nil {
		return "", err
	}

	calculated := sha256.Sum256(append(append([]byte{}, derivedKey...), ciphertext...))
	if subtle.ConstantTimeCompare(mac, calculated[:]) != 1 {
		return "", ErrInvalidPassword
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SaveToFile 保存到文件 (权限 0600)
func (k *EncryptedKeyJSON) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0600)
}

// LoadFromFile 从文件加载
func LoadFromFile(filename string) (*EncryptedKeyJSON, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var k EncryptedKeyJSON
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse keystore %s: %w", filename, err)
	}
	return &k, nil
}
