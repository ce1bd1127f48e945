package safe_random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateRandomBytes 生成指定长度的安全随机字节切片
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("生成随机字节失败: %w", err)
	}
	return b, nil
}

// GenerateRandomHexString 返回 n 字节随机数的 hex 编码 (长度 2n)
func GenerateRandomHexString(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateBase36 生成 n 个 [0-9a-z] 字符
func GenerateBase36(n int) (string, error) {
	max := big.NewInt(int64(len(base36Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("生成随机字符失败: %w", err)
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewID 生成 "<prefix>_<毫秒时间戳>_<9位base36>" 形式的 ID
// 例如 queued_1718000000000_k3j9x0a1b
func NewID(prefix string, now time.Time) string {
	suffix, err := GenerateBase36(9)
	if err != nil {
		// 系统随机源不可用时退化为纳秒部分, 仍保证同一毫秒内大概率不同
		suffix = strconv.FormatInt(int64(now.Nanosecond()), 36)
	}
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
