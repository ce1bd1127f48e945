package safe_random

import (
	"encoding/hex"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomBytes(t *testing.T) {
	n := 32
	b, err := GenerateRandomBytes(n)
	if err != nil {
		t.Fatalf("GenerateRandomBytes 失败: %v", err)
	}
	if len(b) != n {
		t.Errorf("GenerateRandomBytes 返回了 %d 字节, 期望 %d", len(b), n)
	}
}

func TestGenerateRandomHexString(t *testing.T) {
	s, err := GenerateRandomHexString(16)
	require.NoError(t, err)

	decoded, err := hex.DecodeString(s)
	require.NoError(t, err)
	assert.Len(t, decoded, 16)
}

func TestGenerateBase36(t *testing.T) {
	s, err := GenerateBase36(9)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-z]{9}$`, s)
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1718000000123)
	pattern := regexp.MustCompile(`^queued_1718000000123_[0-9a-z]{9}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewID("queued", now)
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
