package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKind(t *testing.T) {
	err := newError(KindFileNotFound, "download", "a.txt", "")
	wrapped := fmt.Errorf("grpc: %w", err)

	assert.ErrorIs(t, wrapped, ErrFileNotFound)
	assert.NotErrorIs(t, wrapped, ErrStorageLimit)
	assert.Equal(t, KindFileNotFound, KindOf(wrapped))
	assert.Equal(t, `download: FileNotFound ("a.txt")`, err.Error())
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindSystemError, KindOf(errors.New("boom")))
}

func TestParseKind(t *testing.T) {
	for k := range kindNames {
		got, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("Nope")
	assert.False(t, ok)
}

func TestErrorUnwrapsDetail(t *testing.T) {
	detail := errors.New("disk on fire")
	err := &Error{Kind: KindSystemError, Op: "get", Err: detail}
	assert.ErrorIs(t, err, detail)
	assert.ErrorIs(t, err, ErrSystem)
}
