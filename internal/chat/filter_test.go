package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/logger"
)

func TestNewFilterCompileErrors(t *testing.T) {
	tests := []struct {
		name      string
		exprs     []string
		wantError bool
	}{
		{
			name:      "no expressions",
			exprs:     nil,
			wantError: false,
		},
		{
			name:      "valid expression",
			exprs:     []string{`content.contains("spam")`},
			wantError: false,
		},
		{
			name:      "invalid syntax",
			exprs:     []string{`content ???`},
			wantError: true,
		},
		{
			name:      "non-bool expression",
			exprs:     []string{`content`},
			wantError: true,
		},
		{
			name:      "undefined variable",
			exprs:     []string{`body == "x"`},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.exprs, logger.NopLogger())
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilterDrop(t *testing.T) {
	f, err := NewFilter([]string{
		`content.contains("spam")`,
		`family == "community" && region == "blocked"`,
	}, logger.NopLogger())
	require.NoError(t, err)

	ctx := context.Background()

	assert.True(t, f.Drop(ctx, FamilyDirect, "buy spam now", "alice", "bob", ""))
	assert.False(t, f.Drop(ctx, FamilyDirect, "hello", "alice", "bob", ""))
	assert.True(t, f.Drop(ctx, FamilyCommunity, "hello", "alice", "", "blocked"))
	assert.False(t, f.Drop(ctx, FamilyCommunity, "hello", "alice", "", "seoul"))
}

func TestFilterEmptyPassesEverything(t *testing.T) {
	f, err := NewFilter(nil, logger.NopLogger())
	require.NoError(t, err)

	assert.False(t, f.Drop(context.Background(), FamilyDirect, "anything", "a", "b", ""))
}
