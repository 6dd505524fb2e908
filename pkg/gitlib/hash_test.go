package gitlib_test

import (
	"testing"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitorigin/pkg/gitlib"
)

func TestParseHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    gitlib.Hash
		wantErr bool
	}{
		{
			name:  "lowercase",
			input: "0123456789abcdef0123456789abcdef01234567",
			want: gitlib.Hash{
				0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
				0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
				0x01, 0x23, 0x45, 0x67,
			},
		},
		{
			name:  "uppercase",
			input: "0123456789ABCDEF0123456789ABCDEF01234567",
			want: gitlib.Hash{
				0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
				0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
				0x01, 0x23, 0x45, 0x67,
			},
		},
		{name: "short", input: "abcd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not hex", input: "zz23456789abcdef0123456789abcdef01234567", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := gitlib.ParseHash(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, gitlib.ErrInvalidHash)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHashString(t *testing.T) {
	t.Parallel()

	const hexStr = "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"

	hash, err := gitlib.ParseHash(hexStr)
	require.NoError(t, err)

	assert.Equal(t, hexStr, hash.String())
}

func TestHashOidRoundTrip(t *testing.T) {
	t.Parallel()

	oid, err := git2go.NewOid("a1b2c3d4e5f60718293a4b5c6d7e8f9012345678")
	require.NoError(t, err)

	hash := gitlib.HashFromOid(oid)

	assert.Equal(t, oid.String(), hash.String())
	assert.True(t, oid.Equal(hash.ToOid()))
}
