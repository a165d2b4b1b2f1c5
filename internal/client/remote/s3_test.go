package remote

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocKey_Layout(t *testing.T) {
	require.Equal(t, "users/u1/receipts/r1.json", docKey("u1", "r1"))
	require.True(t, strings.HasPrefix(docKey("u1", "r1"), docPrefix("u1")))
}

func TestNewBlobKey_FreshPerCall(t *testing.T) {
	a := NewBlobKey("u1")
	b := NewBlobKey("u1")

	require.True(t, strings.HasPrefix(a, "users/u1/images/"))
	require.True(t, strings.HasSuffix(a, ".jpg"))
	require.NotEqual(t, a, b, "uploads must never reuse a blob location")
}
