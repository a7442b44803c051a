package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDesktopIdentitiesConsistentHeaders(t *testing.T) {
	t.Parallel()

	for _, id := range DesktopIdentities() {
		require.NotEmpty(t, id.UserAgent, id.Name)
		require.NotEmpty(t, id.Headers.Get("Accept"), id.Name)
		require.False(t, id.Mobile, id.Name)
	}
	for _, id := range MobileIdentities() {
		require.True(t, id.Mobile, id.Name)
	}
}

func TestRotatorPickOtherDiffers(t *testing.T) {
	t.Parallel()

	r := NewRotator(42)
	current := r.Pick()
	for i := 0; i < 50; i++ {
		next := r.PickOther(current)
		require.NotEqual(t, current.Name, next.Name)
	}
}

func TestRotatorPickMobile(t *testing.T) {
	t.Parallel()

	r := NewRotator(7)
	for i := 0; i < 20; i++ {
		require.True(t, r.PickMobile().Mobile)
	}
}
