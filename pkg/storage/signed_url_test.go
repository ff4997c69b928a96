package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignerSignAndVerify(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("staff-1", "schedules/staff-1.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	staffID, path, parsedExpiry, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "staff-1", staffID)
	require.Equal(t, "schedules/staff-1.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("staff-1", "schedules/staff-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Verify(token+"x", false)
	require.Error(t, err)

	other := NewSigner("other-secret", time.Hour)
	_, _, _, err = other.Verify(token, false)
	require.Error(t, err)
}

func TestSignerExpired(t *testing.T) {
	signer := NewSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("staff-1", "schedules/staff-1.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Verify(token, false)
	require.Error(t, err)

	staffID, path, _, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "staff-1", staffID)
	require.Equal(t, "schedules/staff-1.pdf", path)
}
