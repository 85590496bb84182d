package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewNormalizesEmail(t *testing.T) {
	u, err := New("u1", "  Abebe Kebede ", " Abebe@Example.COM ", "", "hash", RoleCustomer)
	require.NoError(t, err)
	require.Equal(t, "abebe@example.com", u.Email)
	require.Equal(t, "Abebe Kebede", u.Name)

	first, last := u.FirstLastName()
	require.Equal(t, "Abebe", first)
	require.Equal(t, "Kebede", last)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("u1", "", "a@b.co", "", "h", RoleCustomer)
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = New("u1", "x", "not-an-email", "", "h", RoleCustomer)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = New("u1", "x", "Name <a@b.co>", "", "h", RoleCustomer)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = New("u1", "x", "a@b.co", "", "h", Role("root"))
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidatePassword(t *testing.T) {
	require.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	require.NoError(t, ValidatePassword("long enough"))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}
	require.True(t, s.Expired(now))
	require.False(t, s.Expired(now.Add(-time.Second)))
}
