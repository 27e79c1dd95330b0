package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subjectClaims(id string) Claims {
	return Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("")
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	m, err := NewTokenManager("secret")
	require.NoError(t, err)

	claims := subjectClaims("user-1")
	claims.Email = "a@example.com"
	token, err := m.Issue(claims, AudienceAccess, time.Hour)
	require.NoError(t, err)

	got, err := m.Parse(token, AudienceAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, jwt.ClaimStrings{AudienceAccess}, got.Audience)
}

func TestParseRejectsExpired(t *testing.T) {
	m, err := NewTokenManager("secret")
	require.NoError(t, err)

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.Issue(subjectClaims("user-1"), AudienceAccess, time.Hour)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = m.Parse(token, AudienceAccess)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = m.Parse(token, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongAudience(t *testing.T) {
	m, err := NewTokenManager("secret")
	require.NoError(t, err)

	token, err := m.Issue(subjectClaims("user-1"), AudienceReset, time.Hour)
	require.NoError(t, err)

	_, err = m.Parse(token, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(token, AudienceReset)
	assert.NoError(t, err)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	a, err := NewTokenManager("secret-a")
	require.NoError(t, err)
	b, err := NewTokenManager("secret-b")
	require.NoError(t, err)

	token, err := a.Issue(subjectClaims("user-1"), AudienceAccess, time.Hour)
	require.NoError(t, err)

	_, err = b.Parse(token, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsUnsignedAndMissingSubject(t *testing.T) {
	m, err := NewTokenManager("secret")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{AudienceAccess},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := m.Issue(Claims{}, AudienceAccess, time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(anonymous, AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("", AudienceAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
