package phone

import (
	"errors"
	"testing"

	"github.com/openmca/auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AlreadyE164(t *testing.T) {
	got, err := Normalize("+12025550123")
	require.NoError(t, err)
	assert.Equal(t, "+12025550123", got)
}

func TestNormalize_StripsFormatting(t *testing.T) {
	got, err := Normalize("+1 (202) 555-0123")
	require.NoError(t, err)
	assert.Equal(t, "+12025550123", got)
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	_, err := Normalize("not-a-phone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestNormalize_RejectsNationalFormat(t *testing.T) {
	// Without a leading + there is no country to parse against.
	_, err := Normalize("2025550123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestNormalize_RejectsTooShort(t *testing.T) {
	_, err := Normalize("+1202")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
