package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusUnprocessableEntity,
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorization:  http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindDomain:         http.StatusBadRequest,
		KindInfrastructure: http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestSentinelMatchingSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("remove role: %w", Domain("user does not have this role"))

	assert.ErrorIs(t, err, ErrDomain)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindDomain, KindOf(err))
	assert.True(t, IsKind(err, KindDomain))
}

func TestUnclassifiedErrorsAreInfrastructure(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.False(t, IsKind(err, KindValidation))
}

func TestInfrastructureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Infrastructure(cause, "load user")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInfrastructure)
	assert.Equal(t, "load user: connection refused", err.Error())
}

func TestWithField(t *testing.T) {
	err := Validation("The given data was invalid.").WithField("email", "The email has already been taken.")
	assert.Equal(t, "The email has already been taken.", err.Fields["email"])
}
