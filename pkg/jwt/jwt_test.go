package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/Kardex-api/pkg/jwt"
)

const (
	secret = "secreto-de-test"
	issuer = "kardex-core-test"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "bodeguero", issuer, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, role, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "bodeguero", role)
}

func TestParse_SecretoIncorrectoFalla(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "admin", issuer, 60)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secreto", tok)
	assert.Error(t, err)
}

func TestParse_TokenExpiradoFalla(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "admin", issuer, -1)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_BasuraFalla(t *testing.T) {
	_, _, err := pkgjwt.Parse(secret, "no.es.jwt")
	assert.Error(t, err)
}
