package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementFingerprintDeterminism(t *testing.T) {
	sql := "SELECT * FROM users WHERE id = :id"

	fp1 := StatementFingerprint(sql)
	fp2 := StatementFingerprint(sql)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")

	_, err := hex.DecodeString(fp1)
	assert.NoError(t, err)
}

func TestStatementFingerprintChangesWithInput(t *testing.T) {
	a := StatementFingerprint("SELECT * FROM users WHERE id = :id")
	b := StatementFingerprint("SELECT * FROM users WHERE id = :uid")
	assert.NotEqual(t, a, b)
}

func TestParamsHashKeyOrderIndependent(t *testing.T) {
	h1, err := ParamsHash(IRObject{"a": IRInt(1), "b": IRString("x")})
	require.NoError(t, err)
	h2, err := ParamsHash(IRObject{"b": IRString("x"), "a": IRInt(1)})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t,
		hashWithDomain(DomainStatement, data),
		hashWithDomain(DomainParams, data),
	)

	params, err := ParamsHash(IRObject{})
	require.NoError(t, err)
	assert.NotEqual(t, StatementFingerprint("{}"), params)
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc"
	assert.NotEqual(t,
		hashWithDomain("ab", []byte("c")),
		hashWithDomain("a", []byte("bc")),
	)
}

func TestRenderID(t *testing.T) {
	fp := StatementFingerprint("SELECT * FROM t WHERE id = :id")
	p1, err := ParamsHash(IRObject{"id": IRInt(1)})
	require.NoError(t, err)
	p2, err := ParamsHash(IRObject{"id": IRInt(2)})
	require.NoError(t, err)

	assert.Equal(t, RenderID(fp, p1), RenderID(fp, p1))
	assert.NotEqual(t, RenderID(fp, p1), RenderID(fp, p2))
	assert.Len(t, RenderID(fp, p1), 64)
}
