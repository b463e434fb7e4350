package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"competency/internal/platform/auth"
)

func TestTokenCommandIssuesParseableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--user", "u1", "--tenant", "t1", "--role", auth.RoleManager})
	require.NoError(t, root.Execute())

	claims, err := auth.ParseToken("cli-secret", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, auth.RoleManager, claims.RoleName)
}

func TestTokenCommandRequiresTenant(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--user", "u1"})
	assert.Error(t, root.Execute())
}

func TestRejectsUnknownLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "chatty", "token", "--user", "u1", "--tenant", "t1"})
	assert.Error(t, root.Execute())
}
