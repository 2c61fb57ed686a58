package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/adminkit/adapters/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adminkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const shopConfig = `
backend:
  url: http://localhost:3000
resources:
  - name: orders
    endpoint: /api/orders
  - name: reports
    endpoints:
      list: {path: /api/reports/search, method: POST}
`

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", "--config", writeConfig(t, shopConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "reports")
	assert.Contains(t, out, "warning:", "reports has no show endpoint")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestValidate_RejectedResource(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: http://localhost:3000
resources:
  - name: orders
    endpoint: /api/orders
  - name: orders
    endpoint: /api/orders2
  - name: broken
    endpoints:
      list: {path: /api/broken, method: FETCH}
`)

	out, err := run(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 resources rejected")
	assert.Contains(t, out, "already registered")
	assert.Contains(t, out, "FETCH")
}

func TestValidate_BadConfig(t *testing.T) {
	_, err := run(t, "validate", "--config", writeConfig(t, "title: no backend\n"))
	require.Error(t, err)
}

func TestResources(t *testing.T) {
	out, err := run(t, "resources", "--config", writeConfig(t, shopConfig))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11, "header plus five actions per resource")
	assert.Equal(t, []string{"RESOURCE", "ACTION", "METHOD", "PATH"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"orders", "edit", "PUT", "/api/orders/:id"}, strings.Fields(lines[4]))
	assert.Equal(t, []string{"reports", "list", "POST", "/api/reports/search"}, strings.Fields(lines[6]))
	assert.Equal(t, []string{"reports", "show", "-", "-"}, strings.Fields(lines[7]))
}

func TestTokenHash(t *testing.T) {
	out, err := run(t, "token", "hash", "s3cret", "--cost", "4")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestTokenIssue(t *testing.T) {
	out, err := run(t, "token", "issue", "--secret", "test-secret", "--subject", "alice", "--role", "admin")
	require.NoError(t, err)

	token := strings.SplitN(out, "\n", 2)[0]
	claims, err := auth.NewTokenService("test-secret", "admin", 0).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenIssue_NoSecret(t *testing.T) {
	_, err := run(t, "token", "issue", "--config", writeConfig(t, shopConfig))
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "adminkit dev"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADMINKIT_TEST_FROM_DOTENV=yes\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("ADMINKIT_TEST_FROM_DOTENV") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "yes", os.Getenv("ADMINKIT_TEST_FROM_DOTENV"))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestResources_JSON(t *testing.T) {
	out, err := run(t, "resources", "--config", writeConfig(t, shopConfig), "-o", "json")
	require.NoError(t, err)

	var body struct {
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 10, body.Count)
	assert.Equal(t, "POST", body.Data[5]["method"])
	assert.Nil(t, body.Data[6]["path"])
}

func TestResources_UnknownFormat(t *testing.T) {
	_, err := run(t, "resources", "--config", writeConfig(t, shopConfig), "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
