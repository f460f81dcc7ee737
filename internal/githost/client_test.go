package githost

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"

	shipkiterrors "github.com/shipkit-io/shipkit/internal/errors"
	"github.com/shipkit-io/shipkit/internal/exec"
)

// testClient points a Client at a local test server.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return newFromGitHub(gh)
}

func TestConfigureRepo(t *testing.T) {
	var body map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/acme/falcon", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{}`))
	}))

	err := client.ConfigureRepo(context.Background(), "acme", "falcon", DefaultRepoSettings())
	require.NoError(t, err)

	assert.Equal(t, true, body["delete_branch_on_merge"])
	assert.Equal(t, true, body["allow_squash_merge"])
	assert.Equal(t, false, body["allow_merge_commit"])
	assert.Equal(t, false, body["allow_rebase_merge"])
	assert.Equal(t, false, body["has_wiki"])
}

func TestEnableSecurityFeatures(t *testing.T) {
	var paths []string
	var edit map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPatch {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&edit))
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.EnableSecurityFeatures(context.Background(), "acme", "falcon")
	require.NoError(t, err)

	assert.Contains(t, paths, "PUT /repos/acme/falcon/vulnerability-alerts")
	assert.Contains(t, paths, "PUT /repos/acme/falcon/automated-security-fixes")
	assert.Contains(t, paths, "PUT /repos/acme/falcon/private-vulnerability-reporting")

	analysis, ok := edit["security_and_analysis"].(map[string]interface{})
	require.True(t, ok)
	scanning := analysis["secret_scanning"].(map[string]interface{})
	assert.Equal(t, "enabled", scanning["status"])
	push := analysis["secret_scanning_push_protection"].(map[string]interface{})
	assert.Equal(t, "enabled", push["status"])
}

func TestProtectBranch(t *testing.T) {
	var body map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/acme/falcon/branches/main/protection", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{}`))
	}))

	err := client.ProtectBranch(context.Background(), "acme", "falcon", "main", ProtectionRule{
		RequiredReviews:   2,
		RequireCodeOwners: true,
		RequiredChecks:    []string{"test", "lint"},
		EnforceAdmins:     true,
	})
	require.NoError(t, err)

	reviews := body["required_pull_request_reviews"].(map[string]interface{})
	assert.Equal(t, float64(2), reviews["required_approving_review_count"])
	assert.Equal(t, true, reviews["require_code_owner_reviews"])
	assert.Equal(t, true, reviews["dismiss_stale_reviews"])

	checks := body["required_status_checks"].(map[string]interface{})
	assert.Equal(t, true, checks["strict"])
	assert.Len(t, checks["checks"], 2)

	assert.Equal(t, true, body["enforce_admins"])
}

func TestGetBranchProtection(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"required_pull_request_reviews": {
				"required_approving_review_count": 2,
				"require_code_owner_reviews": true
			},
			"required_status_checks": {
				"strict": true,
				"checks": [{"context": "test"}, {"context": "lint"}]
			},
			"enforce_admins": {"enabled": true}
		}`))
	}))

	protection, err := client.GetBranchProtection(context.Background(), "acme", "falcon", "main")
	require.NoError(t, err)

	assert.True(t, protection.Protected)
	assert.Equal(t, 2, protection.RequiredReviews)
	assert.True(t, protection.RequireCodeOwners)
	assert.Equal(t, []string{"test", "lint"}, protection.RequiredChecks)
	assert.True(t, protection.EnforceAdmins)
}

func TestGetBranchProtectionUnprotected(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Branch not protected"}`))
	}))

	protection, err := client.GetBranchProtection(context.Background(), "acme", "falcon", "develop")
	require.NoError(t, err)
	assert.False(t, protection.Protected)
}

func TestGetRepoSecurity(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/falcon":
			w.Write([]byte(`{
				"private": true,
				"default_branch": "main",
				"delete_branch_on_merge": true,
				"security_and_analysis": {
					"secret_scanning": {"status": "enabled"},
					"secret_scanning_push_protection": {"status": "disabled"}
				}
			}`))
		case "/repos/acme/falcon/vulnerability-alerts":
			w.WriteHeader(http.StatusNoContent)
		case "/repos/acme/falcon/automated-security-fixes":
			w.Write([]byte(`{"enabled": true, "paused": false}`))
		default:
			t.Fatalf("unexpected request: %s", r.URL.Path)
		}
	}))

	security, err := client.GetRepoSecurity(context.Background(), "acme", "falcon")
	require.NoError(t, err)

	assert.True(t, security.Private)
	assert.Equal(t, "main", security.DefaultBranch)
	assert.True(t, security.DeleteBranchOnMerge)
	assert.True(t, security.SecretScanning)
	assert.False(t, security.PushProtection)
	assert.True(t, security.VulnerabilityAlerts)
	assert.True(t, security.AutomatedSecurityFixes)
}

func TestSetSecretSealsWithRepoKey(t *testing.T) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keyB64 := base64.StdEncoding.EncodeToString(publicKey[:])

	var stored github.EncryptedSecret
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/falcon/actions/secrets/public-key":
			json.NewEncoder(w).Encode(map[string]string{"key_id": "key-1", "key": keyB64})
		case "/repos/acme/falcon/actions/secrets/MATCH_PASSWORD":
			assert.Equal(t, http.MethodPut, r.Method)
			payload, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(payload, &stored))
			w.WriteHeader(http.StatusCreated)
		default:
			t.Fatalf("unexpected request: %s", r.URL.Path)
		}
	}))

	err = client.SetSecret(context.Background(), "acme", "falcon", "MATCH_PASSWORD", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "key-1", stored.KeyID)

	sealed, err := base64.StdEncoding.DecodeString(stored.EncryptedValue)
	require.NoError(t, err)
	opened, ok := box.OpenAnonymous(nil, sealed, publicKey, privateKey)
	require.True(t, ok)
	assert.Equal(t, "hunter2", string(opened))
}

func TestSetVariableUpdatesOnConflict(t *testing.T) {
	var updated bool
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message": "already exists"}`))
		case http.MethodPatch:
			updated = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected method: %s", r.Method)
		}
	}))

	err := client.SetVariable(context.Background(), "acme", "falcon", "XCODE_VERSION", "16.2")
	require.NoError(t, err)
	assert.True(t, updated)
}

func TestSealSecretRejectsBadKey(t *testing.T) {
	_, err := sealSecret("not-base64!!!", "value")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = sealSecret(short, "value")
	assert.Error(t, err)
}

// stubRunner satisfies exec.Runner for token resolution tests.
type stubRunner struct {
	stdout   string
	exitCode int
	found    bool
}

func (s *stubRunner) Run(ctx context.Context, name string, args []string, opts exec.Options) (exec.Result, error) {
	return exec.Result{Stdout: s.stdout, ExitCode: s.exitCode}, nil
}

func (s *stubRunner) LookPath(name string) (string, bool) {
	if s.found {
		return "/usr/bin/" + name, true
	}
	return "", false
}

func TestResolveTokenFromEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("GH_TOKEN", "")

	token, err := ResolveToken(context.Background(), &stubRunner{})
	require.NoError(t, err)
	assert.Equal(t, "env-token", token)
}

func TestResolveTokenFromGhCLI(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	token, err := ResolveToken(context.Background(), &stubRunner{stdout: "cli-token\n", found: true})
	require.NoError(t, err)
	assert.Equal(t, "cli-token", token)
}

func TestResolveTokenMissing(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	_, err := ResolveToken(context.Background(), &stubRunner{})
	require.Error(t, err)
	assert.True(t, shipkiterrors.IsAuthError(err))
}
