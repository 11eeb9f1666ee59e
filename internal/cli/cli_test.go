package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemate/internal/config"
	"github.com/dshills/codemate/internal/review"
)

// resetState resets package-level flag variables and the exit code, and
// isolates the environment config is read from.
func resetState(t *testing.T) string {
	t.Helper()
	flagConfig = ""
	flagDebug = false
	flagAddr = ""
	flagTraceStdout = false
	flagPRRepo = ""
	flagPRNumber = 0
	flagDryRun = false
	flagFormat = ""
	flagOut = ""
	flagFailOn = ""
	flagLocalDiff = false
	flagInclude = ""
	flagExclude = ""

	saved := exitCode
	exitCode = ExitSuccess
	t.Cleanup(func() {
		exitCode = saved
		commandRunner = nil
	})

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{
		"GITHUB_TOKEN", "CODEMATE_GITHUB_TOKEN", "WEBHOOK_SECRET", "GITHUB_API_URL",
		"GITLAB_TOKEN", "BITBUCKET_TOKEN", "LLM_API_KEY", "LLM_MODEL", "PORT",
		"CI_MODE", "DEBUG", "CODEMATE_ANALYZERS", "CODEMATE_CONCURRENCY",
		"CODEMATE_FORMAT", "CODEMATE_REDACT", "CODEMATE_REPO_ROOT", "CODEMATE_ADDR",
	} {
		t.Setenv(key, "")
	}
	return xdg
}

// execute runs a standalone command and returns its stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetContext(context.Background())
	})
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type scriptedRunner struct {
	mu    sync.Mutex
	out   map[string]string
	calls []string
}

func (r *scriptedRunner) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	return []byte(r.out[name]), nil
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitFindings)
	assert.Equal(t, 2, ExitUsageError)
	assert.Equal(t, 3, ExitAuthError)
	assert.Equal(t, 4, ExitRuntimeError)
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, versionCmd)
	require.NoError(t, err)
	assert.Equal(t, "codemate version "+version+"\n", stdout)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Info("hello", "run_id", "r1")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "r1", entry["run_id"])

	buf.Reset()
	newLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestFailOnThreshold(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "none", failOnThreshold("", cfg))
	assert.Equal(t, "warning", failOnThreshold("warning", cfg))
	cfg.CIMode = true
	assert.Equal(t, "error", failOnThreshold("", cfg))

	result := review.NewResult([]review.Issue{{Path: "a.py", Line: 1, Severity: review.SeverityWarning}}, nil)
	assert.False(t, breaches(result, "error"))
	assert.True(t, breaches(result, "warning"))
	assert.False(t, breaches(result, "none"))
}

func TestConfigInitCreatesFile(t *testing.T) {
	xdg := resetState(t)

	stdout, _, err := execute(t, configCmd, "init")
	require.NoError(t, err)
	path := filepath.Join(xdg, "codemate", "config.yaml")
	assert.Contains(t, stdout, path)

	cfg := config.Default()
	require.NoError(t, config.LoadFile(path, &cfg))
	assert.Equal(t, config.Default(), cfg)

	// a second init leaves the file alone
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9999\"\n"), 0o600))
	_, stderr, err := execute(t, configCmd, "init")
	require.NoError(t, err)
	assert.Contains(t, stderr, "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "addr: \":9999\"\n", string(data))
}

func TestConfigSet(t *testing.T) {
	xdg := resetState(t)

	_, _, err := execute(t, configCmd, "set", "concurrency", "8")
	require.NoError(t, err)
	cfg := config.Default()
	require.NoError(t, config.LoadFile(filepath.Join(xdg, "codemate", "config.yaml"), &cfg))
	assert.Equal(t, 8, cfg.Concurrency)

	_, _, err = execute(t, configCmd, "set", "github.token", "ghp_x")
	assert.Error(t, err, "secrets are not settable")

	_, _, err = execute(t, configCmd, "set", "analyzers", "fuzz")
	assert.Error(t, err, "validation applies")

	_, _, err = execute(t, configCmd, "set", "concurrency")
	assert.Error(t, err, "requires two args")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	resetState(t)
	t.Setenv("GITHUB_TOKEN", "ghp_supersecretvalue")

	stdout, _, err := execute(t, configCmd, "show")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "ghp_supersecretvalue")
	assert.Contains(t, stdout, "********")
	assert.Contains(t, stdout, "model: gpt-4")
}

func TestLocalCmd(t *testing.T) {
	resetState(t)
	t.Setenv("CODEMATE_ANALYZERS", "lint,ai")
	runner := &scriptedRunner{out: map[string]string{
		"flake8": "app.py::1::E501::line too long (120 > 79 characters)\n",
	}}
	commandRunner = runner

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# readme\n"), 0o644))

	stdout, stderr, err := execute(t, localCmd, dir, "--fail-on", "error")
	require.NoError(t, err)
	assert.Equal(t,
		"app.py:1 [E501] line too long (120 > 79 characters)\n"+
			"Score: 95/100 (errors: 1, warnings: 0, info: 0)\n",
		stdout)
	assert.Contains(t, stderr, "Files: 1, total issues: 1")
	assert.Equal(t, ExitFindings, exitCode)
	require.Len(t, runner.calls, 1)
	assert.True(t, strings.HasPrefix(runner.calls[0], "flake8 app.py"))
}

func TestLocalCmdNotADirectory(t *testing.T) {
	resetState(t)
	_, stderr, err := execute(t, localCmd, filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "is not a directory")
	assert.Equal(t, ExitUsageError, exitCode)
}

func TestLocalCmdBadConfig(t *testing.T) {
	resetState(t)
	t.Setenv("CODEMATE_CONCURRENCY", "0")
	_, stderr, err := execute(t, localCmd, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stderr, "invalid config")
	assert.Equal(t, ExitUsageError, exitCode)
}

const prFilesJSON = `[{"filename":"app.py","patch":"@@ -0,0 +1,2 @@\n+import os\n+print(1)"}]`

func prServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var posted []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/pulls/7/files", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = io.WriteString(w, prFilesJSON)
			return
		}
		_, _ = io.WriteString(w, "[]")
	})
	mux.HandleFunc("GET /repos/o/r/pulls/7/commits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"sha":"abc123"}]`)
	})
	record := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		posted = append(posted, r.URL.Path+" "+string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	}
	mux.HandleFunc("POST /repos/o/r/pulls/7/reviews", record)
	mux.HandleFunc("POST /repos/o/r/issues/7/comments", record)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &posted
}

func TestPRCmdDryRun(t *testing.T) {
	resetState(t)
	srv, posted := prServer(t)
	t.Setenv("GITHUB_API_URL", srv.URL)
	t.Setenv("CODEMATE_ANALYZERS", "ai")

	stdout, _, err := execute(t, prCmd, "--repo", "o/r", "--pr", "7", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t,
		"app.py:1 [ai-feedback] AI suggestion: Review this line: import os\n"+
			"app.py:2 [ai-feedback] AI suggestion: Review this line: print(1)\n"+
			"Score: 100/100 (errors: 0, warnings: 0, info: 2)\n",
		stdout)
	assert.Equal(t, ExitSuccess, exitCode)
	assert.Empty(t, *posted)
}

func TestPRCmdPostsReview(t *testing.T) {
	resetState(t)
	srv, posted := prServer(t)
	t.Setenv("GITHUB_API_URL", srv.URL)
	t.Setenv("GITHUB_TOKEN", "ghp_testtoken")
	t.Setenv("CODEMATE_ANALYZERS", "ai")

	_, stderr, err := execute(t, prCmd, "--repo", "o/r", "--pr", "7", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "PR #7 analysis complete.")
	assert.Equal(t, ExitSuccess, exitCode)

	require.Len(t, *posted, 2)
	assert.True(t, strings.HasPrefix((*posted)[0], "/repos/o/r/pulls/7/reviews "))
	assert.Contains(t, (*posted)[0], `"commit_id":"abc123"`)
	assert.True(t, strings.HasPrefix((*posted)[1], "/repos/o/r/issues/7/comments "))
	assert.Contains(t, (*posted)[1], "Total issues detected: 2")
}

func TestPRCmdRequiresToken(t *testing.T) {
	resetState(t)
	_, stderr, err := execute(t, prCmd, "--repo", "o/r", "--pr", "7")
	require.NoError(t, err)
	assert.Contains(t, stderr, "GITHUB_TOKEN is required")
	assert.Equal(t, ExitAuthError, exitCode)
}

func TestPRCmdUsageErrors(t *testing.T) {
	resetState(t)
	_, stderr, err := execute(t, prCmd, "--repo", "o/r")
	require.NoError(t, err)
	assert.Contains(t, stderr, "--pr must be a positive")
	assert.Equal(t, ExitUsageError, exitCode)

	resetState(t)
	_, stderr, err = execute(t, prCmd, "--repo", "not-a-slug", "--pr", "3", "--dry-run")
	require.NoError(t, err)
	assert.NotEmpty(t, stderr)
	assert.Equal(t, ExitUsageError, exitCode)
}

func TestPRCmdProviderFailure(t *testing.T) {
	resetState(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("GITHUB_API_URL", srv.URL)
	t.Setenv("CODEMATE_ANALYZERS", "ai")

	_, _, err := execute(t, prCmd, "--repo", "o/r", "--pr", "7", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, ExitRuntimeError, exitCode)
}

func TestServeCmdBadConfig(t *testing.T) {
	resetState(t)
	t.Setenv("CODEMATE_CONCURRENCY", "0")
	_, stderr, err := execute(t, serveCmd)
	require.NoError(t, err)
	assert.Contains(t, stderr, "invalid config")
	assert.Equal(t, ExitUsageError, exitCode)
	assert.NotNil(t, serveCmd.Flags().Lookup("trace-stdout"))
}

