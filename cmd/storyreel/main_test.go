package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storyreel/internal/config"
	"storyreel/internal/store"
	"storyreel/internal/testsupport"
)

const (
	ideasJSON    = `{"ideas":[{"title":"The Last Keeper","description":"A keeper finds a stranger in the tower","metrics":{"estimated_engagement":"high","production_difficulty":"medium","estimated_duration":"45s"},"visual_style":"moody noir"}]}`
	analysisJSON = `{"entities":[{"name":"Protagonist (John)","type":"character","description":"Lighthouse keeper","visual_prompt":"A weathered man in a yellow raincoat","appearances":[1]}]}`
)

type cliTestEnv struct {
	cfg        *config.Config
	provider   *testsupport.FakeProvider
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	fp := testsupport.NewFakeProvider(t)
	cfg := testsupport.NewConfig(t, testsupport.WithProviderURL(fp.URL()))
	cfg.Logging.Level = "error"
	t.Setenv("HOME", testsupport.BaseDir(cfg))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "storyreel.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, provider: fp, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func createProject(t *testing.T, env *cliTestEnv) store.Project {
	t.Helper()
	out, _, err := runCLI(t, env, "--json", "project", "create", "lighthouse", "mystery", "--owner", "cli")
	if err != nil {
		t.Fatalf("project create: %v", err)
	}
	var project store.Project
	if err := json.Unmarshal([]byte(out), &project); err != nil {
		t.Fatalf("decode project: %v (%s)", err, out)
	}
	return project
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Storage.BlobDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestMissingAPIKeyFails(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Provider.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)
	t.Setenv("GEMINI_API_KEY", "")

	_, _, err := runCLI(t, env, "project", "list")
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestIdeasCommandRendersTable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider.RespondText("Generate 3 distinct", ideasJSON)

	out, _, err := runCLI(t, env, "ideas", "lighthouse", "mystery")
	if err != nil {
		t.Fatalf("ideas: %v", err)
	}
	requireContains(t, out, "The Last Keeper")
	requireContains(t, out, "moody noir")
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI codes when writing to a buffer: %q", out)
	}
}

func TestProjectWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider.RespondText("Analyze this video script", analysisJSON)

	project := createProject(t, env)
	if project.Status != store.ProjectScripting {
		t.Fatalf("expected scripting status, got %s", project.Status)
	}

	scriptPath := filepath.Join(t.TempDir(), "script.json")
	data, err := json.Marshal(testsupport.TwoSceneScript())
	if err != nil {
		t.Fatalf("marshal script: %v", err)
	}
	if err := os.WriteFile(scriptPath, data, 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, _, err := runCLI(t, env, "script", "save", project.ID, scriptPath)
	if err != nil {
		t.Fatalf("script save: %v", err)
	}
	requireContains(t, out, "Saved script version 1 (2 scenes)")

	out, _, err = runCLI(t, env, "analyze", project.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Protagonist (John)")

	out, _, err = runCLI(t, env, "storyboard", project.ID, "0")
	if err != nil {
		t.Fatalf("storyboard: %v", err)
	}
	requireContains(t, out, "scene-0-start")
	requireContains(t, out, "scene-0-end")

	out, _, err = runCLI(t, env, "video", project.ID, "0")
	if err != nil {
		t.Fatalf("video: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "scene-0-video-")

	out, _, err = runCLI(t, env, "status", project.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "1/2 scenes completed")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, env, "project", "list")
	if err != nil {
		t.Fatalf("project list: %v", err)
	}
	requireContains(t, out, project.ID)
	requireContains(t, out, "rendering")
}

func TestScriptShowWithoutScriptFails(t *testing.T) {
	env := setupCLITestEnv(t)
	project := createProject(t, env)

	_, _, err := runCLI(t, env, "script", "show", project.ID)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestKeyframeRejectsBadArguments(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "keyframe", "p", "x", "start"); err == nil {
		t.Fatal("expected invalid scene index error")
	}
	if _, _, err := runCLI(t, env, "keyframe", "p", "0", "middle"); err == nil {
		t.Fatal("expected invalid frame error")
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestCheckCommandPassesAgainstFakeProvider(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Media directory")
	requireContains(t, out, "Video model")
	requireContains(t, out, "OK")
}
