package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lherron/recmerge/internal/testutil"
)

// resetFlags restores every flag to its default so package-level commands
// can be executed repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func setupTestEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RECMERGE_DB_PATH", "")
	t.Setenv("RECMERGE_OUTPUT", "")
	t.Setenv("RECMERGE_LOG_LEVEL", "error")

	dbPath := filepath.Join(t.TempDir(), "recmerge.db")
	if out, err := runCLI(t, "", "init", "--db", dbPath); err != nil {
		t.Fatalf("init failed: %v\nOutput: %s", err, out)
	}
	return dbPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, stdin, args...)
	if err != nil {
		t.Fatalf("recmerge %s failed: %v\nOutput: %s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestInitAndMigrate(t *testing.T) {
	dbPath := setupTestEnv(t)

	out := mustRun(t, "", "init", "--db", dbPath)
	if !strings.Contains(out, "already initialized") {
		t.Errorf("expected second init to report existing database, got: %s", out)
	}

	out = mustRun(t, "", "migrate", "--db", dbPath)
	if !strings.Contains(out, "up to date") {
		t.Errorf("expected up to date, got: %s", out)
	}

	out = mustRun(t, "", "migrate", "--status", "--db", dbPath)
	if !strings.Contains(out, "✓ 000001_baseline.sql") {
		t.Errorf("expected baseline to be applied, got: %s", out)
	}
}

func TestRecordCommands(t *testing.T) {
	dbPath := setupTestEnv(t)

	out := mustRun(t, `{"uri": "/agents/people/2", "title": "Smyth"}`, "record", "put", "--db", dbPath)
	var put struct {
		URI     string `json:"uri"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal([]byte(out), &put); err != nil {
		t.Fatalf("put output is not JSON: %v\n%s", err, out)
	}
	if put.URI != "/agents/people/2" || !put.Created {
		t.Errorf("unexpected put result: %+v", put)
	}

	mustRun(t, `{"uri": "/repositories/2/resources/5", "linked_agents": [{"ref": "/agents/people/2"}]}`, "record", "put", "-", "--db", dbPath)

	out = mustRun(t, "", "record", "get", "/agents/people/2", "--db", dbPath, "-o", "yaml")
	if !strings.Contains(out, "title: Smyth") {
		t.Errorf("expected yaml record, got: %s", out)
	}

	out = mustRun(t, "", "record", "links", "/agents/people/2", "--db", dbPath, "-o", "table")
	if !strings.Contains(out, "/repositories/2/resources/5") || !strings.Contains(out, "linked_agents.0") {
		t.Errorf("expected link row, got: %s", out)
	}

	out = mustRun(t, "", "record", "history", "/agents/people/2", "--db", dbPath, "-o", "table")
	if !strings.Contains(out, "record.created") {
		t.Errorf("expected created event, got: %s", out)
	}

	mustRun(t, "", "record", "rm", "/repositories/2/resources/5", "--db", dbPath)
	if _, err := runCLI(t, "", "record", "get", "/repositories/2/resources/5", "--db", dbPath); err == nil {
		t.Error("expected get of deleted record to fail")
	}
}

func TestRecordImportCommand(t *testing.T) {
	dbPath := setupTestEnv(t)
	dir := t.TempDir()

	good1 := testutil.WriteFile(t, dir, "s1.json", `{"uri": "/subjects/1", "title": "Cats"}`)
	good2 := testutil.WriteFile(t, dir, "s2.json", `{"uri": "/subjects/2", "title": "Felines"}`)
	bad := testutil.WriteFile(t, dir, "bad.json", `{"title": "no uri"}`)

	out := mustRun(t, "", "record", "import", good1, good2, "-j", "2", "--db", dbPath, "-o", "table")
	if !strings.Contains(out, "All 2 operations succeeded") {
		t.Errorf("expected success summary, got: %s", out)
	}

	out, err := runCLI(t, "", "record", "import", good1, bad, "--continue-on-error", "--db", dbPath)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 5 {
		t.Fatalf("expected partial-success exit code 5, got %v", err)
	}
	if !strings.Contains(out, `"failed": 1`) || !strings.Contains(out, "bad.json") {
		t.Errorf("expected failure listing bad.json, got: %s", out)
	}

	mustRun(t, "", "record", "get", "/subjects/2", "--db", dbPath)
}

func TestMergeSubjectCommand(t *testing.T) {
	dbPath := setupTestEnv(t)
	mustRun(t, `{"uri": "/subjects/1", "title": "Cats"}`, "record", "put", "--db", dbPath)
	mustRun(t, `{"uri": "/subjects/2", "title": "Felines"}`, "record", "put", "--db", dbPath)

	out := mustRun(t, "", "merge", "subject", "--target", "/subjects/1", "--victim", "/subjects/2", "--db", dbPath)
	if !strings.Contains(out, `"status": "OK"`) {
		t.Errorf("expected OK status, got: %s", out)
	}
	if _, err := runCLI(t, "", "record", "get", "/subjects/2", "--db", dbPath); err == nil {
		t.Error("expected victim to be gone")
	}

	_, err := runCLI(t, "", "merge", "subject", "--target", "/subjects/1", "--victim", "/agents/people/2", "--db", dbPath)
	if err == nil || !strings.Contains(err.Error(), "can only merge subject records") {
		t.Errorf("expected type mismatch, got %v", err)
	}
}

func TestMergeResourceRequiresRepo(t *testing.T) {
	dbPath := setupTestEnv(t)
	_, err := runCLI(t, "", "merge", "resource",
		"--target", "/repositories/2/resources/1", "--victim", "/repositories/2/resources/2", "--db", dbPath)
	if err == nil {
		t.Fatal("expected error without --repo-id")
	}
}

func TestMergeAgentDetailCommand(t *testing.T) {
	dbPath := setupTestEnv(t)
	mustRun(t, `{"id": 1, "uri": "/agents/people/1", "title": "Smith, John",
		"linked_events": [{"ref": "/repositories/2/events/3"}],
		"names": [{"jsonmodel_type": "name_person", "name_order": "inverted", "primary_name": "Smith",
			"rest_of_name": "John", "sort_name": "Smith, John", "authorized": true, "agent_person_id": 1}]}`,
		"record", "put", "--db", dbPath)
	mustRun(t, `{"id": 2, "uri": "/agents/people/2", "title": "Smyth",
		"names": [{"jsonmodel_type": "name_person", "primary_name": "Smyth", "sort_name": "Smyth",
			"authorized": true, "agent_person_id": 2}]}`,
		"record", "put", "--db", dbPath)

	request := `{"target": {"ref": "/agents/people/1"}, "victims": [{"ref": "/agents/people/2"}],
		"selections": {"names": [{"primary_name": "REPLACE"}]}}`

	out := mustRun(t, request, "merge", "agent-detail", "--dry-run", "--diff", "--db", dbPath)
	testutil.AssertStringContains(t, out, "+++ preview")
	testutil.AssertStringContains(t, out, `+      "primary_name": "Smyth"`)
	if strings.Contains(out, "linked_events") {
		t.Errorf("diff should not report event links as removed, got: %s", out)
	}

	if _, err := runCLI(t, request, "merge", "agent-detail", "--diff", "--db", dbPath); err == nil {
		t.Error("expected --diff without --dry-run to fail")
	}

	out = mustRun(t, request, "merge", "agent-detail", "--db", dbPath)
	if !strings.Contains(out, `"status": "OK"`) {
		t.Errorf("expected OK status, got: %s", out)
	}

	out = mustRun(t, "", "record", "get", "/agents/people/1", "--db", dbPath)
	if !strings.Contains(out, `"primary_name": "Smyth"`) {
		t.Errorf("expected appended name on target, got: %s", out)
	}
}

func TestSelectionsCommand(t *testing.T) {
	setupTestEnv(t)

	input := "names:\n  - primary_name: REPLACE\npublish: REPLACE\n"
	out := mustRun(t, input, "selections", "-o", "table")
	for _, want := range []string{"names.0.primary_name", "append", "publish", "replace"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out := mustRun(t, "", "version", "--json")
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("version output is not JSON: %v", err)
	}
	if v["version"] != Version {
		t.Errorf("expected version %s, got %v", Version, v["version"])
	}
	if kinds, ok := v["merge_kinds"].([]interface{}); !ok || len(kinds) != 5 {
		t.Errorf("expected 5 merge kinds, got %v", v["merge_kinds"])
	}
}
