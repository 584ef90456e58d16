package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testReference = `
reactions:
  - {id: R1, stoichiometry: {A: -1, B: 1}, direction: ">"}
  - {id: R2, stoichiometry: {B: -1, C: 1}, direction: ">"}
enzymes:
  - {id: cpx1, roles: [Role one], reactions: [R1]}
  - {id: cpx2, roles: [Role two], reactions: [R2, R9]}
templates:
  gramnegative:
    biomass: {stoichiometry: {C: -1}}
    essentials: [R2]
`

type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	ref := write("reference.yaml", testReference)
	cfg := write("gapfill.yaml", strings.Join([]string{
		"reference_path: " + ref,
		"storage: {driver: sqlite, sqlite_path: " + filepath.Join(dir, "ledger.db") + "}",
		"blob: {driver: fs, fs_root: " + filepath.Join(dir, "artifacts") + "}",
		"log_level: error",
	}, "\n"))
	write("draft.txt", "R1\n")
	write("functions.tsv", "fig|1.peg.1\tRole one / Role two\n")
	write("minimal.txt", "A\n")
	write("rich.txt", "A\nC\n")
	write("conditions.txt", "minimal\nrich\n")
	write("probs.tsv", "reaction\tprobability\nR2\t0.9\n")
	write("phenotypes.tsv", "condition\tgrowth\nminimal\t0\nrich\t1\n")
	return fixture{dir: dir, config: cfg}
}

func (f fixture) path(name string) string { return filepath.Join(f.dir, name) }

func (f fixture) run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"--config", f.config}, args...), &stdout, &stderr)
	if code != 0 {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), code
}

func TestDraftCommand(t *testing.T) {
	f := newFixture(t)
	out, code := f.run(t, "draft", "--functions", f.path("functions.tsv"), "--reactions-out", f.path("draft_out.txt"))
	if code != 0 {
		t.Fatalf("draft exited %d", code)
	}
	var got struct {
		Roles     int      `json:"roles"`
		Reactions []string `json:"reactions"`
		Skipped   []string `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if got.Roles != 2 || len(got.Reactions) != 2 || len(got.Skipped) != 1 || got.Skipped[0] != "R9" {
		t.Fatalf("unexpected draft %+v", got)
	}
	written, err := os.ReadFile(f.path("draft_out.txt"))
	if err != nil || string(written) != "R1\nR2\n" {
		t.Fatalf("unexpected reactions file %q err=%v", written, err)
	}
}

func TestFillSuggestAndRuns(t *testing.T) {
	f := newFixture(t)
	media := []string{"--media-dir", f.dir, "--conditions", f.path("conditions.txt")}

	out, code := f.run(t, append([]string{"suggest", "--draft", f.path("draft.txt")}, media...)...)
	if code != 0 {
		t.Fatalf("suggest exited %d", code)
	}
	var suggested struct {
		Reactions []string            `json:"reactions"`
		Sources   map[string][]string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(out), &suggested); err != nil {
		t.Fatalf("decode suggest: %v", err)
	}
	if len(suggested.Reactions) != 1 || suggested.Reactions[0] != "R2" || suggested.Sources["R2"][0] != "essential_reactions" {
		t.Fatalf("unexpected suggestion %+v", suggested)
	}

	args := append([]string{"fill", "--draft", f.path("draft.txt"), "--probabilities", f.path("probs.tsv"), "--added-out", f.path("added.txt")}, media...)
	out, code = f.run(t, args...)
	if code != 0 {
		t.Fatalf("fill exited %d", code)
	}
	var filled struct {
		Added  []string        `json:"added"`
		Growth map[string]bool `json:"growth"`
	}
	if err := json.Unmarshal([]byte(out), &filled); err != nil {
		t.Fatalf("decode fill: %v", err)
	}
	if len(filled.Added) != 1 || filled.Added[0] != "R2" || !filled.Growth["minimal"] {
		t.Fatalf("unexpected fill %+v", filled)
	}

	out, code = f.run(t, "runs")
	if code != 0 {
		t.Fatalf("runs exited %d", code)
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Fatalf("expected 4 recorded runs, got %d:\n%s", lines, out)
	}
}

func TestPredictCommand(t *testing.T) {
	f := newFixture(t)
	out, code := f.run(t, "predict", "--model", f.path("draft.txt"), "--phenotypes", f.path("phenotypes.tsv"),
		"--medium", f.path("minimal.txt"), "--medium", f.path("rich.txt"))
	if code != 0 {
		t.Fatalf("predict exited %d", code)
	}
	var report struct {
		TrueNegatives []string
		TruePositives []string
		Agreement     float64
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode predict: %v", err)
	}
	if report.Agreement != 100 || len(report.TruePositives) != 1 || report.TrueNegatives[0] != "minimal" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestMissingFlagsFail(t *testing.T) {
	f := newFixture(t)
	if _, code := f.run(t, "fill", "--draft", f.path("draft.txt")); code == 0 {
		t.Fatalf("expected failure without probabilities")
	}
	if _, code := f.run(t, "suggest", "--draft", f.path("draft.txt")); code == 0 {
		t.Fatalf("expected failure without media")
	}
}
