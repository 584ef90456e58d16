package evidence

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadRolesSkipsCommentsAndBlanks(t *testing.T) {
	roles, err := ReadRoles(strings.NewReader("# roles\n\nRole A\n  Role B  \nRole A\n"), "roles.txt")
	if err != nil {
		t.Fatalf("read roles: %v", err)
	}
	if roles.Len() != 2 || !roles.Has("Role A") || !roles.Has("Role B") {
		t.Fatalf("unexpected roles %v", roles.Sorted())
	}
}

func TestReadIDsKeepsFirstColumn(t *testing.T) {
	ids, err := ReadIDs(strings.NewReader("rxn1\tforward\nrxn2\n# skipped\n"), "draft.tsv")
	if err != nil {
		t.Fatalf("read ids: %v", err)
	}
	var buf strings.Builder
	if err := WriteIDs(&buf, ids); err != nil {
		t.Fatalf("write ids: %v", err)
	}
	if buf.String() != "rxn1\nrxn2\n" {
		t.Fatalf("unexpected ids %q", buf.String())
	}
}

func TestReadProbabilities(t *testing.T) {
	input := "reaction\tprobability\trole\nrxn1\t0.8\tx\nrxn2\t0\n"
	probs, err := ReadProbabilities(strings.NewReader(input), "p.tsv")
	if err != nil {
		t.Fatalf("read probabilities: %v", err)
	}
	if len(probs) != 2 || probs["rxn1"] != 0.8 || probs["rxn2"] != 0 {
		t.Fatalf("unexpected probabilities %v", probs)
	}
}

func TestReadProbabilitiesSkipsHeaderLine(t *testing.T) {
	probs, err := ReadProbabilities(strings.NewReader("# generated\nrxn0\t0.4\nrxn1\t0.6\n"), "p.tsv")
	if err != nil {
		t.Fatalf("read probabilities: %v", err)
	}
	if len(probs) != 1 || probs["rxn1"] != 0.6 {
		t.Fatalf("first significant line must be treated as a header: %v", probs)
	}
}

func TestReadProbabilitiesErrors(t *testing.T) {
	const header = "reaction\tprobability\n"
	cases := map[string]string{
		"out of range": header + "rxn1\t1.5\n",
		"negative":     header + "rxn1\t0.5\nrxn2\t-0.1\n",
		"not a number": header + "rxn1\t0.5\nrxn2\tlikely\n",
		"nan":          header + "rxn1\tNaN\n",
		"missing":      header + "rxn1\t0.5\nrxn2\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadProbabilities(strings.NewReader(input), "p.tsv")
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Source != "p.tsv" || perr.Line < 2 {
				t.Fatalf("unexpected location %+v", perr)
			}
		})
	}
}

func TestReadMediumFormats(t *testing.T) {
	plain, err := ReadMedium(strings.NewReader("cpd00001\ncpd00027\n"), "media/glucose.txt")
	if err != nil {
		t.Fatalf("plain medium: %v", err)
	}
	if plain.Name != "glucose" || plain.Len() != 2 || !plain.Has("cpd00027") {
		t.Fatalf("unexpected plain medium %+v", plain)
	}

	tsv, err := ReadMedium(strings.NewReader("name\tid\tconc\nwater\tcpd00001\t1\nglc\tcpd00027\t0.01\n"), "LB.tsv")
	if err != nil {
		t.Fatalf("tsv medium: %v", err)
	}
	if tsv.Name != "LB" || tsv.Len() != 2 || !tsv.Has("cpd00001") {
		t.Fatalf("unexpected tsv medium %v", tsv.Compounds.Sorted())
	}
}

func TestSplitFunction(t *testing.T) {
	got := SplitFunction("Role A / Role B @ Role C; Role D # comment")
	want := []string{"Role A", "Role B", "Role C", "Role D"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestReadAssignedFunctions(t *testing.T) {
	input := "fig|1.peg.1\tRole A / Role B\nfig|1.peg.2\tRole C\nbroken line\n"
	if _, err := ReadAssignedFunctions(strings.NewReader(input), "af.tsv"); err == nil {
		t.Fatalf("expected parse error for line without tab")
	}
	got, err := ReadAssignedFunctions(strings.NewReader(input[:strings.LastIndex(input, "broken")]), "af.tsv")
	if err != nil {
		t.Fatalf("assigned functions: %v", err)
	}
	if len(got["fig|1.peg.1"]) != 2 || got["fig|1.peg.2"][0] != "Role C" {
		t.Fatalf("unexpected functions %v", got)
	}
}

func TestReadPhenotypes(t *testing.T) {
	got, err := ReadPhenotypes(strings.NewReader("condition\tgrowth\nLB\t1\nM9\t0\n"), "ph.tsv")
	if err != nil {
		t.Fatalf("phenotypes: %v", err)
	}
	if !got["LB"] || got["M9"] || len(got) != 2 {
		t.Fatalf("unexpected phenotypes %v", got)
	}
	if _, err := ReadPhenotypes(strings.NewReader("h\nLB\tyes\n"), "ph.tsv"); err == nil {
		t.Fatalf("expected error for non-binary growth")
	}
}

func TestLoadMediaDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "LB.txt"), []byte("cpd1\ncpd2\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "M9.tsv"), []byte("id\ncpd1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	condPath := filepath.Join(dir, "conditions.txt")
	if err := os.WriteFile(condPath, []byte("LB\nM9\nLB\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	conds, err := LoadConditions(condPath)
	if err != nil || len(conds) != 2 {
		t.Fatalf("conditions %v err=%v", conds, err)
	}
	media, err := LoadMediaDir(dir, conds)
	if err != nil {
		t.Fatalf("load media: %v", err)
	}
	if len(media) != 2 || media[0].Name != "LB" || media[1].Len() != 1 {
		t.Fatalf("unexpected media %+v", media)
	}
	if _, err := LoadMediaDir(dir, []string{"missing"}); err == nil {
		t.Fatalf("expected error for missing medium")
	}
}
