// Package evidence reads the flat-file evidence sources consumed by the
// gap-filling pipeline: role lists, reaction probabilities, media, media
// condition lists, assigned functions and growth phenotypes.
//
// Every reader skips blank lines and lines starting with '#'. Malformed input
// is reported as a *ParseError carrying the source name and line number.
package evidence

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gapfill/pkg/domain"
)

// ParseError describes a malformed evidence line.
type ParseError struct {
	Source string
	Line   int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// scan calls fn for every significant line with its 1-based number.
func scan(r io.Reader, source string, fn func(line int, text string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if err := fn(n, text); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	return nil
}

func openWith[T any](path string, read func(io.Reader, string) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open evidence: %w", err)
	}
	defer func() { _ = f.Close() }()
	return read(f, path)
}

// ReadIDs reads one identifier per line. Only the first tab-separated column
// is used, so reaction tables with extra columns are accepted.
func ReadIDs(r io.Reader, source string) (domain.ReactionSet, error) {
	ids := domain.NewReactionSet()
	err := scan(r, source, func(_ int, text string) error {
		id, _, _ := strings.Cut(text, "\t")
		ids.Add(strings.TrimSpace(id))
		return nil
	})
	return ids, err
}

// LoadReactions reads a reaction id list such as a draft or gap-filled model.
func LoadReactions(path string) (domain.ReactionSet, error) { return openWith(path, ReadIDs) }

// ReadRoles reads one functional role per line.
func ReadRoles(r io.Reader, source string) (domain.RoleSet, error) {
	roles := domain.NewRoleSet()
	err := scan(r, source, func(_ int, text string) error {
		roles.Add(strings.TrimSpace(text))
		return nil
	})
	return roles, err
}

// LoadRoles reads a role list file.
func LoadRoles(path string) (domain.RoleSet, error) { return openWith(path, ReadRoles) }

// WriteIDs writes ids one per line in ascending order.
func WriteIDs(w io.Writer, ids domain.ReactionSet) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids.Sorted() {
		if _, err := fmt.Fprintln(bw, id); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadProbabilities reads "reaction<TAB>probability" lines. The first
// significant line is a header and is always skipped.
func ReadProbabilities(r io.Reader, source string) (domain.ReactionProbabilities, error) {
	probs := make(domain.ReactionProbabilities)
	first := true
	err := scan(r, source, func(line int, text string) error {
		if first {
			first = false
			return nil
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return &ParseError{Source: source, Line: line, Msg: "expected reaction<TAB>probability"}
		}
		id := strings.TrimSpace(fields[0])
		p, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return &ParseError{Source: source, Line: line, Msg: "invalid probability", Err: err}
		}
		if id == "" {
			return &ParseError{Source: source, Line: line, Msg: "empty reaction id"}
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return &ParseError{Source: source, Line: line, Msg: fmt.Sprintf("probability %g outside [0,1]", p)}
		}
		probs[id] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return probs, nil
}

// LoadProbabilities reads a reaction probability file.
func LoadProbabilities(path string) (domain.ReactionProbabilities, error) {
	return openWith(path, ReadProbabilities)
}

// ReadMedium reads a medium: either one compound per line, or a TSV whose
// header has an "id" column (other columns ignored). The medium is named after
// the source file without its extension.
func ReadMedium(r io.Reader, source string) (domain.Medium, error) {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	medium := domain.NewMedium(name)
	col := -1
	first := true
	err := scan(r, source, func(line int, text string) error {
		fields := strings.Split(text, "\t")
		if first {
			first = false
			for i, f := range fields {
				if strings.EqualFold(strings.TrimSpace(f), "id") {
					col = i
				}
			}
			if col >= 0 {
				return nil
			}
			if len(fields) > 1 {
				col = 0
			}
		}
		idx := col
		if idx < 0 {
			idx = 0
		}
		if idx >= len(fields) {
			return &ParseError{Source: source, Line: line, Msg: "missing id column"}
		}
		if id := strings.TrimSpace(fields[idx]); id != "" {
			medium.Compounds.Add(id)
		}
		return nil
	})
	if err != nil {
		return domain.Medium{}, err
	}
	return medium, nil
}

// LoadMedium reads a medium file.
func LoadMedium(path string) (domain.Medium, error) { return openWith(path, ReadMedium) }

// mediumExtensions are tried in order when resolving a condition name.
var mediumExtensions = []string{".txt", ".tsv", ""}

// LoadMediaDir loads <dir>/<condition>.txt (or .tsv) for every condition.
func LoadMediaDir(dir string, conditions []string) ([]domain.Medium, error) {
	media := make([]domain.Medium, 0, len(conditions))
	for _, cond := range conditions {
		var (
			medium domain.Medium
			err    error
			found  bool
		)
		for _, ext := range mediumExtensions {
			path := filepath.Join(dir, cond+ext)
			if _, statErr := os.Stat(path); statErr != nil {
				continue
			}
			found = true
			medium, err = LoadMedium(path)
			break
		}
		if !found {
			return nil, fmt.Errorf("medium %s not found in %s", cond, dir)
		}
		if err != nil {
			return nil, err
		}
		medium.Name = cond
		media = append(media, medium)
	}
	return media, nil
}

// ReadConditions reads one media condition per line, keeping first-seen order.
func ReadConditions(r io.Reader, source string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	err := scan(r, source, func(_ int, text string) error {
		c := strings.TrimSpace(text)
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

// LoadConditions reads a media condition list.
func LoadConditions(path string) ([]string, error) { return openWith(path, ReadConditions) }

// roleSeparators split a function annotation into individual roles.
var roleSeparators = []string{" / ", " @ ", "; "}

// SplitFunction splits a function annotation into roles, dropping trailing
// "# comment" text.
func SplitFunction(function string) []string {
	if i := strings.Index(function, " #"); i >= 0 {
		function = function[:i]
	}
	parts := []string{function}
	for _, sep := range roleSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ReadAssignedFunctions reads "peg<TAB>function" lines into peg -> roles.
func ReadAssignedFunctions(r io.Reader, source string) (map[string][]string, error) {
	out := make(map[string][]string)
	err := scan(r, source, func(line int, text string) error {
		fields := strings.SplitN(text, "\t", 2)
		if len(fields) != 2 {
			return &ParseError{Source: source, Line: line, Msg: "expected peg<TAB>function"}
		}
		peg := strings.TrimSpace(fields[0])
		out[peg] = append(out[peg], SplitFunction(fields[1])...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadAssignedFunctions reads an assigned functions file.
func LoadAssignedFunctions(path string) (map[string][]string, error) {
	return openWith(path, ReadAssignedFunctions)
}

// ReadPhenotypes reads "condition<TAB>0|1" lines after a header line.
func ReadPhenotypes(r io.Reader, source string) (map[string]bool, error) {
	out := make(map[string]bool)
	first := true
	err := scan(r, source, func(line int, text string) error {
		if first {
			first = false
			return nil
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return &ParseError{Source: source, Line: line, Msg: "expected condition<TAB>growth"}
		}
		switch strings.TrimSpace(fields[1]) {
		case "1":
			out[strings.TrimSpace(fields[0])] = true
		case "0":
			out[strings.TrimSpace(fields[0])] = false
		default:
			return &ParseError{Source: source, Line: line, Msg: fmt.Sprintf("growth must be 0 or 1, got %q", fields[1])}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadPhenotypes reads a growth phenotype file.
func LoadPhenotypes(path string) (map[string]bool, error) { return openWith(path, ReadPhenotypes) }
