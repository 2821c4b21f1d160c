package hindibpe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// FormatVersion is written into every saved artifact.
// FormatCompatibilityConstraint is the range a loader accepts; artifacts
// outside it are rejected rather than misread.
const (
	FormatVersion                 = "0.1.0"
	FormatCompatibilityConstraint = "0.1.x"
)

// Artifact is the frozen output of training: the symbol table (specials,
// base alphabet, merged symbols) plus the ordered merge table. It is
// sufficient and complete state to reconstruct a Tokenizer, and it is never
// mutated after the builder returns it.
type Artifact struct {
	Unit  AtomicUnit
	Clean bool

	table  *SymbolTable
	merges []Merge
}

// Table exposes the artifact's symbol table. Read-only by convention.
func (a *Artifact) Table() *SymbolTable { return a.table }

// Merges returns a copy of the ordered merge table.
func (a *Artifact) Merges() []Merge {
	return append([]Merge(nil), a.merges...)
}

// Validate checks the artifact's internal consistency: every merge must
// reference symbols that predate its result, the result's recorded children
// must be that pair, and the result's representation must be the
// concatenation of the pair's representations. Any violation is
// ErrArtifactCorrupt.
func (a *Artifact) Validate() error {
	if a.table == nil {
		return errors.Wrap(ErrArtifactCorrupt, "missing symbol table")
	}
	for i, m := range a.merges {
		if !a.table.Contains(m.Left) || !a.table.Contains(m.Right) || !a.table.Contains(m.Result) {
			return errors.Wrapf(ErrArtifactCorrupt, "merge %d references undefined symbol (%d, %d) -> %d", i, m.Left, m.Right, m.Result)
		}
		if m.Left >= m.Result || m.Right >= m.Result {
			return errors.Wrapf(ErrArtifactCorrupt, "merge %d result %d does not postdate its pair (%d, %d)", i, m.Result, m.Left, m.Right)
		}
		children, ok := a.table.Children(m.Result)
		if !ok || children.Left != m.Left || children.Right != m.Right {
			return errors.Wrapf(ErrArtifactCorrupt, "merge %d children mismatch for symbol %d", i, m.Result)
		}
		left := a.table.reprs[m.Left]
		right := a.table.reprs[m.Right]
		if a.table.reprs[m.Result] != left+right {
			return errors.Wrapf(ErrArtifactCorrupt, "merge %d representation mismatch for symbol %d", i, m.Result)
		}
	}
	return nil
}

// Save writes the artifact in its line-oriented text format:
//
//	# hindi-bpe vocabulary
//	format 0.1.0
//	unit byte
//	clean false
//	base 42
//	merges 128
//	s 6 "\xe0"
//	...
//	m 6 7 48
//	...
//
// Symbol representations are strconv-quoted, so raw UTF-8 byte fragments
// survive the round trip exactly. Load(Save(a)) reconstructs an identical
// tokenizer.
func (a *Artifact) Save(w io.Writer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# hindi-bpe vocabulary\n")
	fmt.Fprintf(bw, "format %s\n", FormatVersion)
	fmt.Fprintf(bw, "unit %s\n", a.Unit)
	fmt.Fprintf(bw, "clean %t\n", a.Clean)
	base := a.table.Len() - a.table.Merges() - numSpecials
	fmt.Fprintf(bw, "base %d\n", base)
	fmt.Fprintf(bw, "merges %d\n", len(a.merges))
	for id := numSpecials; id < numSpecials+base; id++ {
		fmt.Fprintf(bw, "s %d %s\n", id, strconv.Quote(a.table.reprs[id]))
	}
	for _, m := range a.merges {
		fmt.Fprintf(bw, "m %d %d %d\n", m.Left, m.Right, m.Result)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "failed to write artifact")
	}
	return nil
}

// Load reads an artifact written by Save, verifying the format version
// against FormatCompatibilityConstraint and rebuilding the symbol table
// entry by entry. Every structural inconsistency fails with
// ErrArtifactCorrupt.
func Load(r io.Reader) (*Artifact, error) {
	constraint, err := semver.NewConstraint(FormatCompatibilityConstraint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse format constraint: %s", FormatCompatibilityConstraint)
	}

	a := &Artifact{table: NewSymbolTable()}
	var base, mergeCount int
	sawFormat := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "format":
			if len(fields) != 2 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed format line", line)
			}
			ver, err := semver.NewVersion(fields[1])
			if err != nil {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: bad format version %q", line, fields[1])
			}
			if !constraint.Check(ver) {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "format version %s outside supported range %s", ver, FormatCompatibilityConstraint)
			}
			sawFormat = true
		case "unit":
			if len(fields) != 2 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed unit line", line)
			}
			unit, err := ParseAtomicUnit(fields[1])
			if err != nil {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: %s", line, err)
			}
			a.Unit = unit
		case "clean":
			if len(fields) != 2 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed clean line", line)
			}
			a.Clean = fields[1] == "true"
		case "base":
			base, err = parseCount(fields, line)
			if err != nil {
				return nil, err
			}
		case "merges":
			mergeCount, err = parseCount(fields, line)
			if err != nil {
				return nil, err
			}
		case "s":
			if len(fields) < 3 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed symbol line", line)
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: bad symbol id %q", line, fields[1])
			}
			// The quoted representation may itself contain spaces, so locate
			// it by its opening quote rather than by field position.
			qi := strings.IndexByte(text, '"')
			if qi < 0 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed symbol line", line)
			}
			repr, err := strconv.Unquote(text[qi:])
			if err != nil {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: bad symbol representation", line)
			}
			if got := a.table.addAtomic(repr); got != Symbol(id) {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: symbol id %d assigned as %d (duplicate or out-of-order entry)", line, id, got)
			}
		case "m":
			if len(fields) != 4 {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed merge line", line)
			}
			refs := make([]int, 3)
			for i := 0; i < 3; i++ {
				refs[i], err = strconv.Atoi(fields[i+1])
				if err != nil {
					return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: bad merge reference %q", line, fields[i+1])
				}
			}
			pair := Pair{Symbol(refs[0]), Symbol(refs[1])}
			result, err := a.table.RegisterMerge(pair)
			if err != nil {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: %s", line, err)
			}
			if result != Symbol(refs[2]) {
				return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: merge result %d does not match creation order (expected %d)", line, refs[2], result)
			}
			a.merges = append(a.merges, Merge{Left: pair.Left, Right: pair.Right, Result: result})
		default:
			return nil, errors.Wrapf(ErrArtifactCorrupt, "line %d: unknown record %q", line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read artifact")
	}
	if !sawFormat {
		return nil, errors.Wrap(ErrArtifactCorrupt, "missing format header")
	}
	if got := a.table.Len() - a.table.Merges() - numSpecials; got != base {
		return nil, errors.Wrapf(ErrArtifactCorrupt, "base symbol count mismatch: header %d, entries %d", base, got)
	}
	if len(a.merges) != mergeCount {
		return nil, errors.Wrapf(ErrArtifactCorrupt, "merge count mismatch: header %d, entries %d", mergeCount, len(a.merges))
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func parseCount(fields []string, line int) (int, error) {
	if len(fields) != 2 {
		return 0, errors.Wrapf(ErrArtifactCorrupt, "line %d: malformed count line", line)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrArtifactCorrupt, "line %d: bad count %q", line, fields[1])
	}
	return n, nil
}

// SaveFile writes the artifact to path, gzip-compressed when the path ends
// in .gz.
func (a *Artifact) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create artifact file: %s", path)
	}
	if filepath.Ext(path) == ".gz" {
		gz := gzip.NewWriter(f)
		if err := a.Save(gz); err != nil {
			_ = f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			_ = f.Close()
			return errors.Wrap(err, "failed to finish gzip stream")
		}
	} else if err := a.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close artifact file: %s", path)
}

// LoadFile reads an artifact from path, transparently gunzipping .gz files.
func LoadFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open artifact file: %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open gzip stream: %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return Load(r)
}
