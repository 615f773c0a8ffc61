package models

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/pergola/pkg/domain"
)

// code shells out to an external executable once per sample.
//
// For each sample a scratch directory is created under the working
// directory; the input deck is rendered from the declared template file with
// $var$ placeholders substituted by the sample's coordinates, the executable
// runs with %input%/%output% argument tokens expanded, and outputs are read
// back from the last record of the CSV the code writes.
//
// A missing executable or template is fatal for the whole step. A nonzero
// exit status, or a FAILED token in the code's output stream (codes that
// record failure as normal termination), is scoped to the failing sample.
type code struct {
	spec     *domain.ModelSpec
	workdir  string
	template string
	parallel bool
}

const failureToken = "FAILED"

func newCode(spec *domain.ModelSpec, opts Options) (*code, error) {
	c := &code{spec: spec, workdir: opts.WorkingDir, parallel: opts.InternalParallel}
	if spec.InputFile != "" {
		f, ok := opts.Files[spec.InputFile]
		if !ok {
			return nil, fmt.Errorf("model %q: inputFile %q is not declared in <Files>", spec.Name, spec.InputFile)
		}
		path := f.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.WorkingDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("model %q: read input template: %w", spec.Name, err)
		}
		c.template = string(data)
	}
	return c, nil
}

func (c *code) Evaluate(ctx context.Context, inputs domain.Row) (domain.Row, error) {
	row, _, err := c.run(ctx, inputs)
	return row, err
}

// EvaluateHistory runs the code and keeps every output record as a time
// series, for steps that collect into a HistorySet.
func (c *code) EvaluateHistory(ctx context.Context, inputs domain.Row) (domain.Row, domain.History, error) {
	return c.run(ctx, inputs)
}

func (c *code) run(ctx context.Context, inputs domain.Row) (domain.Row, domain.History, error) {
	dir, err := os.MkdirTemp(c.workdir, c.spec.Name+"-")
	if err != nil {
		return nil, domain.History{}, Fatalf("model %q: create scratch dir: %v", c.spec.Name, err)
	}

	deckPath := ""
	if c.template != "" {
		deck := c.template
		for name, value := range inputs {
			deck = strings.ReplaceAll(deck, "$"+name+"$", strconv.FormatFloat(value, 'g', -1, 64))
		}
		deckPath = filepath.Join(dir, filepath.Base(c.spec.InputFile))
		if err := os.WriteFile(deckPath, []byte(deck), 0o644); err != nil {
			return nil, domain.History{}, Fatalf("model %q: write input deck: %v", c.spec.Name, err)
		}
	}

	outPath := filepath.Join(dir, c.spec.OutputFile)
	args := make([]string, 0, len(c.spec.Arguments))
	for _, a := range c.spec.Arguments {
		a = strings.ReplaceAll(a, "%input%", deckPath)
		a = strings.ReplaceAll(a, "%output%", outPath)
		args = append(args, a)
	}

	cmd := exec.CommandContext(ctx, c.spec.Executable, args...)
	cmd.Dir = dir
	if c.parallel {
		cmd.Env = append(os.Environ(), "PERGOLA_INTERNAL_PARALLEL=1")
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil, domain.History{}, fmt.Errorf("model %q: exit status: %w (output: %s)", c.spec.Name, err, firstLine(out))
		}
		// Not a run failure: the executable itself could not be started.
		return nil, domain.History{}, Fatalf("model %q: start %q: %v", c.spec.Name, c.spec.Executable, err)
	}
	if strings.Contains(string(out), failureToken) {
		return nil, domain.History{}, fmt.Errorf("model %q: output reports %s", c.spec.Name, failureToken)
	}

	return c.readOutputs(outPath)
}

// readOutputs parses the code's CSV into per-column series. The returned Row
// carries the last record (the code's final state); the History carries the
// full series keyed by column name.
func (c *code) readOutputs(path string) (domain.Row, domain.History, error) {
	none := domain.History{}
	f, err := os.Open(path)
	if err != nil {
		return nil, none, fmt.Errorf("model %q: open output: %w", c.spec.Name, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, none, fmt.Errorf("model %q: parse output csv: %w", c.spec.Name, err)
	}
	if len(records) < 2 {
		return nil, none, fmt.Errorf("model %q: output csv has no data rows", c.spec.Name)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	series := make(map[string][]float64, len(header))
	for _, rec := range records[1:] {
		for i, name := range header {
			if i >= len(rec) {
				break
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, none, fmt.Errorf("model %q: output column %q is not numeric: %w", c.spec.Name, name, err)
			}
			series[name] = append(series[name], v)
		}
	}

	row := domain.Row{}
	for name, values := range series {
		row[name] = values[len(values)-1]
	}
	return row, domain.History{Values: series}, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
