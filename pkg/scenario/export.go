package scenario

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const stateSuffix = "State"

type exportConfig struct {
	encoding   string
	emptyCell  string
	trimSuffix bool
}

// ExportOption configures CSV export.
type ExportOption func(*exportConfig)

// WithEncoding sets the output encoding by its WHATWG name, e.g. "windows-1251".
func WithEncoding(name string) ExportOption {
	return func(c *exportConfig) {
		if name != "" {
			c.encoding = name
		}
	}
}

// WithEmptyCell sets the value written where a signal does not lead to a state.
func WithEmptyCell(v string) ExportOption {
	return func(c *exportConfig) { c.emptyCell = v }
}

// WithTrimSuffix controls stripping of a trailing "State" from displayed state names.
func WithTrimSuffix(trim bool) ExportOption {
	return func(c *exportConfig) { c.trimSuffix = trim }
}

// ExportCSV writes the table as CSV: a header row with every state, then one
// row per signal. A cell holds the state's name when the signal leads into
// that state and the empty cell value otherwise.
func (t *Table) ExportCSV(w io.Writer, opts ...ExportOption) error {
	cfg := &exportConfig{encoding: "utf-8", trimSuffix: true}
	for _, opt := range opts {
		opt(cfg)
	}

	rows, err := t.exportRows(cfg)
	if err != nil {
		return err
	}

	out, closeFn, err := encodedWriter(w, cfg.encoding)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Join(ErrExport, err)
	}
	if err := closeFn(); err != nil {
		return errors.Join(ErrExport, err)
	}
	return nil
}

// ExportFile writes the CSV export to path.
func (t *Table) ExportFile(path string, opts ...ExportOption) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Join(ErrExport, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Join(ErrExport, cerr)
		}
	}()
	return t.ExportCSV(f, opts...)
}

func (t *Table) exportRows(cfg *exportConfig) ([][]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.signals) == 0 {
		return nil, errors.Join(ErrExport, errors.New("there are no transitions"))
	}

	display := func(name string) string {
		if cfg.trimSuffix {
			return strings.TrimSuffix(name, stateSuffix)
		}
		return name
	}

	header := make([]string, 0, len(t.order)+1)
	header = append(header, "")
	for _, name := range t.order {
		header = append(header, display(name))
	}

	rows := [][]string{header}
	for _, sig := range t.signals {
		targets := make(map[string]struct{})
		for _, routes := range t.transitions {
			if dst, ok := routes[sig]; ok {
				targets[dst] = struct{}{}
			}
		}

		row := make([]string, 0, len(header))
		row = append(row, sig)
		for _, name := range t.order {
			if _, ok := targets[name]; ok {
				row = append(row, display(name))
			} else {
				row = append(row, cfg.emptyCell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodedWriter(w io.Writer, name string) (io.Writer, func() error, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, nil, errors.Join(ErrExport, fmt.Errorf("unsupported encoding %q: %w", name, err))
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return w, func() error { return nil }, nil
	}
	tw := transform.NewWriter(w, enc.NewEncoder())
	return tw, tw.Close, nil
}
