package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"

	"retail-insights/internal/model"
)

const stageRead = "read"

// ReadOptions controls how a delimited file is decoded.
type ReadOptions struct {
	Encoding  string // any WHATWG label, e.g. utf-8, latin1, windows-1252
	Delimiter string // first rune is used, defaults to ','
}

// ReadTable reads a delimited text file with a header row. Every cell is
// returned as a string; empty cells are null.
func ReadTable(path string, opts ReadOptions) (model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Dataset{}, &Error{Kind: ErrFileNotFound, Stage: stageRead, Row: -1, Value: path, Err: err}
		}
		return model.Dataset{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := decodeTable(f, opts)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}

func decodeTable(r io.Reader, opts ReadOptions) (model.Dataset, error) {
	if opts.Encoding != "" {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return model.Dataset{}, unsupported(stageRead, "unknown encoding %q", opts.Encoding)
		}
		r = enc.NewDecoder().Reader(r)
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	if opts.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(opts.Delimiter)
		cr.Comma = d
	}

	header, err := cr.Read()
	if err == io.EOF {
		return model.Dataset{}, newError(ErrEmptyInput, stageRead, "", -1, nil, fmt.Errorf("no header row"))
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read header: %w", err)
	}

	ds := model.NewDataset(headerNames(header)...)
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Dataset{}, fmt.Errorf("row %d: %w", row, err)
		}

		rec := make(model.Record, len(ds.Columns))
		for i, c := range ds.Columns {
			if i < len(fields) && fields[i] != "" {
				rec[c] = fields[i]
			} else {
				rec[c] = nil
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// headerNames fills blank names with "Unnamed: <i>" and suffixes repeated
// names with ".1", ".2" so every column stays addressable.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		if n, dup := seen[base]; dup {
			name = fmt.Sprintf("%s.%d", base, n)
			seen[base] = n + 1
		} else {
			seen[base] = 1
		}
		names[i] = name
	}
	return names
}

// ReadTables reads all sources concurrently and concatenates them in the
// order given. The first failure cancels the remaining reads.
func ReadTables(ctx context.Context, sources []model.Source) (model.Dataset, error) {
	if len(sources) == 0 {
		return model.Dataset{}, newError(ErrEmptyInput, stageRead, "", -1, nil, fmt.Errorf("no input files"))
	}

	tables := make([]model.Dataset, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := ReadTable(src.Path, ReadOptions{Encoding: src.Encoding, Delimiter: src.Delimiter})
			if err != nil {
				return err
			}
			tables[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Dataset{}, err
	}
	return Concat(tables...), nil
}

// Concat stacks datasets row-wise. Columns are the union in first-seen
// order; cells a dataset does not have are null.
func Concat(datasets ...model.Dataset) model.Dataset {
	var columns []string
	seen := make(map[string]bool)
	total := 0
	for _, ds := range datasets {
		total += len(ds.Records)
		for _, c := range ds.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
	}

	out := model.NewDataset(columns...)
	out.Records = make([]model.Record, 0, total)
	for _, ds := range datasets {
		for _, rec := range ds.Records {
			r := make(model.Record, len(columns))
			for _, c := range columns {
				r[c] = rec[c]
			}
			out.Records = append(out.Records, r)
		}
	}
	return out
}
