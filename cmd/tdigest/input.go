package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xtxerr/tdigest/internal/aggregate"
	"github.com/xtxerr/tdigest/internal/errors"
)

// readBatch is the number of parsed lines handed to a digest at once.
const readBatch = 64 * 1024

// fields splits a line on commas and whitespace. Blank lines and lines
// starting with # yield nothing.
func fields(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func parseFloat(field string, line int, what string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "line %d: %s %q", line, what, field)
	}
	return v, nil
}

// scanValues reads "value" or "value,weight" lines and calls emit once per
// batch. Without weighted, every line must hold exactly one value.
func scanValues(r io.Reader, weighted bool, emit func(values, weights []float64) error) error {
	values := make([]float64, 0, readBatch)
	weights := make([]float64, 0, readBatch)

	flush := func() error {
		if len(values) == 0 {
			return nil
		}
		err := emit(values, weights)
		values, weights = values[:0], weights[:0]
		return err
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		f := fields(scanner.Text())
		if f == nil {
			continue
		}

		want := 1
		if weighted {
			want = 2
		}
		if len(f) != want {
			return errors.Wrapf(errors.ErrInvalidInput, "line %d: expected %d fields, got %d", line, want, len(f))
		}

		v, err := parseFloat(f[0], line, "value")
		if err != nil {
			return err
		}
		w := 1.0
		if weighted {
			if w, err = parseFloat(f[1], line, "weight"); err != nil {
				return err
			}
		}
		values = append(values, v)
		weights = append(weights, w)

		if len(values) == readBatch {
			if err := flush(); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// scanSamples reads "series,timestamp_ms,value[,weight]" lines.
func scanSamples(r io.Reader, emit func([]aggregate.Sample) error) error {
	batch := make([]aggregate.Sample, 0, readBatch)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		f := fields(scanner.Text())
		if f == nil {
			continue
		}
		if len(f) != 3 && len(f) != 4 {
			return errors.Wrapf(errors.ErrInvalidInput, "line %d: expected 3 or 4 fields, got %d", line, len(f))
		}

		ts, err := strconv.ParseInt(f[1], 10, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidInput, "line %d: timestamp %q", line, f[1])
		}
		v, err := parseFloat(f[2], line, "value")
		if err != nil {
			return err
		}
		s := aggregate.Sample{Series: f[0], TimestampMs: ts, Value: v}
		if len(f) == 4 {
			if s.Weight, err = parseFloat(f[3], line, "weight"); err != nil {
				return err
			}
		}
		batch = append(batch, s)

		if len(batch) == readBatch {
			if err := emit(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return emit(batch)
	}
	return nil
}

// eachInput opens every named file in turn, or stdin when names is empty
// or a name is "-".
func eachInput(stdin io.Reader, names []string, fn func(io.Reader) error) error {
	if len(names) == 0 {
		return fn(stdin)
	}
	for _, name := range names {
		if name == "-" {
			if err := fn(stdin); err != nil {
				return err
			}
			continue
		}
		if err := readFile(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func readFile(name string, fn func(io.Reader) error) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// parseFloats parses a list of flag values.
func parseFloats(list []string) ([]float64, error) {
	out := make([]float64, 0, len(list))
	for _, s := range list {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "number %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}
