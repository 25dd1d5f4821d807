package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtxerr/tdigest/internal/digest"
	"github.com/xtxerr/tdigest/internal/errors"
	"github.com/xtxerr/tdigest/internal/logging"
)

var log = logging.Component("export")

// WriteFile writes entries to path in the format given by its extension.
// A .pb file holds exactly one entry; its series name is the file name.
func WriteFile(path string, entries []Entry, opts Options) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatPB:
		if len(entries) != 1 {
			return errors.NewDimensionMismatch("pb entries", len(entries), 1)
		}
		err = writePB(path, entries[0].Snapshot)
	default:
		err = writeParquet(path, entries, opts)
	}
	if err != nil {
		return err
	}

	log.Debug("snapshot written", "path", path, "format", format.String(), "entries", len(entries))
	return nil
}

// ReadFile reads every entry stored at path.
func ReadFile(path string) ([]Entry, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if format == FormatPB {
		s, err := readPB(path)
		if err != nil {
			return nil, err
		}
		return []Entry{{Series: SeriesFromPath(path), Snapshot: s}}, nil
	}

	r, err := NewSnapshotReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.ReadAll()
}

// Restore rebuilds the digest of an entry.
func Restore(e Entry, opts ...digest.Option) (*digest.Digest, error) {
	d, err := digest.FromSnapshot(e.Snapshot, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "series %q", e.Series)
	}
	return d, nil
}

func writeParquet(path string, entries []Entry, opts Options) error {
	w, err := NewSnapshotWriter(path, opts)
	if err != nil {
		return err
	}

	if err := w.WriteEntries(entries); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

// writePB writes through a temporary file so readers never see a partial
// snapshot.
func writePB(path string, s digest.Snapshot) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

func readPB(path string) (digest.Snapshot, error) {
	var s digest.Snapshot

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read snapshot: %w", err)
	}

	if err := s.UnmarshalBinary(data); err != nil {
		return s, err
	}
	return s, nil
}
