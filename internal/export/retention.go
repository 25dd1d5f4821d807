package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// PruneResult holds the result of a cleanup operation.
type PruneResult struct {
	FilesDeleted int
	BytesFreed   int64
	FilesSkipped int
	Errors       []error
}

// Err joins the per-file errors, or returns nil.
func (r PruneResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("prune: %d files failed: %w", len(r.Errors), r.Errors[0])
}

// Prune deletes snapshot files in dir last modified before now minus
// maxAge. With dryRun set, files are counted but kept. A missing dir is
// not an error.
func Prune(dir string, maxAge time.Duration, now time.Time, dryRun bool) PruneResult {
	var result PruneResult

	files, err := listSnapshots(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, fmt.Errorf("list files: %w", err))
		}
		return result
	}

	cutoff := now.Add(-maxAge)
	for _, file := range files {
		if file.modTime.After(cutoff) {
			result.FilesSkipped++
			continue
		}

		if !dryRun {
			if err := os.Remove(file.path); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", file.path, err))
				continue
			}
		}

		result.FilesDeleted++
		result.BytesFreed += file.size
	}

	log.Info("snapshots pruned",
		"dir", dir,
		"deleted", result.FilesDeleted,
		"skipped", result.FilesSkipped,
		"freed", FormatBytes(result.BytesFreed),
		"dry_run", dryRun)
	return result
}

// DiskUsage holds disk usage information.
type DiskUsage struct {
	FileCount int
	TotalSize int64
}

// Usage sums the snapshot files in dir.
func Usage(dir string) (DiskUsage, error) {
	files, err := listSnapshots(dir)
	if err != nil {
		return DiskUsage{}, err
	}

	var u DiskUsage
	for _, f := range files {
		u.FileCount++
		u.TotalSize += f.size
	}
	return u, nil
}

// fileInfo holds information about a file.
type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

// listSnapshots lists the .pb and .parquet files in dir, oldest first.
func listSnapshots(dir string) ([]fileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := FormatFromPath(entry.Name()); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, fileInfo{
			path:    filepath.Join(dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	return files, nil
}

// FormatBytes formats bytes as human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
