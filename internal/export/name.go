package export

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// FileName maps a series name to a file name without extension. The
// mapping is injective: path separators, ':', '%' and control characters
// are percent-escaped, and the empty series becomes "%".
func FileName(series string) string {
	if series == "" {
		return "%"
	}

	var b strings.Builder
	for i := 0; i < len(series); i++ {
		c := series[i]
		switch {
		case c == '/', c == '\\', c == ':', c == '%', c < 32, c == 127:
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SeriesFromPath returns the series a file holds, reversing FileName on
// the file name without directory and extension. Names that are not valid
// escapes are returned unchanged.
func SeriesFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "%" {
		return ""
	}

	series, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return series
}
