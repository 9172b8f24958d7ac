package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats data as JSON. Values are written unescaped so that
// URLs and query strings read as configured.
type JSONFormatter struct {
	// Compact writes each value on one line, for streams such as watch.
	Compact bool
}

// Format writes data followed by a newline.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !f.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
