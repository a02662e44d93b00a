package attachment

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Payload is an inbound attachment as delivered on the webhook: a name and a
// data URL (`data:<mime>;base64,<content>`).
type Payload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Saved is an attachment decoded to local storage.
type Saved struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Mime string `json:"mime"`
}

// IsText reports whether the attachment should be committed as text. Media
// type wins; otherwise a small set of known text extensions.
func (s Saved) IsText() bool {
	if strings.HasPrefix(s.Mime, "text") {
		return true
	}
	name := strings.ToLower(s.Name)
	for _, ext := range []string{".md", ".csv", ".json", ".txt"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// DecodeAll writes each data-URL attachment into dir. A malformed attachment
// is skipped, not fatal; callers get whatever decoded cleanly.
func DecodeAll(dir string, payloads []Payload) ([]Saved, []error) {
	saved := make([]Saved, 0, len(payloads))
	var errs []error
	for _, p := range payloads {
		s, err := decodeOne(dir, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("attachment %q: %w", p.Name, err))
			continue
		}
		saved = append(saved, s)
	}
	return saved, errs
}

func decodeOne(dir string, p Payload) (Saved, error) {
	name := sanitizeName(p.Name)
	if name == "" {
		return Saved{}, fmt.Errorf("empty name")
	}
	mime, data, err := parseDataURL(p.URL)
	if err != nil {
		return Saved{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Saved{}, err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Saved{}, err
	}
	return Saved{Name: name, Path: path, Mime: mime}, nil
}

func parseDataURL(raw string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}
	mime = strings.TrimSuffix(meta, ";base64")
	if mime == meta {
		// Only base64 data URLs are produced by the evaluator.
		return "", nil, fmt.Errorf("unsupported data url encoding")
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", err)
	}
	return mime, data, nil
}

// sanitizeName strips any directory components so attachments cannot escape
// the working dir.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
