package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// naive ISO-8601 layouts carry no zone; they are read in the store's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type sentMeta struct {
	LastSent string `json:"last_sent"`
}

// MetaStore reads and writes the {"last_sent": "..."} metadata file.
type MetaStore struct {
	Path     string
	Location *time.Location
	Logger   *slog.Logger
}

// LastSent returns the recorded send time. ok is false when no usable record
// exists; a malformed file counts as missing.
func (m *MetaStore) LastSent(_ context.Context) (time.Time, bool, error) {
	b, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read meta: %w", err)
	}

	var meta sentMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		m.logger().Warn("content meta: malformed file", "path", m.Path, "err", err)
		return time.Time{}, false, nil
	}
	if strings.TrimSpace(meta.LastSent) == "" {
		return time.Time{}, false, nil
	}

	t, err := ParseTimestamp(meta.LastSent, m.location())
	if err != nil {
		m.logger().Warn("content meta: bad last_sent", "path", m.Path, "value", meta.LastSent, "err", err)
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetLastSent overwrites the metadata file.
func (m *MetaStore) SetLastSent(_ context.Context, when time.Time) error {
	b, err := json.MarshalIndent(sentMeta{LastSent: when.In(m.location()).Format(time.RFC3339)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeFileAtomic(m.Path, append(b, '\n')); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (m *MetaStore) location() *time.Location {
	if m.Location == nil {
		return time.Local
	}
	return m.Location
}

func (m *MetaStore) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO-8601 values. Zone-less
// values are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
