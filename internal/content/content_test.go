package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(s, time.UTC)
	require.NoError(t, err)
	return ts
}

func TestSelectBoundary(t *testing.T) {
	lastSent := mustParse(t, "2024-01-01T00:00:00")

	tests := []struct {
		name string
		now  time.Time
		want Slot
	}{
		{name: "same instant", now: lastSent, want: SlotCurrent},
		{name: "one second before", now: mustParse(t, "2024-01-02T23:59:59"), want: SlotCurrent},
		{name: "exactly at delay", now: mustParse(t, "2024-01-03T00:00:00"), want: SlotUpcoming},
		{name: "one second after", now: mustParse(t, "2024-01-03T00:00:01"), want: SlotUpcoming},
		{name: "much later", now: mustParse(t, "2024-03-01T12:00:00"), want: SlotUpcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Select(tt.now, lastSent, DefaultDelay))
		})
	}
}

func TestSelectZeroLastSentIsEpoch(t *testing.T) {
	require.Equal(t, SlotUpcoming, Select(time.Now(), time.Time{}, DefaultDelay))
	require.Equal(t, SlotCurrent, Select(time.Unix(3600, 0), time.Time{}, DefaultDelay))
}

func TestParseTimestamp(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	got, err := ParseTimestamp("2024-01-01T10:00:00.123456", paris)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T09:00:00.123456Z", got.UTC().Format("2006-01-02T15:04:05.999999Z07:00"))

	got, err = ParseTimestamp("2024-01-01T10:00:00+02:00", paris)
	require.NoError(t, err)
	require.Equal(t, 8, got.UTC().Hour())

	_, err = ParseTimestamp("yesterday", paris)
	require.Error(t, err)
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLibraryLoadMissingMetaServesUpcoming(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CurrentFile, "<p>current</p>")
	writeFile(t, dir, UpcomingFile, "<p>upcoming</p>")

	lib := NewLibrary(dir, DefaultDelay, time.UTC)
	ed, err := lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SlotUpcoming, ed.Slot)
	require.Equal(t, "<p>upcoming</p>", string(ed.Body))
}

func TestLibraryLoadFollowsMeta(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CurrentFile, "<p>current</p>")
	writeFile(t, dir, UpcomingFile, "<p>upcoming</p>")
	writeFile(t, dir, MetaFile, `{"last_sent": "2024-01-01T00:00:00"}`)

	lib := NewLibrary(dir, DefaultDelay, time.UTC)

	lib.Now = func() time.Time { return mustParse(t, "2024-01-02T23:59:59") }
	ed, err := lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SlotCurrent, ed.Slot)
	require.Equal(t, "<p>current</p>", string(ed.Body))

	lib.Now = func() time.Time { return mustParse(t, "2024-01-03T00:00:01") }
	ed, err = lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SlotUpcoming, ed.Slot)
	require.Equal(t, "<p>upcoming</p>", string(ed.Body))
}

func TestLibraryLoadMissingFileIsPlaceholder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, MetaFile, `{"last_sent": "2024-01-01T00:00:00"}`)

	lib := NewLibrary(dir, DefaultDelay, time.UTC)
	lib.Now = func() time.Time { return mustParse(t, "2024-01-01T01:00:00") }

	ed, err := lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SlotCurrent, ed.Slot)
	require.True(t, ed.Missing)
	require.Equal(t, Placeholder, string(ed.Body))
}

func TestLibraryLoadMalformedMetaIsEpoch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UpcomingFile, "<p>upcoming</p>")
	writeFile(t, dir, MetaFile, `{"last_sent": `)

	ed, err := NewLibrary(dir, DefaultDelay, time.UTC).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SlotUpcoming, ed.Slot)
}

func TestPublishHoldsEditionForDelay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CurrentFile, "<p>old</p>")
	src := filepath.Join(t.TempDir(), "nouvelle_edition.html")
	require.NoError(t, os.WriteFile(src, []byte("<p>new</p>"), 0o644))

	sentAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, NewPublisher(dir, time.UTC).Publish(context.Background(), src, sentAt))

	meta, err := os.ReadFile(filepath.Join(dir, MetaFile))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(meta), "2024-05-01T09:00:00Z"))

	lib := NewLibrary(dir, DefaultDelay, time.UTC)
	lib.Now = func() time.Time { return sentAt.Add(47 * time.Hour) }
	ed, err := lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "<p>old</p>", string(ed.Body))

	lib.Now = func() time.Time { return sentAt.Add(48 * time.Hour) }
	ed, err = lib.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "<p>new</p>", string(ed.Body))
}

func TestDraftPlaceholder(t *testing.T) {
	ed, err := NewLibrary(t.TempDir(), DefaultDelay, time.UTC).Draft(context.Background())
	require.NoError(t, err)
	require.True(t, ed.Missing)
}
