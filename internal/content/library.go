package content

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

const (
	CurrentFile  = "newsletter_content.html"
	UpcomingFile = "newsletter_new.html"
	DraftFile    = "newsletter_draft.html"
	MetaFile     = "newsletter_meta.json"

	Placeholder = "<p>La newsletter n'est pas encore disponible.</p>"
)

type LastSentReader interface {
	LastSent(ctx context.Context) (time.Time, bool, error)
}

// Edition is the body served for a newsletter page view.
type Edition struct {
	Slot    Slot
	Body    template.HTML
	Missing bool
}

// Library binds slots to files inside Dir.
type Library struct {
	Dir   string
	Delay time.Duration
	Meta  LastSentReader
	Now   func() time.Time
}

func NewLibrary(dir string, delay time.Duration, loc *time.Location) *Library {
	return &Library{
		Dir:   dir,
		Delay: delay,
		Meta:  &MetaStore{Path: filepath.Join(dir, MetaFile), Location: loc},
	}
}

// Load picks the slot for now and returns its file. A missing file yields the
// placeholder body rather than an error.
func (l *Library) Load(ctx context.Context) (Edition, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	var lastSent time.Time
	if l.Meta != nil {
		t, ok, err := l.Meta.LastSent(ctx)
		if err != nil {
			return Edition{}, err
		}
		if ok {
			lastSent = t
		}
	}

	delay := l.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	slot := Select(now(), lastSent, delay)

	body, missing, err := l.read(l.slotFile(slot))
	if err != nil {
		return Edition{}, err
	}
	return Edition{Slot: slot, Body: body, Missing: missing}, nil
}

// Draft returns the edition being prepared, for preview.
func (l *Library) Draft(_ context.Context) (Edition, error) {
	body, missing, err := l.read(DraftFile)
	if err != nil {
		return Edition{}, err
	}
	return Edition{Body: body, Missing: missing}, nil
}

func (l *Library) slotFile(s Slot) string {
	if s == SlotUpcoming {
		return UpcomingFile
	}
	return CurrentFile
}

func (l *Library) read(name string) (template.HTML, bool, error) {
	b, err := os.ReadFile(filepath.Join(l.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return template.HTML(Placeholder), true, nil
		}
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	// Edition files are authored by the site operators.
	return template.HTML(b), false, nil
}

type LastSentWriter interface {
	SetLastSent(ctx context.Context, when time.Time) error
}

// Publisher installs a new edition in the upcoming slot and stamps the send
// time, which starts the delay.
type Publisher struct {
	Dir  string
	Meta LastSentWriter
}

func NewPublisher(dir string, loc *time.Location) *Publisher {
	return &Publisher{
		Dir:  dir,
		Meta: &MetaStore{Path: filepath.Join(dir, MetaFile), Location: loc},
	}
}

func (p *Publisher) Publish(ctx context.Context, source string, now time.Time) error {
	b, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read edition: %w", err)
	}
	return p.PublishBytes(ctx, b, now)
}

func (p *Publisher) PublishBytes(ctx context.Context, body []byte, now time.Time) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(p.Dir, UpcomingFile), body); err != nil {
		return fmt.Errorf("write edition: %w", err)
	}
	return p.Meta.SetLastSent(ctx, now)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
