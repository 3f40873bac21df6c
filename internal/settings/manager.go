package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the read/write contract consumed by pages and the admin editor.
// Get never fails; Save either replaces the whole document or reports a
// *PersistenceError and changes nothing.
type Store interface {
	Get(ctx context.Context) SiteSettings
	Save(ctx context.Context, s SiteSettings) error
}

// Backend holds the serialized document. Write must replace the previous
// bytes atomically and should honour ctx.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

const DefaultSaveTimeout = 5 * time.Second

// Manager implements Store on top of a Backend. It remembers the last
// document it read or wrote successfully and serves that when the backend
// cannot be read.
type Manager struct {
	backend     Backend
	logger      *logrus.Logger
	saveTimeout time.Duration

	mu       sync.RWMutex
	lastGood *SiteSettings
	// gen counts successful saves. A read only refreshes lastGood when no
	// save landed while it was in flight.
	gen uint64

	// OnSave, when set, is called after every save attempt.
	OnSave func(err error)
}

type Option func(*Manager)

// WithSaveTimeout bounds how long a single Save may take.
func WithSaveTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.saveTimeout = d
		}
	}
}

func NewManager(backend Backend, logger *logrus.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		backend:     backend,
		logger:      logger,
		saveTimeout: DefaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the stored document with every leaf filled in.
func (m *Manager) Get(ctx context.Context) SiteSettings {
	s, err := m.Current(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("settings: read failed, serving defaults")
		return Defaults()
	}
	return s
}

// Current is the strict form of Get. It fails when the backend cannot be
// read and no document has been read or saved by this Manager yet, so a
// merge is never built on defaults standing in for a real document.
// Unreadable stored bytes are not an error: they hold nothing to merge.
func (m *Manager) Current(ctx context.Context) (SiteSettings, error) {
	gen := m.generation()

	data, err := m.backend.Read(ctx)
	if errors.Is(err, ErrNoDocument) {
		return m.fallback(), nil
	}
	if err != nil {
		if last, ok := m.last(); ok {
			m.logger.WithError(err).Warn("settings: read failed, serving last good document")
			return last, nil
		}
		return SiteSettings{}, &PersistenceError{Op: "read", Err: err}
	}

	s, version, err := Decode(data)
	if err != nil {
		m.logger.WithError(err).Error("settings: stored document unreadable, serving last good document")
		return m.fallback(), nil
	}
	if version > CurrentVersion {
		m.logger.WithField("version", version).Warn("settings: document written by a newer version")
	}

	m.rememberRead(gen, s)
	return s, nil
}

// Save replaces the stored document with s.
func (m *Manager) Save(ctx context.Context, s SiteSettings) error {
	err := m.save(ctx, s)
	if m.OnSave != nil {
		m.OnSave(err)
	}
	return err
}

func (m *Manager) save(ctx context.Context, s SiteSettings) error {
	data, err := Encode(s)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, m.saveTimeout)
	defer cancel()

	if err := m.backend.Write(ctx, data); err != nil {
		m.logger.WithError(err).Error("settings: save failed")
		return &PersistenceError{Op: "save", Err: err}
	}

	m.remember(s)
	m.logger.Info("settings: document saved")
	return nil
}

// Update applies p to the current document, runs checks on the result and
// saves it. The returned document is the merged one whether or not the
// save happened, so a caller can keep it as an unsaved draft. A failed
// check is returned as is; a document that cannot be read is reported as
// a *PersistenceError and nothing is written.
func (m *Manager) Update(ctx context.Context, p Patch, checks ...func(SiteSettings) error) (SiteSettings, error) {
	base, readErr := m.Current(ctx)
	if readErr != nil {
		base = m.fallback()
	}
	next := base.Apply(p)

	for _, check := range checks {
		if err := check(next); err != nil {
			return next, err
		}
	}
	if readErr != nil {
		m.logger.WithError(readErr).Error("settings: refusing to merge over an unreadable document")
		if m.OnSave != nil {
			m.OnSave(readErr)
		}
		return next, readErr
	}
	return next, m.Save(ctx, next)
}

func (m *Manager) remember(s SiteSettings) {
	m.mu.Lock()
	m.gen++
	m.lastGood = &s
	m.mu.Unlock()
}

func (m *Manager) rememberRead(gen uint64, s SiteSettings) {
	m.mu.Lock()
	if m.gen == gen {
		m.lastGood = &s
	}
	m.mu.Unlock()
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

func (m *Manager) last() (SiteSettings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastGood == nil {
		return SiteSettings{}, false
	}
	return *m.lastGood, true
}

func (m *Manager) fallback() SiteSettings {
	if s, ok := m.last(); ok {
		return s
	}
	return Defaults()
}
