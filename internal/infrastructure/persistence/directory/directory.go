// Package directory implements learner.Directory in memory. The in-memory set
// is the source of truth for the running process; every write is mirrored to
// a document store in the background and store failures never reach callers.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codevia/codevia/internal/domain/learner"
	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/internal/infrastructure/persistence/docstore"
	"github.com/codevia/codevia/pkg/logger"
	"github.com/codevia/codevia/pkg/timeutil"
)

// Directory is an in-memory user directory. Safe for concurrent use.
// Users are stored and returned as copies.
type Directory struct {
	mu    sync.RWMutex
	users []*learner.User

	mirror    *docstore.Mirror
	ids       learner.IDGenerator
	clock     timeutil.Clock
	normalize func(*learner.User)
	log       *logger.Logger

	bootstrapOnce sync.Once
	bootstrapped  chan struct{}
}

// Option configures a Directory.
type Option func(*Directory)

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(g learner.IDGenerator) Option {
	return func(d *Directory) { d.ids = g }
}

// WithClock sets the clock used for timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(d *Directory) { d.clock = c }
}

// WithNormalizer sets a hook applied to users loaded from the store, usually
// Progression.Normalize.
func WithNormalizer(fn func(*learner.User)) Option {
	return func(d *Directory) { d.normalize = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Directory) { d.log = l }
}

// New creates a Directory mirroring into mirror. A nil mirror disables
// mirroring.
func New(mirror *docstore.Mirror, opts ...Option) *Directory {
	d := &Directory{
		mirror:       mirror,
		ids:          learner.IDGeneratorFunc(uuid.NewString),
		clock:        timeutil.NewSystemClock(time.UTC),
		log:          logger.Nop(),
		bootstrapped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.mirror == nil {
		d.mirror = docstore.NewMirror(nil, docstore.MirrorConfig{}, d.log)
	}
	d.log = d.log.With(logger.Component("directory"))
	return d
}

// Mirror returns the mirror used for background writes.
func (d *Directory) Mirror() *docstore.Mirror {
	return d.mirror
}

// ══════════════════════════════════════════════════════════════════════════════
// learner.Directory
// ══════════════════════════════════════════════════════════════════════════════

// Create implements learner.Directory.
func (d *Directory) Create(ctx context.Context, u *learner.User) error {
	if u == nil {
		return shared.NewDomainError("learner", "Create", shared.ErrInvalidInput, "user is nil")
	}

	d.mu.Lock()
	if d.indexByEmail(u.Email) >= 0 {
		d.mu.Unlock()
		return shared.ErrDuplicateUser
	}
	if u.ID == "" {
		u.ID = d.ids.NewID()
	}
	if d.indexByID(u.ID) >= 0 {
		d.mu.Unlock()
		return shared.NewDomainError("learner", "Create", shared.ErrAlreadyExists,
			fmt.Sprintf("user id %s already exists", u.ID))
	}
	now := d.clock.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.Touch(now)
	stored := u.Clone()
	d.users = append(d.users, stored)
	// Mirror writes are queued under the lock so the store sees them in
	// directory order.
	d.mirror.Save(stored.Clone())
	d.mu.Unlock()

	d.log.Info("user created", logger.UserID(u.ID), logger.Email(u.Email))
	return nil
}

// FindByEmail implements learner.Directory.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*learner.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i := d.indexByEmail(email); i >= 0 {
		return d.users[i].Clone(), true
	}
	return nil, false
}

// FindByID implements learner.Directory.
func (d *Directory) FindByID(ctx context.Context, id string) (*learner.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if i := d.indexByID(id); i >= 0 {
		return d.users[i].Clone(), true
	}
	return nil, false
}

// Update implements learner.Directory. Identity fields (id, creation time)
// are kept; everything else is overwritten.
func (d *Directory) Update(ctx context.Context, u *learner.User) error {
	if u == nil {
		return shared.NewDomainError("learner", "Update", shared.ErrInvalidInput, "user is nil")
	}

	d.mu.Lock()
	i := d.indexByID(u.ID)
	if i < 0 {
		d.mu.Unlock()
		return shared.ErrUserNotFound
	}
	if j := d.indexByEmail(u.Email); j >= 0 && j != i {
		d.mu.Unlock()
		return shared.ErrDuplicateUser
	}

	stored := u.Clone()
	stored.CreatedAt = d.users[i].CreatedAt
	stored.Touch(d.clock.Now())
	d.users[i] = stored
	d.mirror.Update(stored.Clone())
	d.mu.Unlock()
	return nil
}

// Delete implements learner.Directory.
func (d *Directory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	i := d.indexByID(id)
	if i < 0 {
		d.mu.Unlock()
		return shared.ErrUserNotFound
	}
	d.users = append(d.users[:i], d.users[i+1:]...)
	d.mirror.Delete(id)
	d.mu.Unlock()

	d.log.Info("user deleted", logger.UserID(id))
	return nil
}

// All implements learner.Directory.
func (d *Directory) All(ctx context.Context) []*learner.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*learner.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u.Clone())
	}
	return out
}

// Count implements learner.Directory.
func (d *Directory) Count(ctx context.Context) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDING AND BOOTSTRAP
// ══════════════════════════════════════════════════════════════════════════════

// Seed adds users without mirroring them. Users whose email is already
// present are skipped. Returns the number added.
func (d *Directory) Seed(users ...*learner.User) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, u := range users {
		if u == nil || d.indexByEmail(u.Email) >= 0 || (u.ID != "" && d.indexByID(u.ID) >= 0) {
			continue
		}
		c := u.Clone()
		if c.ID == "" {
			c.ID = d.ids.NewID()
		}
		d.users = append(d.users, c)
		added++
	}
	return added
}

// LoadFromStore merges every stored user into the directory. Users already
// present by email or id are kept as they are; the in-memory copy wins.
// Returns the number of users added.
func (d *Directory) LoadFromStore(ctx context.Context) (int, error) {
	store := d.mirror.Store()
	if store == nil {
		return 0, nil
	}

	records, err := store.GetAll(ctx, d.mirror.Collection())
	if err != nil {
		return 0, fmt.Errorf("directory: load from %s: %w", store.Name(), err)
	}

	users := make([]*learner.User, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Email) == "" || rec.ID == "" {
			continue
		}
		u := rec.ToUser()
		if d.normalize != nil {
			d.normalize(u)
		}
		users = append(users, u)
	}

	added := d.Seed(users...)
	d.log.Info("directory loaded from store",
		logger.StoreDriver(store.Name()),
		logger.Int("records", len(records)),
		logger.Int("added", added),
	)
	return added, nil
}

// Refresh reloads users from the store on demand.
func (d *Directory) Refresh(ctx context.Context) (int, error) {
	return d.LoadFromStore(ctx)
}

// StartBootstrap connects the store and loads users in the background after
// delay. It returns immediately; Bootstrapped is closed when the attempt
// finishes, successful or not. Only the first call has an effect.
func (d *Directory) StartBootstrap(ctx context.Context, delay time.Duration, timeout time.Duration) {
	d.bootstrapOnce.Do(func() {
		go func() {
			defer close(d.bootstrapped)

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
			}

			store := d.mirror.Store()
			if store == nil {
				return
			}

			if timeout <= 0 {
				timeout = docstore.DefaultMirrorTimeout
			}
			loadCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if err := store.Connect(loadCtx); err != nil {
				d.log.Warn("document store unavailable, running in memory only",
					logger.StoreDriver(store.Name()), logger.Err(err))
				return
			}
			if _, err := d.LoadFromStore(loadCtx); err != nil {
				d.log.Warn("directory bootstrap failed", logger.Err(err))
			}
		}()
	})
}

// Bootstrapped is closed once the background bootstrap has finished.
func (d *Directory) Bootstrapped() <-chan struct{} {
	return d.bootstrapped
}

func (d *Directory) indexByEmail(email string) int {
	for i, u := range d.users {
		if u.MatchesEmail(email) {
			return i
		}
	}
	return -1
}

func (d *Directory) indexByID(id string) int {
	for i, u := range d.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

var _ learner.Directory = (*Directory)(nil)
