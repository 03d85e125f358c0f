package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/phrazzld/genstudio/internal/domain"
)

// Common errors returned by the Pool
var (
	// ErrExhausted is returned by Current when the rotation cursor has
	// moved past the last configured credential.
	ErrExhausted = errors.New("credential pool exhausted")

	// ErrTooManyBackups is returned when a backup list exceeds
	// domain.MaxBackupCredentials entries.
	ErrTooManyBackups = errors.New("too many backup credentials")
)

// primaryPosition is the cursor value that selects the primary credential.
const primaryPosition = 0

// BackupStore persists the backup credential list across restarts.
type BackupStore interface {
	// LoadBackupCredentials returns the stored list. stored is false
	// when nothing has been saved yet; a saved empty list reports true.
	LoadBackupCredentials(ctx context.Context) (keys []string, stored bool, err error)

	// SaveBackupCredentials replaces the stored list.
	SaveBackupCredentials(ctx context.Context, keys []string) error
}

// Pool holds the primary credential, the ordered backups and the shared
// rotation cursor. It is safe for concurrent use.
//
// The cursor indexes {primary, backup[0], backup[1], ...}: 0 is the
// primary, i+1 is backup[i].
type Pool struct {
	mu      sync.Mutex
	primary string
	backups []string
	cursor  int
	store   BackupStore
	logger  *slog.Logger
}

// NewPool creates a pool with the given primary key and initial backups.
// The store may be nil, in which case ReplaceBackups only updates memory.
func NewPool(primary string, backups []string, store BackupStore, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cleaned, err := normalizeBackups(backups)
	if err != nil {
		return nil, err
	}

	return &Pool{
		primary: strings.TrimSpace(primary),
		backups: cleaned,
		cursor:  primaryPosition,
		store:   store,
		logger:  logger.With("component", "credential_pool"),
	}, nil
}

// LoadPool creates a pool whose backups come from the store. If no list
// was ever saved, seed is used instead and written back so that it
// survives the next restart. A saved empty list stays empty.
func LoadPool(
	ctx context.Context,
	primary string,
	seed []string,
	store BackupStore,
	logger *slog.Logger,
) (*Pool, error) {
	if store == nil {
		return NewPool(primary, seed, nil, logger)
	}

	backups, stored, err := store.LoadBackupCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup credentials: %w", err)
	}

	pool, err := NewPool(primary, backups, store, logger)
	if err != nil {
		return nil, err
	}

	if !stored && len(seed) > 0 {
		if err := pool.ReplaceBackups(ctx, seed); err != nil {
			return nil, err
		}
	}

	pool.logger.InfoContext(ctx, "credential pool loaded",
		"has_primary", pool.primary != "",
		"backup_count", len(pool.backups),
		"seeded", !stored && len(seed) > 0)

	return pool, nil
}

// Current returns the credential at the rotation cursor. If the cursor is
// on the primary and no primary is configured, it falls through to
// backup[0]. If the cursor has moved past the last backup it returns
// ErrExhausted.
func (p *Pool) Current() (domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.credentialAt(p.cursor)
}

// credentialAt resolves a cursor position. The caller must hold p.mu.
func (p *Pool) credentialAt(pos int) (domain.Credential, error) {
	if pos == primaryPosition {
		if p.primary != "" {
			return domain.Credential{Secret: p.primary, Role: domain.RolePrimary, Position: -1}, nil
		}
		pos = 1
	}

	idx := pos - 1
	if idx < 0 || idx >= len(p.backups) {
		return domain.Credential{}, fmt.Errorf("%w: position %d of %d backups", ErrExhausted, pos, len(p.backups))
	}

	return domain.Credential{Secret: p.backups[idx], Role: domain.RoleBackup, Position: idx}, nil
}

// Rotate advances the cursor by one position. It does not check for
// exhaustion: bounding the number of attempts is the caller's job.
//
// When no primary is configured the primary slot already resolves to
// backup[0], so rotating away from it skips straight to backup[1].
func (p *Pool) Rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.cursor
	if p.cursor == primaryPosition && p.primary == "" {
		p.cursor = 2
	} else {
		p.cursor++
	}

	p.logger.Info("rotated credential",
		"from_position", from,
		"to_position", p.cursor)
}

// ReplaceBackups persists a new backup list, swaps it in and resets the
// cursor to the primary. Blank entries are dropped. If persisting fails
// the pool is left unchanged.
func (p *Pool) ReplaceBackups(ctx context.Context, keys []string) error {
	cleaned, err := normalizeBackups(keys)
	if err != nil {
		return err
	}

	// Hold the lock across the write so concurrent replacements apply in
	// the same order in memory and in storage.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		if err := p.store.SaveBackupCredentials(ctx, cleaned); err != nil {
			p.logger.ErrorContext(ctx, "failed to persist backup credentials", "error", err)
			return fmt.Errorf("failed to persist backup credentials: %w", err)
		}
	}

	p.backups = cleaned
	p.cursor = primaryPosition

	p.logger.InfoContext(ctx, "replaced backup credentials",
		"backup_count", len(cleaned))

	return nil
}

// Size returns the number of configured credentials: the primary (when
// set) plus every backup. It bounds the executor's rotation loop.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.backups)
	if p.primary != "" {
		n++
	}
	return n
}

// Position returns the raw cursor value (0 = primary, i+1 = backup[i]).
func (p *Pool) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Labels describes the configured credentials without revealing secrets,
// in rotation order.
func (p *Pool) Labels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	labels := make([]string, 0, len(p.backups)+1)
	if p.primary != "" {
		labels = append(labels, domain.Credential{Role: domain.RolePrimary}.String())
	}
	for i := range p.backups {
		labels = append(labels, domain.Credential{Role: domain.RoleBackup, Position: i}.String())
	}
	return labels
}

// Backups returns a copy of the backup list.
func (p *Pool) Backups() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.backups))
	copy(out, p.backups)
	return out
}

func normalizeBackups(keys []string) ([]string, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}

	if len(cleaned) > domain.MaxBackupCredentials {
		return nil, fmt.Errorf("%w: got %d, max %d",
			ErrTooManyBackups, len(cleaned), domain.MaxBackupCredentials)
	}

	return cleaned, nil
}
