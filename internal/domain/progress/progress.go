// Package progress is the per-module experience ledger shared by every
// feature area.
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// Store is the persistence the ledger needs. AddXP must be atomic per
// (user, module).
type Store interface {
	AddXP(ctx context.Context, userID, module string, amount int64) (int64, error)
	UnlockItem(ctx context.Context, userID, module, itemID string) (bool, error)
	Progress(ctx context.Context, userID, module string) (int64, []string, error)
}

// Ledger grants XP and unlocks items. Level is never stored; it is derived
// from total XP on every read.
type Ledger struct {
	store      Store
	xpPerLevel int64
	log        logger.Logger
}

// NewLedger creates a Ledger. A non-positive xpPerLevel falls back to
// model.DefaultXPPerLevel.
func NewLedger(store Store, xpPerLevel int64) *Ledger {
	if xpPerLevel <= 0 {
		xpPerLevel = model.DefaultXPPerLevel
	}
	return &Ledger{store: store, xpPerLevel: xpPerLevel, log: logger.Named("progress")}
}

// GrantXP adds amount to the module's total. source is informational.
func (l *Ledger) GrantXP(ctx context.Context, userID, module string, amount int64, source string) (model.XPGrant, error) {
	module, err := normalize(userID, module)
	if err != nil {
		return model.XPGrant{}, err
	}
	if amount <= 0 {
		return model.XPGrant{}, fmt.Errorf("%w: got %d", model.ErrInvalidXP, amount)
	}

	total, err := l.store.AddXP(ctx, userID, module, amount)
	if err != nil {
		return model.XPGrant{}, fmt.Errorf("grant xp: %w", err)
	}
	// The store returns the post-grant total atomically, so the pre-grant
	// level is exact even under concurrent grants.
	before := model.LevelFor(total-amount, l.xpPerLevel)
	after := model.LevelFor(total, l.xpPerLevel)

	metrics.RecordXPGranted(module, amount)
	if after > before {
		metrics.RecordLevelUp(module)
		l.log.Info(ctx, "level up",
			logger.String("module", module),
			logger.Int64("level", after),
			logger.String("source", source))
	}
	return model.XPGrant{Level: after, LeveledUp: after > before, TotalXP: total}, nil
}

// UnlockItem adds itemID to the module's unlocked set. Unlocking twice is not
// an error.
func (l *Ledger) UnlockItem(ctx context.Context, userID, module, itemID string) error {
	module, err := normalize(userID, module)
	if err != nil {
		return err
	}
	if strings.TrimSpace(itemID) == "" {
		return fmt.Errorf("%w: item_id is required", model.ErrInvalidModule)
	}
	added, err := l.store.UnlockItem(ctx, userID, module, itemID)
	if err != nil {
		return fmt.Errorf("unlock item: %w", err)
	}
	if added {
		metrics.RecordItemUnlocked(module)
	}
	return nil
}

// Progress reads one module.
func (l *Ledger) Progress(ctx context.Context, userID, module string) (model.ModuleProgress, error) {
	module, err := normalize(userID, module)
	if err != nil {
		return model.ModuleProgress{}, err
	}
	total, items, err := l.store.Progress(ctx, userID, module)
	if err != nil {
		return model.ModuleProgress{}, fmt.Errorf("read progress: %w", err)
	}
	if items == nil {
		items = []string{}
	}
	return model.ModuleProgress{
		UserID:          userID,
		ModuleName:      module,
		Level:           model.LevelFor(total, l.xpPerLevel),
		TotalXP:         total,
		UnlockedItemIDs: items,
	}, nil
}

func normalize(userID, module string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user_id is required", model.ErrInvalidEvent)
	}
	module = strings.ToLower(strings.TrimSpace(module))
	if module == "" {
		return "", model.ErrInvalidModule
	}
	return module, nil
}
