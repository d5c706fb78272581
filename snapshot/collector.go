package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dabastion/rsop"
)

// ErrCollection marks a snapshot that could not be assembled. Callers
// match it with errors.Is to tell collection failures apart from the
// posture problems found afterwards.
var ErrCollection = errors.New("collecting domain snapshot")

// Directory is the slice of directory access the collector needs.
type Directory interface {
	PrivilegedAccounts() ([]PrivilegedAccount, error)
	DomainControllers() ([]string, error)
	AdminGroupMembers() ([]AdminGroupMember, error)
}

// Collector assembles a DomainSnapshot from the resultant policy export
// and the directory.
type Collector struct {
	source rsop.Source
	dir    Directory
	logger *slog.Logger
}

type CollectorOption func(*Collector)

func WithLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = logger
	}
}

func NewCollector(source rsop.Source, dir Directory, opts ...CollectorOption) (*Collector, error) {
	if source == nil {
		return nil, fmt.Errorf("cannot create collector without a policy source")
	}
	if dir == nil {
		return nil, fmt.Errorf("cannot create collector without a directory")
	}
	c := &Collector{
		source: source,
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collect exports the effective machine policy and reads the
// directory-side posture in one pass.
func (c *Collector) Collect(ctx context.Context) (*DomainSnapshot, error) {
	raw, err := c.source.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollection, err)
	}
	doc, err := rsop.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollection, err)
	}

	snap := &DomainSnapshot{CapturedAt: time.Now()}
	applyPolicy(snap, doc)

	if snap.PrivilegedAccounts, err = c.dir.PrivilegedAccounts(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollection, err)
	}
	if snap.DomainControllers, err = c.dir.DomainControllers(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollection, err)
	}
	if snap.AdminGroupMembers, err = c.dir.AdminGroupMembers(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollection, err)
	}

	c.logger.Info("collected domain snapshot",
		"privileged_accounts", len(snap.PrivilegedAccounts),
		"domain_controllers", len(snap.DomainControllers),
		"admin_members", len(snap.AdminGroupMembers),
	)
	return snap, nil
}

// applyPolicy maps account policy and security option values out of the
// export. Absent or malformed values stay at their zero value, which
// the evaluation grades as failing rather than healthy.
func applyPolicy(snap *DomainSnapshot, doc *rsop.Document) {
	if n, ok := doc.AccountNumber("MinimumPasswordAge"); ok {
		snap.MinPasswordAge = n
	}
	if n, ok := doc.AccountNumber("LockoutBadCount"); ok {
		snap.LockoutThreshold = n
	}
	if n, ok := doc.AccountNumber("MinimumPasswordLength"); ok {
		snap.MinPasswordLength = n
	}
	if n, ok := doc.AccountNumber("PasswordHistorySize"); ok {
		snap.PasswordHistorySize = n
	}
	if b, ok := doc.AccountBool("PasswordComplexity"); ok {
		snap.ComplexityEnabled = b
	}
	snap.NullSessionsRestricted = settingFromNumber(doc.RegistryNumber("RestrictNullSessAccess"))
	snap.AnonymousSIDLookup = settingFromNumber(doc.SystemAccessNumber("LSAAnonymousNameLookup"))
}

func settingFromNumber(n int, ok bool) Setting {
	switch {
	case !ok:
		return SettingAbsent
	case n == 0:
		return SettingOff
	default:
		return SettingOn
	}
}
