// Package reputation tracks durable per-identity trust state. The in-memory
// mirror is authoritative for hot-path reads; every mutation is also written
// through to the backing store under a short timeout. A store failure degrades
// durability, never the moderation decision.
package reputation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// maxRollingScores bounds the per-identity score history.
	maxRollingScores = 100

	// maxWarningTimes bounds the per-identity warning timestamp history kept
	// in memory for the trailing-24h auto-ban check.
	maxWarningTimes = 50

	// maxConcurrentPersists bounds in-flight write-through operations.
	maxConcurrentPersists = 16
)

// Ban is one entry in an identity's ban history.
type Ban struct {
	Reason    string     `json:"reason"`
	Source    string     `json:"source"`
	IssuedBy  string     `json:"issuedBy"`
	Duration  int64      `json:"durationSeconds"`
	IssuedAt  time.Time  `json:"issuedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	LiftedAt  *time.Time `json:"liftedAt,omitempty"`
}

// IsActive reports whether the ban is in force at the given time.
func (b *Ban) IsActive(now time.Time) bool {
	return b.LiftedAt == nil && b.ExpiresAt.After(now)
}

// WarningEntry describes one non-safe verdict for the audit log.
type WarningEntry struct {
	Identity  string
	Kind      string
	Message   string
	Content   string
	Score     int
	CreatedAt time.Time
}

// StoredRecord is the durable state loaded when an identity is first seen
// after a restart.
type StoredRecord struct {
	SafetyScore   int
	WarningCount  int
	LastWarningAt *time.Time
	Bans          []Ban
	WarningTimes  []time.Time
}

// Store is the durable backend the ledger writes through to. A nil store is
// valid and leaves the ledger memory-only.
type Store interface {
	// Load returns the stored record for identity, or nil when none exists.
	Load(ctx context.Context, identity string) (*StoredRecord, error)
	// SaveEvaluation folds one evaluation into the identity's row.
	SaveEvaluation(ctx context.Context, identity string, score, warningDelta int, at time.Time) error
	// AppendWarning records one audit entry and stamps the last warning time.
	AppendWarning(ctx context.Context, entry WarningEntry) error
	// AppendBan records one ban issuance.
	AppendBan(ctx context.Context, identity string, ban Ban) error
	// LiftBans marks all active bans for identity as lifted.
	LiftBans(ctx context.Context, identity string, at time.Time) (bool, error)
	// ResetWarnings zeroes the identity's warning count.
	ResetWarnings(ctx context.Context, identity string) error
}

// record is one identity's in-memory state.
type record struct {
	mu sync.Mutex

	rollingScores []int
	warningCount  int
	lastWarningAt time.Time
	warningTimes  []time.Time
	banHistory    []Ban
	lastActivity  time.Time
}

// Ledger is the per-identity trust state mirror. Different identities never
// contend; operations on the same identity serialize on its record mutex.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]*record

	store        Store
	writeTimeout time.Duration
	persistSem   *semaphore.Weighted
	logger       *zap.Logger
}

// NewLedger creates a ledger backed by store. The writeTimeout bounds every
// write-through call; zero selects a 3s default.
func NewLedger(store Store, writeTimeout time.Duration, logger *zap.Logger) *Ledger {
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Second
	}

	return &Ledger{
		records:      make(map[string]*record),
		store:        store,
		writeTimeout: writeTimeout,
		persistSem:   semaphore.NewWeighted(maxConcurrentPersists),
		logger:       logger.Named("reputation"),
	}
}

// RecordEvaluation folds one evaluation into the identity's record: the score
// joins the rolling window and, when warned, the warning count grows by the
// finding count. The durable write happens before returning but its failure
// only logs.
func (l *Ledger) RecordEvaluation(
	ctx context.Context, identity string, score int, findings []string, warned bool, now time.Time,
) {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()

	rec.rollingScores = append(rec.rollingScores, score)
	if len(rec.rollingScores) > maxRollingScores {
		rec.rollingScores = rec.rollingScores[len(rec.rollingScores)-maxRollingScores:]
	}

	warningDelta := 0
	if warned {
		warningDelta = len(findings)
		rec.warningCount += warningDelta
		rec.lastWarningAt = now

		rec.warningTimes = append(rec.warningTimes, now)
		if len(rec.warningTimes) > maxWarningTimes {
			rec.warningTimes = rec.warningTimes[len(rec.warningTimes)-maxWarningTimes:]
		}
	}

	rec.lastActivity = now
	rec.mu.Unlock()

	l.persist(ctx, "record evaluation", func(ctx context.Context) error {
		return l.store.SaveEvaluation(ctx, identity, score, warningDelta, now)
	})
}

// AppendWarning writes one audit entry for a non-safe verdict.
func (l *Ledger) AppendWarning(ctx context.Context, entry WarningEntry) {
	l.persist(ctx, "append warning", func(ctx context.Context) error {
		return l.store.AppendWarning(ctx, entry)
	})
}

// IssueBan records a ban for identity. The ban takes effect immediately via
// the in-memory mirror even if the durable write fails.
func (l *Ledger) IssueBan(ctx context.Context, identity, reason, source, issuedBy string, duration time.Duration, now time.Time) Ban {
	ban := Ban{
		Reason:    reason,
		Source:    source,
		IssuedBy:  issuedBy,
		Duration:  int64(duration.Seconds()),
		IssuedAt:  now,
		ExpiresAt: now.Add(duration),
	}

	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	rec.banHistory = append(rec.banHistory, ban)
	rec.lastActivity = now
	rec.mu.Unlock()

	l.persist(ctx, "issue ban", func(ctx context.Context) error {
		return l.store.AppendBan(ctx, identity, ban)
	})

	l.logger.Warn("Ban issued",
		zap.String("identity", identity),
		zap.String("reason", reason),
		zap.String("source", source),
		zap.Duration("duration", duration))

	return ban
}

// LiftBan clears all active bans for identity. Returns false when the
// identity had no active ban in memory.
func (l *Ledger) LiftBan(ctx context.Context, identity string, now time.Time) bool {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()

	lifted := false

	for i := range rec.banHistory {
		if rec.banHistory[i].IsActive(now) {
			at := now
			rec.banHistory[i].LiftedAt = &at
			lifted = true
		}
	}

	rec.mu.Unlock()

	l.persist(ctx, "lift ban", func(ctx context.Context) error {
		_, err := l.store.LiftBans(ctx, identity, now)
		return err
	})

	return lifted
}

// IsBanned reports whether identity has an active ban entry.
func (l *Ledger) IsBanned(ctx context.Context, identity string, now time.Time) bool {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	for i := range rec.banHistory {
		if rec.banHistory[i].IsActive(now) {
			return true
		}
	}

	return false
}

// ShouldAutoBan reports whether identity has crossed either auto-ban
// threshold: cumulative warnings, or warnings within the trailing 24 hours.
func (l *Ledger) ShouldAutoBan(ctx context.Context, identity string, threshold, dailyLimit int, now time.Time) bool {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if threshold > 0 && rec.warningCount >= threshold {
		return true
	}

	if dailyLimit <= 0 {
		return false
	}

	cutoff := now.Add(-24 * time.Hour)
	recent := 0

	for _, ts := range rec.warningTimes {
		if ts.After(cutoff) {
			recent++
		}
	}

	return recent >= dailyLimit
}

// ResetWarnings zeroes the warning count for identity. This is the only path
// that ever decrements it.
func (l *Ledger) ResetWarnings(ctx context.Context, identity string) {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	rec.warningCount = 0
	rec.warningTimes = nil
	rec.lastWarningAt = time.Time{}
	rec.mu.Unlock()

	l.persist(ctx, "reset warnings", func(ctx context.Context) error {
		return l.store.ResetWarnings(ctx, identity)
	})
}

// WarningCount returns the cumulative warning count for identity.
func (l *Ledger) WarningCount(ctx context.Context, identity string) int {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.warningCount
}

// LastWarningAt returns when identity was last warned, or the zero time if
// it never has been.
func (l *Ledger) LastWarningAt(ctx context.Context, identity string) time.Time {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.lastWarningAt
}

// Report summarizes an identity's trust state.
type Report struct {
	Identity       string    `json:"identity"`
	CurrentScore   int       `json:"currentScore"`
	AverageScore   float64   `json:"averageScore"`
	TotalWarnings  int       `json:"totalWarnings"`
	RecentWarnings int       `json:"recentWarnings"`
	LastWarningAt  time.Time `json:"lastWarningAt"`
	Banned         bool      `json:"banned"`
	BanHistory     []Ban     `json:"banHistory"`
}

// ReportFor builds a report for identity at the given time.
func (l *Ledger) ReportFor(ctx context.Context, identity string, now time.Time) Report {
	rec := l.getOrCreate(ctx, identity)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	report := Report{
		Identity:      identity,
		CurrentScore:  100,
		AverageScore:  100,
		TotalWarnings: rec.warningCount,
		LastWarningAt: rec.lastWarningAt,
		BanHistory:    append([]Ban(nil), rec.banHistory...),
	}

	if len(rec.rollingScores) > 0 {
		report.CurrentScore = rec.rollingScores[len(rec.rollingScores)-1]

		sum := 0
		for _, s := range rec.rollingScores {
			sum += s
		}

		report.AverageScore = float64(sum) / float64(len(rec.rollingScores))
	}

	cutoff := now.Add(-24 * time.Hour)
	for _, ts := range rec.warningTimes {
		if ts.After(cutoff) {
			report.RecentWarnings++
		}
	}

	for i := range rec.banHistory {
		if rec.banHistory[i].IsActive(now) {
			report.Banned = true
			break
		}
	}

	return report
}

// RecordSnapshot is the exportable trust state of one identity.
type RecordSnapshot struct {
	Identity      string      `json:"identity"`
	RollingScores []int       `json:"rollingScores,omitempty"`
	WarningCount  int         `json:"warningCount"`
	LastWarningAt time.Time   `json:"lastWarningAt"`
	WarningTimes  []time.Time `json:"warningTimes,omitempty"`
	BanHistory    []Ban       `json:"banHistory,omitempty"`
}

// Export copies the trust state of every resident identity, sorted by
// identity for stable output.
func (l *Ledger) Export() []RecordSnapshot {
	l.mu.RLock()

	identities := make([]string, 0, len(l.records))
	for identity := range l.records {
		identities = append(identities, identity)
	}
	l.mu.RUnlock()

	sort.Strings(identities)

	snaps := make([]RecordSnapshot, 0, len(identities))

	for _, identity := range identities {
		l.mu.RLock()
		rec, ok := l.records[identity]
		l.mu.RUnlock()

		if !ok {
			continue
		}

		rec.mu.Lock()
		snaps = append(snaps, RecordSnapshot{
			Identity:      identity,
			RollingScores: append([]int(nil), rec.rollingScores...),
			WarningCount:  rec.warningCount,
			LastWarningAt: rec.lastWarningAt,
			WarningTimes:  append([]time.Time(nil), rec.warningTimes...),
			BanHistory:    append([]Ban(nil), rec.banHistory...),
		})
		rec.mu.Unlock()
	}

	return snaps
}

// Import replaces the in-memory mirror with the snapshot records. The mirror
// is authoritative, so the imported state takes effect on the very next
// evaluation; durable rows converge through subsequent write-throughs.
func (l *Ledger) Import(snaps []RecordSnapshot, now time.Time) {
	records := make(map[string]*record, len(snaps))

	for _, snap := range snaps {
		if snap.Identity == "" {
			continue
		}

		rec := &record{
			rollingScores: append([]int(nil), snap.RollingScores...),
			warningCount:  snap.WarningCount,
			lastWarningAt: snap.LastWarningAt,
			warningTimes:  append([]time.Time(nil), snap.WarningTimes...),
			banHistory:    append([]Ban(nil), snap.BanHistory...),
			lastActivity:  now,
		}

		if len(rec.rollingScores) > maxRollingScores {
			rec.rollingScores = rec.rollingScores[len(rec.rollingScores)-maxRollingScores:]
		}

		records[snap.Identity] = rec
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	l.logger.Info("Reputation snapshot imported", zap.Int("identities", len(records)))
}

// Sweep evicts in-memory records idle longer than idleFor. Durable rows are
// untouched; an evicted identity simply rehydrates from the store on next
// sight. Returns the number of evicted records.
func (l *Ledger) Sweep(now time.Time, idleFor time.Duration) int {
	cutoff := now.Add(-idleFor)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0

	for identity, rec := range l.records {
		rec.mu.Lock()
		idle := rec.lastActivity.Before(cutoff)

		// Keep actively banned identities resident so the ban check never
		// depends on a store round-trip.
		banned := false

		for i := range rec.banHistory {
			if rec.banHistory[i].IsActive(now) {
				banned = true
				break
			}
		}
		rec.mu.Unlock()

		if idle && !banned {
			delete(l.records, identity)
			evicted++
		}
	}

	return evicted
}

// TrackedCount returns the number of identities currently resident in memory.
func (l *Ledger) TrackedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}

// getOrCreate returns the record for identity, hydrating from the store on
// first sight. Hydration failures log and start the identity fresh.
func (l *Ledger) getOrCreate(ctx context.Context, identity string) *record {
	l.mu.RLock()
	rec, ok := l.records[identity]
	l.mu.RUnlock()

	if ok {
		return rec
	}

	rec = &record{lastActivity: time.Now()}

	if l.store != nil {
		loadCtx, cancel := context.WithTimeout(ctx, l.writeTimeout)
		defer cancel()

		stored, err := l.store.Load(loadCtx, identity)
		if err != nil {
			l.logger.Warn("Failed to hydrate reputation record",
				zap.String("identity", identity), zap.Error(err))
		} else if stored != nil {
			rec.rollingScores = []int{stored.SafetyScore}
			rec.warningCount = stored.WarningCount
			rec.banHistory = stored.Bans
			rec.warningTimes = stored.WarningTimes

			if stored.LastWarningAt != nil {
				rec.lastWarningAt = *stored.LastWarningAt
			}
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another evaluation may have hydrated the same identity concurrently.
	if existing, ok := l.records[identity]; ok {
		return existing
	}

	l.records[identity] = rec

	return rec
}

// persist runs one write-through operation under the write timeout. Failures
// are logged; the in-memory state already reflects the mutation.
func (l *Ledger) persist(ctx context.Context, op string, fn func(context.Context) error) {
	if l.store == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	if err := l.persistSem.Acquire(persistCtx, 1); err != nil {
		l.logger.Warn("Persist queue saturated", zap.String("op", op), zap.Error(err))
		return
	}
	defer l.persistSem.Release(1)

	if err := fn(persistCtx); err != nil {
		l.logger.Warn("Write-through failed, continuing on memory",
			zap.String("op", op), zap.Error(err))
	}
}
