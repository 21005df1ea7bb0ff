package admin_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenlabs/warden/internal/admin"
	"github.com/wardenlabs/warden/internal/reputation"
	"github.com/wardenlabs/warden/internal/rules"
	"github.com/wardenlabs/warden/internal/setup/config"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*admin.Service, *rules.Store, *reputation.Ledger) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	ruleStore := rules.NewStore(config.RuleFiles{}, logger)
	ledger := reputation.NewLedger(nil, 0, logger)
	service := admin.NewService("owner-1", []string{"admin-1"}, ruleStore, ledger, logger)

	return service, ruleStore, ledger
}

func TestPermissionChecks(t *testing.T) {
	t.Parallel()
	service, _, _ := setupTest(t)

	assert.True(t, service.IsOwner("owner-1"))
	assert.False(t, service.IsOwner("admin-1"))
	assert.False(t, service.IsOwner(""))

	assert.True(t, service.IsAdmin("owner-1"))
	assert.True(t, service.IsAdmin("admin-1"))
	assert.False(t, service.IsAdmin("rando"))
}

func TestAdminManagementOwnerOnly(t *testing.T) {
	t.Parallel()
	service, _, _ := setupTest(t)

	assert.False(t, service.AddAdmin("admin-1", "new-admin"), "admins cannot mint admins")
	assert.True(t, service.AddAdmin("owner-1", "new-admin"))
	assert.True(t, service.IsAdmin("new-admin"))

	assert.False(t, service.RemoveAdmin("new-admin", "admin-1"), "non-owner cannot remove")
	assert.True(t, service.RemoveAdmin("owner-1", "new-admin"))
	assert.False(t, service.IsAdmin("new-admin"))

	assert.False(t, service.RemoveAdmin("owner-1", "owner-1"), "owner cannot be removed")
}

func TestBanUnban(t *testing.T) {
	t.Parallel()
	service, ruleStore, ledger := setupTest(t)

	ctx := t.Context()

	assert.False(t, service.BanIdentity(ctx, "rando", "mallory", "spam", time.Hour), "unauthorized ban refused")
	assert.False(t, ruleStore.IsBannedIdentity("mallory"))

	assert.True(t, service.BanIdentity(ctx, "admin-1", "mallory", "spam", time.Hour))
	assert.True(t, ruleStore.IsBannedIdentity("mallory"))
	assert.True(t, ledger.IsBanned(ctx, "mallory", time.Now().UTC()))

	assert.False(t, service.UnbanIdentity(ctx, "rando", "mallory"))
	assert.True(t, service.UnbanIdentity(ctx, "admin-1", "mallory"))
	assert.False(t, ruleStore.IsBannedIdentity("mallory"))
	assert.False(t, ledger.IsBanned(ctx, "mallory", time.Now().UTC()))
}

func TestPermanentBan(t *testing.T) {
	t.Parallel()
	service, _, ledger := setupTest(t)

	ctx := t.Context()

	require.True(t, service.BanIdentity(ctx, "owner-1", "mallory", "spam", 0))

	// Far future, still banned.
	assert.True(t, ledger.IsBanned(ctx, "mallory", time.Now().UTC().AddDate(50, 0, 0)))
}

func TestWordManagement(t *testing.T) {
	t.Parallel()
	service, ruleStore, _ := setupTest(t)

	assert.False(t, service.AddBannedWord("rando", "zorblax"))
	assert.True(t, service.AddBannedWord("admin-1", "zorblax"))
	assert.False(t, service.AddBannedWord("admin-1", "zorblax"), "duplicate add reports false")
	assert.NotEmpty(t, ruleStore.FindBannedWords("zorblax"))

	assert.False(t, service.RemoveBannedWord("rando", "zorblax"))
	assert.True(t, service.RemoveBannedWord("admin-1", "zorblax"))
	assert.Empty(t, ruleStore.FindBannedWords("zorblax"))
}

func TestResetWarnings(t *testing.T) {
	t.Parallel()
	service, _, ledger := setupTest(t)

	ctx := t.Context()
	now := time.Now().UTC()

	ledger.RecordEvaluation(ctx, "alice", 50, []string{"too_short"}, true, now)
	require.Equal(t, 1, ledger.WarningCount(ctx, "alice"))

	assert.False(t, service.ResetWarnings(ctx, "rando", "alice"))
	require.Equal(t, 1, ledger.WarningCount(ctx, "alice"))

	assert.True(t, service.ResetWarnings(ctx, "admin-1", "alice"))
	assert.Zero(t, ledger.WarningCount(ctx, "alice"))
}

func TestExportImportPermissions(t *testing.T) {
	t.Parallel()
	service, ruleStore, _ := setupTest(t)

	_, ok := service.ExportSnapshot("rando")
	assert.False(t, ok)

	snap, ok := service.ExportSnapshot("admin-1")
	require.True(t, ok)
	assert.NotEmpty(t, snap.Rules.BannedWords)

	assert.False(t, service.ImportSnapshot("admin-1", snap), "import is owner only")
	assert.True(t, service.ImportSnapshot("owner-1", snap))

	words, _, _, _ := ruleStore.Counts()
	assert.Len(t, snap.Rules.BannedWords, words)
}

func TestSnapshotCarriesReputation(t *testing.T) {
	t.Parallel()
	service, _, ledger := setupTest(t)

	ctx := t.Context()
	now := time.Now().UTC()

	ledger.RecordEvaluation(ctx, "alice", 55, []string{"too_short"}, true, now)
	ledger.IssueBan(ctx, "mallory", "spam", "manual", "admin-1", time.Hour, now)

	snap, ok := service.ExportSnapshot("admin-1")
	require.True(t, ok)
	require.Len(t, snap.Reputation, 2)

	// Wipe the trust state, then restore it from the snapshot.
	ledger.Import(nil, now)
	assert.Zero(t, ledger.WarningCount(ctx, "alice"))
	assert.False(t, ledger.IsBanned(ctx, "mallory", now))

	require.True(t, service.ImportSnapshot("owner-1", snap))
	assert.Equal(t, 1, ledger.WarningCount(ctx, "alice"))
	assert.True(t, ledger.IsBanned(ctx, "mallory", now))
}
