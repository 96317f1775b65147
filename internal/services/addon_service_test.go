package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/models"
	"timetodo_backend/pkg/apperrors"
)

func TestPurchase_CreatesAddOnAndPendingTransaction(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)

	addOn, err := env.addOns.Purchase(context.Background(), nil, "u1", pkg.ID)

	require.NoError(t, err)
	require.NotNil(t, addOn.ExpiresAt)
	assert.Equal(t, env.now.AddDate(0, 0, 30), *addOn.ExpiresAt)
	assert.True(t, addOn.IsActive)
	assert.JSONEq(t, `{"purchased_at":"2025-03-12T15:00:00Z","usage_count":0}`, string(addOn.UsageData))

	require.Len(t, env.db.txs, 1)
	assert.Equal(t, models.OperationAddOn, env.db.txs[0].OperationType)
	assert.Equal(t, models.TransactionPending, env.db.txs[0].Status)
	assert.Equal(t, addOn.ID, env.db.txs[0].ReferenceID)
	assert.Contains(t, env.cache.invalidated, "u1")
}

func TestPurchase_DuplicateActiveIsConflict(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	ctx := context.Background()

	_, err := env.addOns.Purchase(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)

	_, err = env.addOns.Purchase(ctx, nil, "u1", pkg.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestPurchase_ExpiredButFlaggedDoesNotBlock(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	past := env.now.Add(-time.Hour)
	env.own("u1", pkg, &past)

	_, err := env.addOns.Purchase(context.Background(), nil, "u1", pkg.ID)

	assert.NoError(t, err)
}

func TestPurchase_InactiveOrMissingPackageIsNotFound(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	retired := env.db.addPackage(models.AddOnPackage{Name: "retired", Type: models.AddOnStorage, IsActive: false})

	_, err := env.addOns.Purchase(context.Background(), nil, "u1", retired.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = env.addOns.Purchase(context.Background(), nil, "u1", "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRenew_ExtendsFromLaterOfNowAndExpiry(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	ctx := context.Background()

	bought, err := env.addOns.Purchase(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)

	renewed, err := env.addOns.Renew(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, bought.ExpiresAt.AddDate(0, 0, 30), *renewed.ExpiresAt)

	// после истечения продление считается от now
	env.now = env.now.AddDate(0, 0, 90)
	renewed, err = env.addOns.Renew(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, env.now.AddDate(0, 0, 30), *renewed.ExpiresAt)
}

func TestLifecycle_NotOwnedIsNotFound(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	ctx := context.Background()

	_, err := env.addOns.Activate(ctx, nil, "u1", pkg.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = env.addOns.Deactivate(ctx, nil, "u1", pkg.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = env.addOns.Renew(ctx, nil, "u1", pkg.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = env.addOns.PackageUsage(ctx, nil, "u1", pkg.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestPackageUsage(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	ctx := context.Background()

	_, err := env.addOns.Purchase(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)

	usage, err := env.addOns.PackageUsage(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)
	assert.True(t, usage.IsActive)
	assert.Equal(t, float64(0), usage.UsageData["usage_count"])
}

func TestSeedDefaultPackages_IsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.addOns.SeedDefaultPackages(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, created)

	created, err = env.addOns.SeedDefaultPackages(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, created)

	video := models.AddOnVideoAudio
	packages, err := env.addOns.ListPackages(ctx, nil, &video)
	require.NoError(t, err)
	require.Len(t, packages, 3)
	assert.Equal(t, "Video/Audio 100MB", packages[0].Name)

	effect, err := algorithms.ParseEffect(packages[2].Type, packages[2].Features)
	require.NoError(t, err)
	limits := algorithms.Fold(algorithms.FreeLimits(), effect)
	assert.Equal(t, algorithms.GiB, limits.MaxFileSize)
	assert.True(t, limits.Allows(models.FileTypeAudio))
}

func TestSweepExpired_InvalidatesAffectedUsers(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	pkg := env.storagePackage(algorithms.GiB)
	past := env.now.Add(-time.Minute)
	env.own("u1", pkg, &past)
	env.own("u2", pkg, nil)

	n, err := env.addOns.SweepExpired(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"u1"}, env.cache.invalidated)
	assert.True(t, env.db.addOns[1].IsActive)
}

func TestListPackages_UnknownTypeIsValidation(t *testing.T) {
	env := newTestEnv()
	bad := models.AddOnType("gold")

	_, err := env.addOns.ListPackages(context.Background(), nil, &bad)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
