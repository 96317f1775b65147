package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"timetodo_backend/internal/algorithms"
	"timetodo_backend/internal/models"
	"timetodo_backend/internal/repositories"
	"timetodo_backend/pkg/apperrors"
)

func TestCheckUpload_Order(t *testing.T) {
	limits := algorithms.FreeLimits()

	tests := []struct {
		name   string
		usage  repositories.LiveUsage
		size   int64
		ftype  models.FileType
		reason apperrors.LimitReason
	}{
		{"type wins over size", repositories.LiveUsage{}, 500 * algorithms.MiB, models.FileTypeVideo, apperrors.ReasonTypeNotAllowed},
		{"size before storage", repositories.LiveUsage{StorageBytes: 100 * algorithms.MiB}, 11 * algorithms.MiB, models.FileTypeImage, apperrors.ReasonSizeExceeded},
		{"storage before count", repositories.LiveUsage{StorageBytes: 95 * algorithms.MiB, FileCount: 50}, 6 * algorithms.MiB, models.FileTypeDocument, apperrors.ReasonStorageExceeded},
		{"count", repositories.LiveUsage{FileCount: 50}, 1, models.FileTypeArchive, apperrors.ReasonCountExceeded},
		{"allowed at exact storage limit", repositories.LiveUsage{StorageBytes: 90 * algorithms.MiB, FileCount: 49}, 10 * algorithms.MiB, models.FileTypeDocument, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := checkUpload(limits, tt.usage, tt.size, tt.ftype)
			assert.Equal(t, tt.reason == "", d.Allowed)
			assert.Equal(t, string(tt.reason), d.Reason)
		})
	}
}

func TestCheckUpload_UnlimitedSkipsChecks(t *testing.T) {
	limits, _ := algorithms.PlanLimits(models.PlanBusiness)
	limits.MaxFileSize = algorithms.Unlimited
	limits.StorageLimit = algorithms.Unlimited

	d := checkUpload(limits, repositories.LiveUsage{StorageBytes: 1 << 50, FileCount: 1 << 20}, 1<<40, models.FileTypeVideo)

	assert.True(t, d.Allowed)
}

func TestCanUpload_TypeNotAllowedEvenWithCapacity(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")

	d, err := env.usage.CanUpload(context.Background(), nil, "u1", 1, models.FileTypeVideo)

	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, string(apperrors.ReasonTypeNotAllowed), d.Reason)
	assert.Equal(t, "file type not allowed in current plan", d.Message)
}

func TestCanUpload_InvalidInputIsValidation(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")

	_, err := env.usage.CanUpload(context.Background(), nil, "u1", -1, models.FileTypeImage)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = env.usage.CanUpload(context.Background(), nil, "u1", 1, models.FileType("exe"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestCanUploadThenRecord_NeverFalselyDenies(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	ctx := context.Background()
	size := 10 * algorithms.MiB

	// 10 x 10 MiB = ровно лимит Free
	for i := 0; i < 10; i++ {
		d, err := env.usage.CanUpload(ctx, nil, "u1", size, models.FileTypeDocument)
		require.NoError(t, err)
		require.True(t, d.Allowed, "upload %d denied: %s", i, d.Reason)

		env.db.addFile("u1", size)
		require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", size, models.FileTypeDocument))
	}

	d, err := env.usage.CanUpload(ctx, nil, "u1", 1, models.FileTypeDocument)
	require.NoError(t, err)
	assert.Equal(t, string(apperrors.ReasonStorageExceeded), d.Reason)
}

func TestReserveUpload_FiftyThenSixtyMiB(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	ctx := context.Background()

	// VideoAudio 1GB поднимает max_file_size, хранилище остается 100 MiB
	va := env.db.addPackage(models.AddOnPackage{
		Name: "Video/Audio 1GB", Type: models.AddOnVideoAudio, IsActive: true,
		Features: featuresJSON(algorithms.AddOnFeatures{MaxVideoSizeBytes: algorithms.GiB}),
	})
	env.own("u1", va, nil)

	insert := func(size int64) InsertFunc {
		return func(tx *gorm.DB) error {
			env.db.addFile("u1", size)
			return nil
		}
	}

	d, err := env.usage.ReserveUpload(ctx, nil, "u1", 50*algorithms.MiB, models.FileTypeDocument, insert(50*algorithms.MiB))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = env.usage.ReserveUpload(ctx, nil, "u1", 60*algorithms.MiB, models.FileTypeDocument, insert(60*algorithms.MiB))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, string(apperrors.ReasonStorageExceeded), d.Reason)
	assert.Equal(t, "insufficient storage", d.Message)
	assert.Len(t, env.db.liveFiles("u1"), 1, "denied reservation must not insert")
}

func TestAdvisoryCheck_ConcurrentChecksBothPass(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	env.db.addFile("u1", 95*algorithms.MiB)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			d, err := env.usage.CanUpload(ctx, nil, "u1", 5*algorithms.MiB, models.FileTypeDocument)
			assert.NoError(t, err)
			results[i] = d.Allowed
		}(i)
	}
	close(start)
	wg.Wait()

	// обе проверки видят 95 MiB и обе проходят: рекомендательный путь гонку не закрывает
	assert.Equal(t, []bool{true, true}, results)

	env.db.addFile("u1", 5*algorithms.MiB)
	env.db.addFile("u1", 5*algorithms.MiB)
	usage, err := env.usage.CurrentUsage(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Greater(t, usage.StorageBytes, 100*algorithms.MiB)
}

func TestReserveUpload_ConcurrentReservationsNeverOvershoot(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	ctx := context.Background()
	size := 10 * algorithms.MiB

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := env.usage.ReserveUpload(ctx, nil, "u1", size, models.FileTypeDocument, func(tx *gorm.DB) error {
				env.db.addFile("u1", size)
				return nil
			})
			assert.NoError(t, err)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
	usage, err := env.usage.CurrentUsage(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100*algorithms.MiB, usage.StorageBytes)
	assert.Equal(t, 25, env.db.lockCalls)
}

func TestStorageAddOn_DeactivateRevertsLimit(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	ctx := context.Background()
	pkg := env.storagePackage(5 * algorithms.GiB)

	_, err := env.addOns.Purchase(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)

	limits, err := env.entitlements.Resolve(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(104857600+5368709120), limits.StorageLimit)

	_, err = env.addOns.Deactivate(ctx, nil, "u1", pkg.ID)
	require.NoError(t, err)

	limits, err = env.entitlements.Resolve(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(104857600), limits.StorageLimit)
}

func TestRecordUsage_UpsertsDailyRow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", 100, models.FileTypeVideo))
	require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", 50, models.FileTypeAudio))
	require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", 25, models.FileTypeImage))

	require.Len(t, env.db.usage, 1)
	row := env.db.usage["u1|2025-03-12"]
	require.NotNil(t, row)
	assert.Equal(t, int64(175), row.StorageUsed)
	assert.Equal(t, int64(3), row.FilesCount)
	assert.Equal(t, int64(1), row.VideoUploads)
	assert.Equal(t, int64(1), row.AudioUploads)
}

func TestUsageReport(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", 300, models.FileTypeDocument))
	env.now = env.now.Add(-48 * time.Hour)
	require.NoError(t, env.usage.RecordUsage(ctx, nil, "u1", 100, models.FileTypeVideo))
	env.now = testNow

	report, err := env.usage.UsageReport(ctx, nil, "u1", 7)

	require.NoError(t, err)
	assert.Equal(t, 7, report.PeriodDays)
	assert.Equal(t, int64(400), report.TotalStorageUsed)
	assert.Equal(t, int64(2), report.TotalFilesUploaded)
	assert.Equal(t, int64(200), report.DailyAverage.Storage)
	assert.Equal(t, int64(1), report.DailyAverage.Files)
	assert.Equal(t, int64(0), report.DailyAverage.Video)
	require.Len(t, report.DailyBreakdown, 2)
	assert.Equal(t, "2025-03-12", report.DailyBreakdown[0].Date)
	assert.Equal(t, "2025-03-10", report.DailyBreakdown[1].Date)
}

func TestUsageReport_EmptyAndBounds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	report, err := env.usage.UsageReport(ctx, nil, "u1", 30)
	require.NoError(t, err)
	assert.Zero(t, report.TotalStorageUsed)
	assert.Empty(t, report.DailyBreakdown)

	_, err = env.usage.UsageReport(ctx, nil, "u1", 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	_, err = env.usage.UsageReport(ctx, nil, "u1", 366)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}
