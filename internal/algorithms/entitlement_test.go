package algorithms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/models"
)

func TestFreeLimits(t *testing.T) {
	l := FreeLimits()

	assert.Equal(t, int64(104857600), l.StorageLimit)
	assert.Equal(t, int64(50), l.FileCountLimit)
	assert.Equal(t, int64(10485760), l.MaxFileSize)
	assert.Equal(t, int64(3), l.ProjectsLimit)
	assert.Equal(t, int64(5), l.UsersLimit)
	assert.ElementsMatch(t, []models.FileType{models.FileTypeImage, models.FileTypeDocument, models.FileTypeArchive}, l.AllowedFileTypes)
	assert.False(t, l.Allows(models.FileTypeVideo))
}

func TestPlanLimits_ReturnsCopy(t *testing.T) {
	l, ok := PlanLimits(models.PlanFree)
	require.True(t, ok)
	l.AllowedFileTypes[0] = models.FileTypeVideo

	assert.False(t, FreeLimits().Allows(models.FileTypeVideo))

	_, ok = PlanLimits("enterprise")
	assert.False(t, ok)
}

func TestFromSubscription(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	sub := &models.UserSubscription{IsActive: true}
	require.True(t, ApplyPlan(sub, models.PlanTeam))

	l := FromSubscription(sub, now)
	assert.Equal(t, 10*GiB, l.StorageLimit)
	assert.True(t, l.Allows(models.FileTypeVideo))

	t.Run("expired subscription falls back to free", func(t *testing.T) {
		expired := *sub
		expired.ExpiresAt = &past
		assert.Equal(t, FreeLimits(), FromSubscription(&expired, now))
	})

	t.Run("inactive subscription falls back to free", func(t *testing.T) {
		inactive := *sub
		inactive.IsActive = false
		assert.Equal(t, FreeLimits(), FromSubscription(&inactive, now))
	})

	t.Run("nil subscription is free", func(t *testing.T) {
		assert.Equal(t, FreeLimits(), FromSubscription(nil, now))
	})
}

func TestFold_StorageAddsUp(t *testing.T) {
	l := Fold(FreeLimits(), StorageEffect{Bytes: 5 * GiB}, StorageEffect{Bytes: 1 * GiB})
	assert.Equal(t, int64(104857600+5368709120+1073741824), l.StorageLimit)
}

func TestFold_ProjectsUnlimitedDominates(t *testing.T) {
	cases := [][]Effect{
		{ProjectsEffect{Count: 10}, ProjectsEffect{Unlimited: true}},
		{ProjectsEffect{Unlimited: true}, ProjectsEffect{Count: 10}},
		{ProjectsEffect{Count: 10}, ProjectsEffect{Unlimited: true}, ProjectsEffect{Count: 5}},
	}
	for _, effects := range cases {
		assert.Equal(t, Unlimited, Fold(FreeLimits(), effects...).ProjectsLimit)
	}

	assert.Equal(t, int64(13), Fold(FreeLimits(), ProjectsEffect{Count: 10}).ProjectsLimit)
}

func TestFold_VideoAudio(t *testing.T) {
	l := Fold(FreeLimits(), VideoAudioEffect{MaxVideoSize: 500 * MiB})

	assert.True(t, l.Allows(models.FileTypeVideo))
	assert.True(t, l.Allows(models.FileTypeAudio))
	assert.True(t, l.Allows(models.FileTypeImage))
	assert.Equal(t, 500*MiB, l.MaxFileSize)

	// меньший лимит не понижает max_file_size
	small := Fold(l, VideoAudioEffect{MaxVideoSize: 1 * MiB})
	assert.Equal(t, 500*MiB, small.MaxFileSize)
	assert.Len(t, small.AllowedFileTypes, 5)
}

func TestFold_UnlimitedStaysUnderAddition(t *testing.T) {
	base, _ := PlanLimits(models.PlanBusiness)
	l := Fold(base, ProjectsEffect{Count: 10}, UsersEffect{Count: 5})

	assert.Equal(t, Unlimited, l.ProjectsLimit)
	assert.Equal(t, Unlimited, l.FileCountLimit)
	assert.Equal(t, int64(105), l.UsersLimit)
}

func TestFold_IsCommutative(t *testing.T) {
	effects := []Effect{
		StorageEffect{Bytes: 5 * GiB},
		UsersEffect{Count: 5},
		ProjectsEffect{Count: 10},
		ProjectsEffect{Unlimited: true},
		VideoAudioEffect{MaxVideoSize: 1 * GiB},
		VideoAudioEffect{MaxVideoSize: 100 * MiB, ExtraTypes: []models.FileType{models.FileTypeOther}},
		FeaturesEffect{},
		ComboEffect{StorageEffect{Bytes: GiB}, UsersEffect{Count: 15}},
	}

	expected := Fold(FreeLimits(), effects...)
	permute(effects, func(p []Effect) {
		assert.Equal(t, expected, Fold(FreeLimits(), p...))
	})
}

// permute вызывает fn для каждой перестановки (алгоритм Хипа)
func permute(items []Effect, fn func([]Effect)) {
	a := append([]Effect(nil), items...)
	var gen func(k int)
	gen = func(k int) {
		if k == 1 {
			fn(a)
			return
		}
		gen(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				a[i], a[k-1] = a[k-1], a[i]
			} else {
				a[0], a[k-1] = a[k-1], a[0]
			}
			gen(k - 1)
		}
	}
	gen(len(a))
}

func TestParseEffect(t *testing.T) {
	tests := []struct {
		name    string
		typ     models.AddOnType
		raw     string
		want    Effect
		wantErr bool
	}{
		{"storage", models.AddOnStorage, `{"storage_bytes": 5368709120}`, StorageEffect{Bytes: 5368709120}, false},
		{"users", models.AddOnUsers, `{"users_count": 5}`, UsersEffect{Count: 5}, false},
		{"projects unlimited", models.AddOnProjects, `{"unlimited": true}`, ProjectsEffect{Unlimited: true}, false},
		{"video", models.AddOnVideoAudio, `{"max_video_size_bytes": 104857600}`, VideoAudioEffect{MaxVideoSize: 104857600}, false},
		{"features", models.AddOnFeatures, `{"priority_support": true}`, FeaturesEffect{}, false},
		{"combo", models.AddOnCombo, `{"storage_bytes": 10, "users_count": 2}`, ComboEffect{StorageEffect{Bytes: 10}, UsersEffect{Count: 2}}, false},
		{"combo with file types", models.AddOnCombo, `{"allowed_types": ["other", "bogus"]}`, ComboEffect{FileTypesEffect{Types: []models.FileType{models.FileTypeOther}}}, false},
		{"empty payload", models.AddOnStorage, ``, StorageEffect{}, false},
		{"broken json", models.AddOnStorage, `{`, nil, true},
		{"unknown type", "gold", `{}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEffect(tt.typ, []byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFold_ComboTypesDoNotUnlockVideo(t *testing.T) {
	combo, err := ParseEffect(models.AddOnCombo, []byte(`{"allowed_types": ["other"], "storage_bytes": 1024}`))
	require.NoError(t, err)

	got := Fold(FreeLimits(), combo)

	assert.True(t, got.Allows(models.FileTypeOther))
	assert.False(t, got.Allows(models.FileTypeVideo))
	assert.False(t, got.Allows(models.FileTypeAudio))
	assert.Equal(t, 10*MiB, got.MaxFileSize)
	assert.Equal(t, 100*MiB+1024, got.StorageLimit)

	video, err := ParseEffect(models.AddOnVideoAudio, []byte(`{"allowed_types": ["other"]}`))
	require.NoError(t, err)
	got = Fold(FreeLimits(), video)
	assert.True(t, got.Allows(models.FileTypeVideo))
	assert.True(t, got.Allows(models.FileTypeAudio))
	assert.True(t, got.Allows(models.FileTypeOther))
}

func TestAddOnActive(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, AddOnActive(&models.UserAddOn{IsActive: true}, now))
	assert.True(t, AddOnActive(&models.UserAddOn{IsActive: true, ExpiresAt: &future}, now))
	assert.False(t, AddOnActive(&models.UserAddOn{IsActive: true, ExpiresAt: &past}, now))
	assert.False(t, AddOnActive(&models.UserAddOn{IsActive: true, ExpiresAt: &now}, now))
	assert.False(t, AddOnActive(&models.UserAddOn{IsActive: false}, now))
}

func TestCacheTTL(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	soon := now.Add(time.Minute)
	later := now.Add(24 * time.Hour)
	past := now.Add(-time.Second)

	assert.Equal(t, 5*time.Minute, CacheTTL(5*time.Minute, now))
	assert.Equal(t, 5*time.Minute, CacheTTL(5*time.Minute, now, nil, &later))
	assert.Equal(t, time.Minute, CacheTTL(5*time.Minute, now, &later, &soon))
	assert.Equal(t, time.Duration(0), CacheTTL(5*time.Minute, now, &past))
}
