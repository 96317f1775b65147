package algorithms

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"timetodo_backend/internal/models"
)

// Unlimited - "без ограничения". При сложении доминирует.
const Unlimited int64 = -1

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

// EffectiveLimits - итоговые лимиты пользователя: тариф + все активные аддоны.
// Не хранится, вычисляется на каждый запрос (или берется из кэша).
type EffectiveLimits struct {
	StorageLimit     int64             `json:"storage_limit"`
	FileCountLimit   int64             `json:"file_count_limit"`
	MaxFileSize      int64             `json:"max_file_size"`
	AllowedFileTypes []models.FileType `json:"allowed_file_types"`
	ProjectsLimit    int64             `json:"projects_limit"`
	UsersLimit       int64             `json:"users_limit"`
}

// Allows - разрешен ли тип файла
func (l EffectiveLimits) Allows(t models.FileType) bool {
	for _, a := range l.AllowedFileTypes {
		if a == t {
			return true
		}
	}
	return false
}

func (l EffectiveLimits) clone() EffectiveLimits {
	out := l
	out.AllowedFileTypes = append([]models.FileType(nil), l.AllowedFileTypes...)
	return out
}

// =========================================================================
// Базовые кортежи тарифов
// =========================================================================

var planLimits = map[models.PlanType]EffectiveLimits{
	models.PlanFree: {
		StorageLimit:     100 * MiB,
		FileCountLimit:   50,
		MaxFileSize:      10 * MiB,
		AllowedFileTypes: []models.FileType{models.FileTypeArchive, models.FileTypeDocument, models.FileTypeImage},
		ProjectsLimit:    3,
		UsersLimit:       5,
	},
	models.PlanStarter: {
		StorageLimit:     1 * GiB,
		FileCountLimit:   500,
		MaxFileSize:      50 * MiB,
		AllowedFileTypes: []models.FileType{models.FileTypeArchive, models.FileTypeDocument, models.FileTypeImage, models.FileTypeOther},
		ProjectsLimit:    10,
		UsersLimit:       10,
	},
	models.PlanTeam: {
		StorageLimit:   10 * GiB,
		FileCountLimit: 5000,
		MaxFileSize:    100 * MiB,
		AllowedFileTypes: []models.FileType{
			models.FileTypeArchive, models.FileTypeAudio, models.FileTypeDocument,
			models.FileTypeImage, models.FileTypeOther, models.FileTypeVideo,
		},
		ProjectsLimit: 50,
		UsersLimit:    25,
	},
	models.PlanBusiness: {
		StorageLimit:   100 * GiB,
		FileCountLimit: Unlimited,
		MaxFileSize:    500 * MiB,
		AllowedFileTypes: []models.FileType{
			models.FileTypeArchive, models.FileTypeAudio, models.FileTypeDocument,
			models.FileTypeImage, models.FileTypeOther, models.FileTypeVideo,
		},
		ProjectsLimit: Unlimited,
		UsersLimit:    100,
	},
}

// PlanLimits возвращает базовый кортеж тарифа
func PlanLimits(plan models.PlanType) (EffectiveLimits, bool) {
	l, ok := planLimits[plan]
	if !ok {
		return EffectiveLimits{}, false
	}
	return l.clone(), true
}

// FreeLimits - лимиты бесплатного тарифа
func FreeLimits() EffectiveLimits {
	l, _ := PlanLimits(models.PlanFree)
	return l
}

// FromSubscription берет кортеж из строки подписки.
// Неактивная или истекшая подписка дает Free.
func FromSubscription(sub *models.UserSubscription, now time.Time) EffectiveLimits {
	if sub == nil || !sub.Effective(now) {
		return FreeLimits()
	}
	types := make([]models.FileType, 0, len(sub.AllowedFileTypes))
	for _, t := range sub.AllowedFileTypes {
		types = append(types, models.FileType(t))
	}
	return EffectiveLimits{
		StorageLimit:     sub.StorageLimit,
		FileCountLimit:   sub.FileCountLimit,
		MaxFileSize:      sub.MaxFileSize,
		AllowedFileTypes: normalizeTypes(types),
		ProjectsLimit:    sub.ProjectsLimit,
		UsersLimit:       sub.UsersLimit,
	}
}

// ApplyPlan переписывает кортеж лимитов в строке подписки
func ApplyPlan(sub *models.UserSubscription, plan models.PlanType) bool {
	l, ok := PlanLimits(plan)
	if !ok {
		return false
	}
	sub.Plan = plan
	sub.StorageLimit = l.StorageLimit
	sub.FileCountLimit = l.FileCountLimit
	sub.MaxFileSize = l.MaxFileSize
	sub.ProjectsLimit = l.ProjectsLimit
	sub.UsersLimit = l.UsersLimit
	sub.AllowedFileTypes = make([]string, 0, len(l.AllowedFileTypes))
	for _, t := range l.AllowedFileTypes {
		sub.AllowedFileTypes = append(sub.AllowedFileTypes, string(t))
	}
	return true
}

// =========================================================================
// Эффекты аддонов
// =========================================================================

// AddOnFeatures - payload колонки addon_packages.features.
// Для combo присутствуют сразу несколько ключей.
type AddOnFeatures struct {
	StorageBytes      int64    `json:"storage_bytes,omitempty"`
	UsersCount        int64    `json:"users_count,omitempty"`
	ProjectsCount     int64    `json:"projects_count,omitempty"`
	Unlimited         bool     `json:"unlimited,omitempty"`
	MaxVideoSizeBytes int64    `json:"max_video_size_bytes,omitempty"`
	AllowedTypes      []string `json:"allowed_types,omitempty"`
}

// Effect - вклад одного аддона в лимиты
type Effect interface {
	ApplyTo(l EffectiveLimits) EffectiveLimits
}

type StorageEffect struct{ Bytes int64 }

func (e StorageEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	l.StorageLimit = addLimit(l.StorageLimit, e.Bytes)
	return l
}

type UsersEffect struct{ Count int64 }

func (e UsersEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	l.UsersLimit = addLimit(l.UsersLimit, e.Count)
	return l
}

// ProjectsEffect: Unlimited выставляет -1, после этого прибавки ничего не меняют
type ProjectsEffect struct {
	Count     int64
	Unlimited bool
}

func (e ProjectsEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	if e.Unlimited {
		l.ProjectsLimit = Unlimited
		return l
	}
	l.ProjectsLimit = addLimit(l.ProjectsLimit, e.Count)
	return l
}

// VideoAudioEffect открывает video/audio и поднимает max_file_size
type VideoAudioEffect struct {
	MaxVideoSize int64
	ExtraTypes   []models.FileType
}

func (e VideoAudioEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	return FileTypesEffect{
		MaxFileSize: e.MaxVideoSize,
		Types:       append([]models.FileType{models.FileTypeVideo, models.FileTypeAudio}, e.ExtraTypes...),
	}.ApplyTo(l)
}

// FileTypesEffect добавляет ровно перечисленные типы (часть combo)
type FileTypesEffect struct {
	MaxFileSize int64
	Types       []models.FileType
}

func (e FileTypesEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	l.AllowedFileTypes = normalizeTypes(append(append([]models.FileType(nil), l.AllowedFileTypes...), e.Types...))
	if l.MaxFileSize != Unlimited && e.MaxFileSize > l.MaxFileSize {
		l.MaxFileSize = e.MaxFileSize
	}
	return l
}

// FeaturesEffect - только флаги, на лимиты не влияет
type FeaturesEffect struct{}

func (FeaturesEffect) ApplyTo(l EffectiveLimits) EffectiveLimits { return l }

// ComboEffect - композиция нескольких эффектов
type ComboEffect []Effect

func (c ComboEffect) ApplyTo(l EffectiveLimits) EffectiveLimits {
	for _, e := range c {
		l = e.ApplyTo(l)
	}
	return l
}

// ParseEffect строит эффект по типу пакета и его features
func ParseEffect(t models.AddOnType, raw []byte) (Effect, error) {
	var f AddOnFeatures
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("invalid features for %s add-on: %w", t, err)
		}
	}

	switch t {
	case models.AddOnStorage:
		return StorageEffect{Bytes: f.StorageBytes}, nil
	case models.AddOnUsers:
		return UsersEffect{Count: f.UsersCount}, nil
	case models.AddOnProjects:
		return ProjectsEffect{Count: f.ProjectsCount, Unlimited: f.Unlimited}, nil
	case models.AddOnVideoAudio:
		return f.videoAudio(), nil
	case models.AddOnFeatures:
		return FeaturesEffect{}, nil
	case models.AddOnCombo:
		var combo ComboEffect
		if f.StorageBytes > 0 {
			combo = append(combo, StorageEffect{Bytes: f.StorageBytes})
		}
		if f.UsersCount > 0 {
			combo = append(combo, UsersEffect{Count: f.UsersCount})
		}
		if f.ProjectsCount > 0 || f.Unlimited {
			combo = append(combo, ProjectsEffect{Count: f.ProjectsCount, Unlimited: f.Unlimited})
		}
		if f.MaxVideoSizeBytes > 0 || len(f.AllowedTypes) > 0 {
			combo = append(combo, FileTypesEffect{MaxFileSize: f.MaxVideoSizeBytes, Types: f.fileTypes()})
		}
		return combo, nil
	}
	return nil, fmt.Errorf("unknown add-on type %q", t)
}

func (f AddOnFeatures) videoAudio() VideoAudioEffect {
	return VideoAudioEffect{MaxVideoSize: f.MaxVideoSizeBytes, ExtraTypes: f.fileTypes()}
}

// fileTypes - валидные allowed_types, неизвестные отбрасываются
func (f AddOnFeatures) fileTypes() []models.FileType {
	var out []models.FileType
	for _, t := range f.AllowedTypes {
		if ft := models.FileType(t); ft.IsValid() {
			out = append(out, ft)
		}
	}
	return out
}

// Fold применяет эффекты к базе. Порядок не важен:
// сложение коммутативно, -1 поглощает, max и объединение множеств тоже.
func Fold(base EffectiveLimits, effects ...Effect) EffectiveLimits {
	out := base.clone()
	for _, e := range effects {
		out = e.ApplyTo(out)
	}
	out.AllowedFileTypes = normalizeTypes(out.AllowedFileTypes)
	return out
}

// AddOnActive - ленивая проверка срока: is_active && (expires_at == nil || expires_at > now)
func AddOnActive(a *models.UserAddOn, now time.Time) bool {
	return a.IsActive && (a.ExpiresAt == nil || a.ExpiresAt.After(now))
}

// CacheTTL = min(maxTTL, время до ближайшего истечения).
// Ноль означает "не кэшировать".
func CacheTTL(maxTTL time.Duration, now time.Time, expiries ...*time.Time) time.Duration {
	ttl := maxTTL
	for _, exp := range expiries {
		if exp == nil {
			continue
		}
		left := exp.Sub(now)
		if left <= 0 {
			return 0
		}
		if left < ttl {
			ttl = left
		}
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

func addLimit(limit, delta int64) int64 {
	if limit == Unlimited {
		return Unlimited
	}
	return limit + delta
}

// normalizeTypes превращает список в отсортированное множество
func normalizeTypes(types []models.FileType) []models.FileType {
	seen := make(map[models.FileType]struct{}, len(types))
	out := make([]models.FileType, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
