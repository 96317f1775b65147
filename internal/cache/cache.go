package cache

import (
	"context"
	"strconv"
	"time"

	"timetodo_backend/internal/algorithms"
)

// LimitsCache - кэш вычисленных лимитов пользователя.
// Ошибки кэша не фатальны: сервис логирует их и идет в БД.
//
// Записи адресуются поколением пользователя. Invalidate увеличивает
// поколение, поэтому Set, опоздавший за инвалидацией, пишет под старым
// ключом и уже никем не читается.
type LimitsCache interface {
	// Get возвращает текущее поколение даже при промахе:
	// его нужно передать в Set после чтения из БД.
	Get(ctx context.Context, userID string) (*algorithms.EffectiveLimits, int64, bool, error)
	Set(ctx context.Context, userID string, generation int64, limits algorithms.EffectiveLimits, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

func generationKey(userID string) string {
	return "limits:gen:" + userID
}

func limitsKey(userID string, generation int64) string {
	return "limits:" + userID + ":" + strconv.FormatInt(generation, 10)
}

// NoopCache используется, когда Redis выключен
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(context.Context, string) (*algorithms.EffectiveLimits, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopCache) Set(context.Context, string, int64, algorithms.EffectiveLimits, time.Duration) error {
	return nil
}

func (NoopCache) Invalidate(context.Context, string) error {
	return nil
}
