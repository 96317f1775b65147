package workers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"timetodo_backend/internal/logger"
)

// AddOnSweeper - то, что нужно воркеру от services.AddOnService
type AddOnSweeper interface {
	SweepExpired(ctx context.Context, db *gorm.DB) (int, error)
}

// AddOnWorker периодически снимает is_active с истекших аддонов.
// На лимиты это не влияет: истечение и так проверяется лениво при каждом расчете.
type AddOnWorker struct {
	db       *gorm.DB
	addOns   AddOnSweeper
	interval time.Duration
}

func NewAddOnWorker(db *gorm.DB, addOns AddOnSweeper, interval time.Duration) *AddOnWorker {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &AddOnWorker{db: db, addOns: addOns, interval: interval}
}

// Run блокируется до отмены ctx
func (w *AddOnWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Add-on worker stopped")
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AddOnWorker) sweep(ctx context.Context) {
	db := w.db
	if db != nil {
		db = db.WithContext(ctx)
	}
	n, err := w.addOns.SweepExpired(ctx, db)
	logger.WorkerLog("addon", "sweep_expired", err, "deactivated", n)
}
