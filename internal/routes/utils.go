package routes

import (
	"context"
	"log"
	"os"
	"time"
)

// AutoEnder: то, что умеет закрывать просроченные смены.
type AutoEnder interface {
	AutoEndStale(ctx context.Context, maxAge time.Duration) (int, error)
}

func EnsureReportDirs(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// AutoEndShiftsLoop раз в interval закрывает смены старше maxAge, до отмены ctx.
func AutoEndShiftsLoop(ctx context.Context, ender AutoEnder, maxAge, interval time.Duration) {
	log.Println("✅ Auto-end shifts job started")
	if count, err := ender.AutoEndStale(ctx, maxAge); err != nil {
		log.Printf("❌ Startup failed: %v", err)
	} else {
		log.Printf("✅ Startup: ended %d shifts", count)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Auto-end shifts job stopped")
			return
		case <-ticker.C:
			if count, err := ender.AutoEndStale(ctx, maxAge); err != nil {
				log.Printf("❌ AutoEndShifts failed: %v", err)
			} else if count > 0 {
				log.Printf("✅ AutoEndShifts: ended %d expired shifts", count)
			}
		}
	}
}
