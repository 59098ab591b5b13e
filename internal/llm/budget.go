package llm

import (
	"fmt"
	"sync"
	"time"

	"stratwatch/internal/logger"
)

// Budget caps total model requests per day. Exhaustion is an error the
// scorer treats like any other failure: fall back to keyword scoring.
type Budget struct {
	mu      sync.Mutex
	used    int
	max     int // 0 = unlimited
	resetAt time.Time
}

func NewBudget(maxPerDay int) *Budget {
	return &Budget{
		max:     maxPerDay,
		resetAt: time.Now().Add(24 * time.Hour),
	}
}

func (b *Budget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("daily model request budget exhausted (%d/%d)", b.used, b.max)
	}
	b.used++
	return nil
}

func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max <= 0 {
		return -1
	}
	return b.max - b.used
}

func (b *Budget) checkReset() {
	if time.Now().After(b.resetAt) {
		logger.Info("resetting daily model request budget", "used", b.used, "max", b.max)
		b.used = 0
		b.resetAt = time.Now().Add(24 * time.Hour)
	}
}
