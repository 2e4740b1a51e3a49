package report

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/store"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// DedupGate suppresses re-delivery of a report whose content is identical
// to the previous emission for the same feed and calendar day. The check
// and update are atomic under the gate's mutex so two concurrently
// triggered cycles cannot both see "not yet sent".
type DedupGate struct {
	store  *store.Store
	logger *logger.Logger
	mu     sync.Mutex
}

// NewDedupGate creates a new dedup gate over the given store
func NewDedupGate(st *store.Store, log *logger.Logger) *DedupGate {
	return &DedupGate{
		store:  st,
		logger: log.WithField("module", "dedup"),
	}
}

// ShouldDeliver decides whether the report may be delivered, updating the
// stored (day, hash) state when it may. A new calendar day always delivers
// regardless of any hash match with a prior day.
func (g *DedupGate) ShouldDeliver(feed string, now time.Time, report *contracts.Report) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	day := now.Format("2006-01-02")
	hash := ContentHash(report)

	storedDay, storedHash, err := g.store.GetDedup(feed)
	if err != nil {
		return false, err
	}

	if storedDay == day && storedHash == hash {
		g.logger.WithFields(map[string]interface{}{
			"feed": feed,
			"day":  day,
		}).Info("Identical report already delivered today, suppressing")
		return false, nil
	}

	if err := g.store.SetDedup(feed, day, hash); err != nil {
		return false, err
	}
	return true, nil
}

// ContentHash computes a stable hash over the full ordered page sequence
func ContentHash(report *contracts.Report) string {
	h := sha256.New()
	for _, page := range report.Pages {
		h.Write([]byte(page))
		h.Write([]byte{0}) // page boundary, keeps ["ab","c"] distinct from ["a","bc"]
	}
	return hex.EncodeToString(h.Sum(nil))
}
