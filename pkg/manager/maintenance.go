package manager

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Start launches the background maintenance loop. The loop wakes on every
// tick, and once the configured clean interval has elapsed since the last
// sweep it asks every session's semantic store to evict outdated entries.
// Start is idempotent.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.maintenanceLoop()
	})
}

// maintenanceLoop ticks until Close. No session lock is held across
// sleeps; the stop signal is checked between ticks.
func (m *Manager) maintenanceLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.TickInterval)
	defer ticker.Stop()

	m.logger.Debug("maintenance loop started",
		zap.Duration("tick_interval", m.config.TickInterval),
		zap.Duration("clean_interval", m.config.CleanInterval),
	)

	for {
		select {
		case <-m.stop:
			m.logger.Debug("maintenance loop stopped")
			return
		case <-ticker.C:
			m.RunMaintenance(context.Background())
		}
	}
}

// RunMaintenance performs one maintenance pass: if the clean interval has
// elapsed since the last sweep, every known session's semantic store is
// asked to evict entries that are both stale and unimportant. One
// session's failure is logged and does not stop the others; the sweep
// time is recorded only after all sessions were attempted.
func (m *Manager) RunMaintenance(ctx context.Context) {
	m.mu.Lock()
	if m.now().Sub(m.lastSweep) < m.config.CleanInterval {
		m.mu.Unlock()
		return
	}
	snapshot := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.Unlock()

	for _, s := range snapshot {
		s.mu.Lock()
		removed, err := s.store.EvictOutdated(ctx, m.config.EvictMaxAgeDays, m.config.EvictMinImportance)
		s.mu.Unlock()

		if err != nil {
			m.logger.Error("eviction sweep failed for session",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			continue
		}

		if removed > 0 {
			m.logger.Info("evicted outdated entries",
				zap.String("session_id", s.id),
				zap.Int("removed", removed),
			)
		}
	}

	m.mu.Lock()
	m.lastSweep = m.now()
	m.mu.Unlock()
}
