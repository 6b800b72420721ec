package manager

import (
	"context"
	"time"
)

// acquire takes the single evaluation slot, waiting up to maxWait.
// Returns a release func to be deferred.
func (m *Manager) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case m.slot <- struct{}{}:
		return func() { <-m.slot }, nil
	default:
	}
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.slot <- struct{}{}:
		return func() { <-m.slot }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{wait: m.maxWait.String()}
	}
}
