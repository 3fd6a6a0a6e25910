// readiness.go: проверка готовности backend прямым запросом,
// используется при отключённом мониторинге зависимостей.
package service

import (
	"context"
	"time"
)

// Pinger: проверка доступности backend. Реализуется *paperless.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendReadinessChecker: проверка доступности backend через Ping.
type BackendReadinessChecker struct {
	pinger  Pinger
	timeout time.Duration
}

// NewBackendReadinessChecker создаёт checker с таймаутом одной проверки.
func NewBackendReadinessChecker(pinger Pinger, timeout time.Duration) *BackendReadinessChecker {
	return &BackendReadinessChecker{pinger: pinger, timeout: timeout}
}

// CheckReady выполняет Ping backend.
func (c *BackendReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		return "fail", err.Error()
	}
	return "ok", ""
}
