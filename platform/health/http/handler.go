package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const checkTimeout = 2 * time.Second

// Check проверка одной зависимости (postgres, redis)
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Readiness объединяет проверки: готов, если все Ping вернули nil
func Readiness(checks ...Check) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				return false
			}
		}
		return true
	}
}

// Handler health endpoint: 200 {"status":"ok"}, либо 503 {"status":"not ready"},
// если readiness задан и вернул false
func Handler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if readiness != nil && !readiness() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
