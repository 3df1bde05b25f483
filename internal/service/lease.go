// internal/service/lease.go
package service

import (
	"context"
	"time"

	"social-evaluation/internal/common/errors"
	"social-evaluation/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "eval:lease:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease allows one running evaluation per applicant across replicas. When
// Redis cannot be reached it lets the evaluation through and logs a warning.
type Lease struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewLease(client *redis.Client, ttl time.Duration, log logger.Logger) *Lease {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &Lease{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "lease"}),
	}
}

// Acquire takes the applicant's lease. The returned release func is always
// safe to call and only deletes the key while this holder still owns it.
func (l *Lease) Acquire(ctx context.Context, applicantID string) (func(), error) {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop, nil
	}

	key := leaseKeyPrefix + applicantID
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.logger.Warn("lease unavailable, continuing without it", map[string]interface{}{
			"applicantId": applicantID,
			"error":       err.Error(),
		})
		return noop, nil
	}
	if !ok {
		return noop, errors.NewEvaluationInProgressError(applicantID)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("lease release failed", map[string]interface{}{
				"applicantId": applicantID,
				"error":       err.Error(),
			})
		}
	}, nil
}
