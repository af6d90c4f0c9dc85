package queue

import "fmt"

func JobQueueKey() string {
	return "ni:jobs"
}

func WorkerKey(workerID string) string {
	return fmt.Sprintf("ni:workers:%s", workerID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ni:ratelimit:%s", keyPrefix)
}
