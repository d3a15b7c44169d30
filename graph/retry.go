package graph

import (
	"strings"
	"time"
)

// BackoffStrategy selects how the delay between retries grows.
type BackoffStrategy int

const (
	// FixedBackoff waits BaseDelay between every attempt.
	FixedBackoff BackoffStrategy = iota
	// ExponentialBackoff doubles the delay each attempt.
	ExponentialBackoff
	// LinearBackoff grows the delay by BaseDelay each attempt.
	LinearBackoff
)

// RetryPolicy defines how failed nodes are retried.
type RetryPolicy struct {
	MaxRetries      int
	BackoffStrategy BackoffStrategy
	// RetryableErrors lists substrings; an error is retried when its message
	// contains any of them. An empty list retries nothing.
	RetryableErrors []string
	// BaseDelay defaults to one second.
	BaseDelay time.Duration
}

func (p *RetryPolicy) retryable(err error) bool {
	if p == nil || err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) delay(attempt int) time.Duration {
	if p == nil {
		return 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	switch p.BackoffStrategy {
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}
