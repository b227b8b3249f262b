package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/rabbitmq/amqp091-go"
)

// IsRetryableError determines if a publish error is worth retrying.
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// JSON decode errors - 不可重试（数据格式错误）
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	// Broker errors
	if errors.Is(err, amqp091.ErrClosed) {
		return true, "broker_closed"
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover, "broker_error"
	}

	// Network errors - 可重试
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if strings.Contains(err.Error(), "circuit breaker is open") {
		return true, "circuit_open"
	}

	// 默认：未知错误，保守处理 - 重试直到次数耗尽
	return true, "unknown_error"
}
