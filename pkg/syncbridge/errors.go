package syncbridge

import "github.com/tokmz/fintrack/pkg/errors"

// 2200 段错误码：本地同步
var (
	ErrUnknownEvent   = errors.New(2201, 400, "unknown event", nil)
	ErrInvalidPayload = errors.New(2202, 400, "invalid event payload", nil)
	ErrResync         = errors.New(2203, 502, "resync failed", nil)
)
