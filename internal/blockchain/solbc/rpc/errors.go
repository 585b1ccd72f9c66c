// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRPCNodes возникает, когда список узлов пуст
	ErrNoRPCNodes = errors.New("no RPC nodes available")

	// ErrRateLimit возникает, когда лимитер не дождался разрешения
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.NodeURL == "" {
		return fmt.Sprintf("RPC error [%s]: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}
