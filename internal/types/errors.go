// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Базовые категории ошибок. Конкретные ошибки оборачивают их через %w.
var (
	// ErrNotFound: ожидаемый on-chain аккаунт (mint, fee token account) не существует.
	ErrNotFound = errors.New("account not found")
	// ErrUnsupported: для запрошенной площадки нет резолвера.
	ErrUnsupported = errors.New("unsupported venue")
	// ErrSigningUnavailable: кошелёк не умеет ни подписывать, ни отправлять.
	ErrSigningUnavailable = errors.New("wallet can neither sign nor send transactions")
	// ErrVerificationFailed: удалённые данные не совпали с независимо вычисленными.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrRange: значение не помещается в поле фиксированной ширины.
	ErrRange = errors.New("value out of range")
	// ErrTimeout: политика повторов исчерпана.
	ErrTimeout = errors.New("timeout")
)

// TimeoutError is returned when a retry policy gives up.
type TimeoutError struct {
	Operation string
	Attempts  int
	Elapsed   time.Duration
	Last      error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("%s: timed out after %d attempts (%s): %v", e.Operation, e.Attempts, e.Elapsed, e.Last)
	}
	return fmt.Sprintf("%s: timed out after %d attempts (%s)", e.Operation, e.Attempts, e.Elapsed)
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// VerificationError описывает расхождение между ожидаемым и полученным адресом.
type VerificationError struct {
	What     string
	Expected solana.PublicKey
	Got      solana.PublicKey
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.What, e.Expected, e.Got)
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// IsPermanent reports whether err belongs to a category that must never be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrSigningUnavailable) ||
		errors.Is(err, ErrVerificationFailed) ||
		errors.Is(err, ErrRange)
}
