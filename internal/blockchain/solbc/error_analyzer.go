// internal/blockchain/solbc/error_analyzer.go
package solbc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// ErrorKind classifies a node error for the submission retry decision.
type ErrorKind string

const (
	ErrorGeneric           ErrorKind = "generic"
	ErrorBlockhashNotFound ErrorKind = "blockhash_not_found"
	ErrorSimulation        ErrorKind = "simulation_failed"
	ErrorInsufficientFunds ErrorKind = "insufficient_funds"
)

// Analysis is the structured view of a failed RPC call.
type Analysis struct {
	Kind    ErrorKind
	Code    int
	Message string
	Logs    []string
	// ProgramError is the custom program error code, when the logs carry one.
	ProgramError *uint32
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

var customErrRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// Analyze extracts the error kind, logs and custom program error code.
func (ea *ErrorAnalyzer) Analyze(err error) Analysis {
	if err == nil {
		return Analysis{Kind: ErrorGeneric, Message: "no error"}
	}

	a := Analysis{Kind: ErrorGeneric, Message: err.Error()}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		a.Code = rpcErr.Code
		a.Message = rpcErr.Message
		if data, ok := rpcErr.Data.(map[string]interface{}); ok {
			if logs, ok := data["logs"].([]interface{}); ok {
				for _, l := range logs {
					if s, ok := l.(string); ok {
						a.Logs = append(a.Logs, s)
					}
				}
			}
		}
	}

	msg := strings.ToLower(a.Message)
	switch {
	case strings.Contains(msg, "blockhash not found"):
		a.Kind = ErrorBlockhashNotFound
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient lamports"):
		a.Kind = ErrorInsufficientFunds
	case strings.Contains(msg, "transaction simulation failed"):
		a.Kind = ErrorSimulation
	}

	for _, l := range append([]string{a.Message}, a.Logs...) {
		if m := customErrRe.FindStringSubmatch(l); m != nil {
			if code, perr := strconv.ParseUint(m[1], 16, 32); perr == nil {
				c := uint32(code)
				a.ProgramError = &c
				break
			}
		}
	}

	if a.Kind == ErrorSimulation {
		ea.logger.Warn("Transaction simulation failed",
			zap.String("message", a.Message),
			zap.Strings("logs", a.Logs))
	}
	return a
}

// IsBlockhashNotFound reports whether err is the node rejecting a stale blockhash.
func (ea *ErrorAnalyzer) IsBlockhashNotFound(err error) bool {
	return ea.Analyze(err).Kind == ErrorBlockhashNotFound
}

func (a Analysis) String() string {
	if a.ProgramError != nil {
		return fmt.Sprintf("%s (code %d): %s [program error 0x%x]", a.Kind, a.Code, a.Message, *a.ProgramError)
	}
	return fmt.Sprintf("%s (code %d): %s", a.Kind, a.Code, a.Message)
}
