// Package callable exposes the ledger as named remote procedures. A call
// carries a JSON object and yields an Envelope:
//
//	{"success": true, ...result fields}
//	{"success": false, "message": "...", "code": "...", "blockedUntil": 1700000000000}
//
// Transports (grpcx, httpx) only move envelopes; remote.Client turns them
// back into ledger results and errors.
package callable

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
)

// Envelope is the JSON object returned by every procedure.
type Envelope map[string]any

const (
	fieldSuccess      = "success"
	fieldMessage      = "message"
	fieldCode         = "code"
	fieldBlockedUntil = "blockedUntil"
)

// Success builds a success envelope from the JSON fields of result, which
// must encode as an object (or be nil).
func Success(result any) (Envelope, error) {
	env := Envelope{}
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, fmt.Errorf("result is not an object: %w", err)
		}
		if env == nil {
			env = Envelope{}
		}
	}
	env[fieldSuccess] = true
	return env, nil
}

// Failure builds a failure envelope. The message is safe to show to users.
func Failure(err error) Envelope {
	env := Envelope{
		fieldSuccess: false,
		fieldMessage: common.Message(err),
		fieldCode:    common.Code(err),
	}
	var te *common.ThrottledError
	if errors.As(err, &te) {
		env[fieldBlockedUntil] = te.BlockedUntil.UnixMilli()
	}
	return env
}

func (e Envelope) Success() bool {
	ok, _ := e[fieldSuccess].(bool)
	return ok
}

// Err rebuilds the error of a failure envelope; nil on success.
func (e Envelope) Err() error {
	if e.Success() {
		return nil
	}
	code, _ := e[fieldCode].(string)
	message, _ := e[fieldMessage].(string)

	var blockedUntil time.Time
	switch v := e[fieldBlockedUntil].(type) {
	case float64:
		blockedUntil = time.UnixMilli(int64(v))
	case int64:
		blockedUntil = time.UnixMilli(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			blockedUntil = time.UnixMilli(n)
		}
	}
	return common.FromCode(code, message, blockedUntil)
}

// Decode fills v from the envelope fields.
func (e Envelope) Decode(v any) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Field decodes a single field into v.
func (e Envelope) Field(key string, v any) error {
	raw, ok := e[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
