package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stayride/internal/app/commands"
)

// IdempotentCommand opts a command into replay protection. Commands exposing
// an empty key pass through unguarded, which lets the HTTP layer make the
// Idempotency-Key header optional.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer to the handler's result type
}

// IdempotencyRecord is the stored outcome of a guarded dispatch. Failed
// dispatches store the error string so retries of a failed command replay
// the failure instead of re-executing side effects.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored outcome for a previously seen key and
// records the outcome of first-time dispatches. A nil codec defaults to JSON.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			guarded, ok := cmd.(IdempotentCommand)
			if !ok || guarded.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := guarded.IdempotencyKey()

			if rec, seen, err := store.Get(ctx, key); err != nil {
				return nil, err
			} else if seen {
				return replay(codec, guarded, rec)
			}

			result, err := nextFn(ctx, cmd)
			if saveErr := persist(ctx, store, codec, key, result, err); saveErr != nil {
				if err != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, saveErr
			}
			return result, err
		})
	}
}

func replay(codec ResultCodec, cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	if rec.Error != "" {
		return nil, errors.New(rec.Error)
	}
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func persist(ctx context.Context, store IdempotencyStore, codec ResultCodec, key string, result any, dispatchErr error) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	switch {
	case dispatchErr != nil:
		rec.Error = dispatchErr.Error()
	case result != nil:
		payload, err := codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return store.Save(ctx, rec)
}
