package instrument

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/pkg/logger"
)

// Entry is one recorded call.
type Entry struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// History is the counter and paired call history of one operation.
type History struct {
	Operation string  `json:"operation" yaml:"operation"`
	Calls     int64   `json:"calls" yaml:"calls"`
	Entries   []Entry `json:"entries" yaml:"entries"`
	// Unpaired counts recorded inputs or outputs that had no counterpart and were dropped.
	Unpaired int `json:"unpaired" yaml:"unpaired"`
}

// ReadHistory loads the counter and call history for operation. A missing or unreadable
// counter reads as zero, undecodable entries read as empty strings, and inputs and
// outputs are paired up to the shorter list.
func ReadHistory(ctx context.Context, store cache.Store, operation string) (History, error) {
	history := History{Operation: operation, Entries: []Entry{}}

	raw, ok, err := store.Get(ctx, operation)
	if err != nil {
		return history, fmt.Errorf("read counter %s: %w", operation, err)
	}
	if ok {
		if n, convErr := strconv.ParseInt(decodeText(raw), 10, 64); convErr == nil {
			history.Calls = n
		}
	}

	inputs, err := store.LRange(ctx, InputsKey(operation), 0, -1)
	if err != nil {
		return history, fmt.Errorf("read inputs %s: %w", operation, err)
	}
	outputs, err := store.LRange(ctx, OutputsKey(operation), 0, -1)
	if err != nil {
		return history, fmt.Errorf("read outputs %s: %w", operation, err)
	}

	pairs := len(inputs)
	if len(outputs) < pairs {
		pairs = len(outputs)
	}
	for i := 0; i < pairs; i++ {
		history.Entries = append(history.Entries, Entry{
			Input:  decodeText(inputs[i]),
			Output: decodeText(outputs[i]),
		})
	}

	history.Unpaired = len(inputs) + len(outputs) - 2*pairs
	if history.Unpaired > 0 {
		logger.WithModule("instrument").Warn("call history lists differ in length",
			zap.String("operation", operation),
			zap.Int("inputs", len(inputs)),
			zap.Int("outputs", len(outputs)),
		)
	}
	return history, nil
}

// Replay writes the call count and one line per recorded call of operation to w:
//
//	valuecache.Cache.Store was called 2 times:
//	valuecache.Cache.Store("foo") -> 6b1c...
func Replay(ctx context.Context, w io.Writer, store cache.Store, operation string) error {
	history, err := ReadHistory(ctx, store, operation)
	if err != nil {
		return err
	}
	return WriteText(w, history)
}

// WriteText renders history in the replay text layout.
func WriteText(w io.Writer, history History) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s was called %d times:\n", history.Operation, history.Calls)
	for _, entry := range history.Entries {
		fmt.Fprintf(&b, "%s%s -> %s\n", history.Operation, entry.Input, entry.Output)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func decodeText(raw []byte) string {
	if !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}
