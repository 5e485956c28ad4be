package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/charlesng35/callcache/internal/valuecache"
	appErrors "github.com/charlesng35/callcache/pkg/errors"
	appValidator "github.com/charlesng35/callcache/pkg/validator"
)

// StoreResult is the output of the store command.
type StoreResult struct {
	Key  string `json:"key" yaml:"key"`
	Type string `json:"type" yaml:"type"`
}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "store <value>",
		Short: "Store a value under a new key and print the key",
		Long: `Store a value under a freshly generated key. The call is counted and its
input and output are recorded for replay.

Examples:
  callcache store hello
  callcache store 42 --type int
  callcache store 3.25 --type float --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind = strings.ToLower(strings.TrimSpace(kind))
			if !appValidator.IsValueType(kind) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid type %q: must be one of %v", kind, appValidator.ValueTypes))
			}
			data, err := valuecache.Parse(args[0], kind)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse value", err)
			}

			return rootOpts.withRuntime(cmd.Context(), func(ctx context.Context, stack *runtimeStack) error {
				key, err := stack.Values.Store(ctx, data)
				if err != nil {
					return err
				}
				if kind == "" {
					kind = "string"
				}
				return rootOpts.formatter(cmd).Print(StoreResult{Key: key, Type: kind}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, key)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "string", "value type (string|bytes|int|float)")
	return cmd
}

// GetResult is the output of the get command.
type GetResult struct {
	Key   string `json:"key" yaml:"key"`
	Found bool   `json:"found" yaml:"found"`
	Value any    `json:"value" yaml:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a stored value",
		Long: `Read a value back by key.

--as raw prints the stored bytes, --as str requires valid UTF-8 text and
--as int parses a decimal integer (missing or non-numeric values read as 0).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as = strings.ToLower(strings.TrimSpace(as))
			switch as {
			case "raw", "str", "int":
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid --as %q: must be one of raw, str, int", as))
			}
			key := args[0]

			return rootOpts.withRuntime(cmd.Context(), func(ctx context.Context, stack *runtimeStack) error {
				result, err := readValue(ctx, stack.Values, key, as)
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Print(result, func(w io.Writer) error {
					if raw, ok := result.Value.([]byte); ok {
						if _, err := w.Write(raw); err != nil {
							return err
						}
						_, err := fmt.Fprintln(w)
						return err
					}
					_, err := fmt.Fprintln(w, result.Value)
					return err
				})
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "raw", "decode as raw|str|int")
	return cmd
}

func readValue(ctx context.Context, values *valuecache.Cache, key, as string) (GetResult, error) {
	result := GetResult{Key: key}
	switch as {
	case "str":
		s, err := values.GetStr(ctx, key)
		if err != nil {
			return result, err
		}
		result.Found, result.Value = true, s
	case "int":
		n, err := values.GetInt(ctx, key)
		if err != nil {
			return result, err
		}
		result.Found, result.Value = true, n
	default:
		raw, ok, err := values.Get(ctx, key)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, appErrors.ErrValueNotFound.WithMessage(fmt.Sprintf("no value stored under key %q", key))
		}
		result.Found = true
		// Text values render as strings in structured output; anything else stays bytes.
		if utf8.Valid(raw) {
			result.Value = string(raw)
		} else {
			result.Value = raw
		}
	}
	return result, nil
}

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Remove every key from the store, counters and history included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd.Context(), func(ctx context.Context, stack *runtimeStack) error {
				if err := stack.Values.Flush(ctx); err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Print(map[string]any{"flushed": true, "backend": stack.Backend}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "flushed %s store\n", stack.Backend)
					return err
				})
			})
		},
	}
}
