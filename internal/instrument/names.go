package instrument

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
)

// OperationName derives a stable label such as "valuecache.Cache.Store" from a function or
// method value. Functions of this module are named by their package path relative to the
// module root with a leading "internal/" dropped, so "internal/monitoring/checks" becomes
// "monitoring/checks". Functions of other modules keep their full import path. Pointer
// receiver markup and the method value suffix are stripped.
func OperationName(fn any) string {
	name := funcName(fn)
	if name == "" {
		return ""
	}
	return trimFuncName(name)
}

func funcName(fn any) string {
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return ""
	}
	info := runtime.FuncForPC(value.Pointer())
	if info == nil {
		return ""
	}
	return info.Name()
}

// packagePath returns the import path part of a qualified function name.
func packagePath(name string) string {
	slash := strings.LastIndex(name, "/")
	if dot := strings.Index(name[slash+1:], "."); dot >= 0 {
		return name[:slash+1+dot]
	}
	return name
}

// modulePath is the root import path of this module, derived from this package's own path.
var modulePath = strings.TrimSuffix(packagePath(funcName(packagePath)), "/internal/instrument")

func trimFuncName(name string) string {
	name = strings.TrimSuffix(name, "-fm")
	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")
	if rest, ok := strings.CutPrefix(name, modulePath+"/"); ok {
		return strings.TrimPrefix(rest, "internal/")
	}
	return name
}

// FormatArgs renders call arguments as a parenthesised, comma separated list, quoting
// text values: ("foo"), (42), ("a", 1.5).
func FormatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatArg(arg)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case []byte:
		return "b" + strconv.Quote(string(v))
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// FormatResult renders an operation result the way it is recorded in history. Strings are
// kept verbatim.
func FormatResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
