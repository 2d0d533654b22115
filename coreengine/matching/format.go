package matching

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Render formats a single argument or pattern the way diagnostics show it.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case Matcher:
		return x.String()
	case *regexp.Regexp:
		return "/" + x.String() + "/"
	case reflect.Type:
		return x.String()
	case missing:
		return x.String()
	case map[string]any:
		return "{" + strings.Join(renderPairs(x), ", ") + "}"
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Render(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// FormatArgs renders the parts of an argument list. A nil args slice means
// "any positional arguments" and renders as *args; a nil kwargs map renders
// as **kwargs. Keywords are sorted by name.
func FormatArgs(args []any, kwargs map[string]any) []string {
	var parts []string
	if args == nil {
		parts = append(parts, "*args")
	} else {
		for _, a := range args {
			parts = append(parts, Render(a))
		}
	}
	if kwargs == nil {
		parts = append(parts, "**kwargs")
	} else {
		keys := make([]string, 0, len(kwargs))
		for k := range kwargs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+": "+Render(kwargs[k]))
		}
	}
	return parts
}

// FormatCall renders name(args...) using FormatArgs.
func FormatCall(name string, args []any, kwargs map[string]any) string {
	return name + "(" + strings.Join(FormatArgs(args, kwargs), ", ") + ")"
}
