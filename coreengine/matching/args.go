package matching

// AllMatchArgs applies a positional pattern list to actual arguments.
//
// A nil expected list accepts anything. Otherwise every actual argument must
// be matched by the pattern at its position, and pattern positions beyond the
// actual arguments are matched against Missing.
func AllMatchArgs(expected, actual []any) bool {
	if expected == nil {
		return true
	}
	if len(actual) > len(expected) {
		return false
	}
	for i, pattern := range expected {
		value := Missing
		if i < len(actual) {
			value = actual[i]
		}
		if !Match(pattern, value) {
			return false
		}
	}
	return true
}

// AllMatchKwargs applies an exact keyword pattern map to actual keywords.
//
// A nil expected map accepts anything. Otherwise the key sets must be equal
// and each value must match its pattern. A nil actual map is treated as
// having no keywords.
func AllMatchKwargs(expected, actual map[string]any) bool {
	if expected == nil {
		return true
	}
	if len(expected) != len(actual) {
		return false
	}
	for key, pattern := range expected {
		value, ok := actual[key]
		if !ok || !Match(pattern, value) {
			return false
		}
	}
	return true
}
