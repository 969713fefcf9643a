package report

import (
	"fmt"
	"strings"
)

// enumName returns names[i], or a placeholder for out-of-range values.
func enumName(kind string, names []string, i int) string {
	if i >= 0 && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s(%d)", kind, i)
}

// parseEnum finds s in names, ignoring case and treating '-' like '_'.
func parseEnum(kind string, names []string, s string) (int, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for i, name := range names {
		if name == norm {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q, expected one of %s", kind, s, strings.Join(names, ", "))
}
