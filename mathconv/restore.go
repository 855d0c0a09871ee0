package mathconv

import (
	"fmt"
	"regexp"
	"strings"
)

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// OnWarning, if set, receives a message instead of Restore silently
	// dropping a delimiter-balance warning (spec §4.6 step "Validate...
	// otherwise emit a warning").
	OnWarning func(string)
}

var (
	exactPlaceholderRe = func(id int) *regexp.Regexp {
		return regexp.MustCompile(regexp.QuoteMeta(fmt.Sprintf("%%MATH_PLACEHOLDER_%d%%", id)))
	}
	unformattedPlaceholderRe = func(id int) *regexp.Regexp {
		return regexp.MustCompile(regexp.QuoteMeta(fmt.Sprintf("MATH_PLACEHOLDER_%d", id)))
	}
)

// Restore substitutes every placeholder in markdown with its converted,
// delimiter-wrapped math content (spec §4.6, Restorer phase). Idempotent on
// input with no placeholders.
func Restore(markdown string, placeholders map[int]ExtractedMath, opts RestoreOptions) (string, error) {
	out := markdown
	cache := make(map[int]string, len(placeholders))

	for id, math := range placeholders {
		rendered, ok := cache[id]
		if !ok {
			converted, err := Convert(math.Format, math.Content, math.IsDisplay)
			if err != nil {
				return "", fmt.Errorf("mathconv: restore placeholder %d: %w", id, err)
			}
			rendered = wrapDelimiters(converted, math.IsDisplay)
			cache[id] = rendered
		}

		if exactPlaceholderRe(id).MatchString(out) {
			out = exactPlaceholderRe(id).ReplaceAllLiteralString(out, rendered)
			continue
		}
		if unformattedPlaceholderRe(id).MatchString(out) {
			out = unformattedPlaceholderRe(id).ReplaceAllLiteralString(out, rendered)
		}
	}

	validateDelimiterBalance(out, opts)
	return out, nil
}

func wrapDelimiters(content string, isDisplay bool) string {
	if isDisplay {
		return "\n\n$$" + content + "$$\n\n"
	}
	return "$" + content + "$"
}

// validateDelimiterBalance checks that every math delimiter is balanced,
// emitting a warning (never an error — degraded output still ships per
// spec §4.6) otherwise.
func validateDelimiterBalance(s string, opts RestoreOptions) {
	if strings.Count(s, "$$")%2 != 0 {
		warn(opts, "mathconv: unbalanced $$ delimiters in restored output")
		return
	}
	withoutDisplay := strings.ReplaceAll(s, "$$", "")
	if strings.Count(withoutDisplay, "$")%2 != 0 {
		warn(opts, "mathconv: unbalanced $ delimiters in restored output")
	}
}

func warn(opts RestoreOptions, msg string) {
	if opts.OnWarning != nil {
		opts.OnWarning(msg)
	}
}
