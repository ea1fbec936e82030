package ingest

import (
	"fmt"
	"path"
	"strings"

	dserrors "github.com/docstage/docstage/internal/errors"
)

// Rules is the validation predicate configuration: an extension
// allow-list and a payload size ceiling. Both come from the remote
// store's session config and do not change mid-session.
type Rules struct {
	allowed   map[string]struct{}
	sizeLimit int64
}

// NewRules builds validation rules. Extensions are matched
// case-insensitively and without a leading dot.
func NewRules(extensions []string, sizeLimitBytes int64) Rules {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return Rules{allowed: allowed, sizeLimit: sizeLimitBytes}
}

// extension returns the lower-cased extension of name without the dot,
// or "" when name has none.
func extension(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}

	return strings.ToLower(ext[1:])
}

// Validate runs both checks against a candidate's name and size and
// returns one diagnostic per failed check. Both checks always run, so a
// single candidate can fail for type and size at once. An empty slice
// means the candidate is accepted.
func (r Rules) Validate(name string, size int64) []error {
	var diags []error

	ext := extension(name)
	if _, ok := r.allowed[ext]; !ok {
		diags = append(diags, fmt.Errorf("%w: %q (.%s)", dserrors.ErrTypeNotAllowed, name, ext))
	}

	if size > r.sizeLimit {
		diags = append(diags, fmt.Errorf("%w: %q is %d bytes, limit is %d", dserrors.ErrSizeExceeded, name, size, r.sizeLimit))
	}

	return diags
}
