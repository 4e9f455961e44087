package component

import (
	"fmt"
	"strings"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

// ValidateParams checks the caller-supplied parameters against the
// component's declarations and returns the normalized parameter map with
// declared defaults applied. Validation failures carry one message per
// offending field.
func ValidateParams(d *Descriptor, params map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(params))
	for k, v := range params {
		normalized[k] = v
	}

	var fieldErrs []string
	for _, decl := range d.Params {
		raw, present := normalized[decl.Name]
		if !present || raw == nil {
			if decl.Default != nil {
				normalized[decl.Name] = decl.Default
				continue
			}
			if decl.Required {
				fieldErrs = append(fieldErrs, fmt.Sprintf("%s: missing required parameter", decl.Name))
			}
			continue
		}

		v := FromAny(raw)
		if !v.conformsTo(decl.Type) {
			fieldErrs = append(fieldErrs,
				fmt.Sprintf("%s: expected %s, got %s", decl.Name, decl.Type, v.Kind()))
		}
	}

	if len(fieldErrs) > 0 {
		err := errors.Validation(strings.Join(fieldErrs, "; "))
		err.WithField("component_id", d.ID)
		return nil, err
	}

	return normalized, nil
}
