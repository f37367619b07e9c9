package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/datalens/schema"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeOptions trims names, upper-cases the frequency and validates the
// result against the AnalyzeOptions struct tags. Failures are InputErrors.
func NormalizeOptions(opts schema.AnalyzeOptions) (schema.AnalyzeOptions, error) {
	opts.Frequency = schema.Frequency(strings.ToUpper(strings.TrimSpace(string(opts.Frequency))))
	opts.Target = strings.TrimSpace(opts.Target)
	opts.DateCol = strings.TrimSpace(opts.DateCol)

	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return opts, NewInputError(describeFieldError(verrs[0]), nil)
		}
		return opts, NewInputError("invalid options", err)
	}
	return opts, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Field() {
	case "Frequency":
		return fmt.Sprintf("invalid frequency '%v'. must be D, W, M", fe.Value())
	case "Horizon":
		return fmt.Sprintf("horizon must be between 0 and %d (received %v)", MaxHorizon, fe.Value())
	default:
		return fmt.Sprintf("invalid %s: failed '%s' check", fe.Field(), fe.Tag())
	}
}
