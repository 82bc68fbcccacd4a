package schema

import (
	"fmt"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

// SchemaError reports a malformed or structurally insufficient schema source.
func SchemaError(message string, cause error) error {
	if cause == nil {
		cause = common.ErrSchema
	} else {
		cause = fmt.Errorf("%w: %w", common.ErrSchema, cause)
	}
	return common.NewAppError(common.CodeSchema, message, cause)
}
