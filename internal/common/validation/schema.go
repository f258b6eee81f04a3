// Package validation checks JSON batch input against a schema before any row
// reaches the scheduler, so malformed extractions fail the run up front
// instead of mid-batch.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"nsa-scheduler/internal/common/errors"
)

// orderBatchSchema validates a JSON batch: an array of extracted closed
// repair orders. Identity fields required by the slot search and create
// calls are mandatory; outcome fields are ignored on input.
const orderBatchSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["dealerId", "roNumber", "customerUuid", "vehicleUuid", "roCloseDate"],
		"properties": {
			"dealerId":          {"type": "string", "minLength": 1},
			"roNumber":          {"type": "string", "minLength": 1},
			"orderUuid":         {"type": "string"},
			"customerFirstName": {"type": "string"},
			"customerLastName":  {"type": "string"},
			"customerKey":       {"type": "string"},
			"customerUuid":      {"type": "string", "minLength": 1},
			"vin":               {"type": "string"},
			"vehicleUuid":       {"type": "string", "minLength": 1},
			"opcodes":           {"type": "string"},
			"roCloseDate":       {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
		}
	}
}`

// ValidateOrderBatch validates raw JSON batch bytes against the order schema.
func ValidateOrderBatch(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(orderBatchSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewDataError("batch", fmt.Sprintf("schema validation error: %v", err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.NewDataError("batch", strings.Join(msgs, "; "))
}
