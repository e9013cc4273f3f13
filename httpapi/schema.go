package httpapi

import (
	"errors"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var errSchema = errors.New("payload does not conform to schema")

const orderEventSchema = `{
  "type": "object",
  "required": ["order_id", "buyer", "quantity", "amount"],
  "properties": {
    "order_id":    {"type": "string", "minLength": 1},
    "buyer":       {"type": "string", "minLength": 1},
    "chat_id":     {"type": "string"},
    "quantity":    {"type": "integer", "minimum": 1},
    "description": {"type": "string"},
    "amount":      {"type": ["number", "string"]}
  }
}`

const messageEventSchema = `{
  "type": "object",
  "required": ["sender", "text"],
  "properties": {
    "sender":  {"type": "string", "minLength": 1},
    "chat_id": {"type": "string"},
    "text":    {"type": "string"}
  }
}`

var (
	orderEventLoader   = gojsonschema.NewStringLoader(orderEventSchema)
	messageEventLoader = gojsonschema.NewStringLoader(messageEventSchema)
)

func validateSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.Join(errSchema, err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return errors.Join(errSchema, errors.New(strings.Join(details, "; ")))
}
