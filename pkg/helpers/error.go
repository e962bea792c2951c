package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/moogar0880/problems"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNoDocumentFound is returned when no document is found in the object store
	ErrNoDocumentFound = NewError("NO_DOCUMENT_FOUND")

	// ErrMultipleDocumentsFound is returned when a key resolves to more than one document
	ErrMultipleDocumentsFound = NewError("MULTIPLE_DOCUMENTS_FOUND")

	// ErrInternalServerError error for internal server error
	ErrInternalServerError = NewError("INTERNAL_SERVER_ERROR")
)

// Error is a struct that represents an error
type Error struct {
	Title   string `json:"title"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Details != nil {
		return fmt.Sprintf("Error: [%s] %+v", e.Title, e.Details)
	}
	return fmt.Sprintf("Error: [%s]", e.Title)
}

// ErrorResponse is a struct that represents an error response in JSON from REST API
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// NewError returns a new Error with only a title
func NewError(title string) *Error {
	return &Error{Title: title}
}

// NewErrorDetails returns a new Error with a title and arbitrary details
func NewErrorDetails(title string, details any) *Error {
	return &Error{Title: title, Details: details}
}

// NewErrorFromError creates a new Error from an error
func NewErrorFromError(err error) *Error {
	if err == nil {
		return nil
	}

	if pbErr, ok := err.(*Error); ok {
		return pbErr
	}

	if jsonUnmarshalTypeError, ok := err.(*json.UnmarshalTypeError); ok {
		return &Error{Title: "json_type_error", Details: formatJSONUnmarshalTypeError(jsonUnmarshalTypeError)}
	}
	if jsonSyntaxError, ok := err.(*json.SyntaxError); ok {
		return &Error{Title: "json_syntax_error", Details: map[string]any{"position": jsonSyntaxError.Offset, "error": jsonSyntaxError.Error()}}
	}
	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		return &Error{Title: "validation_error", Details: formatValidationErrors(validatorErr)}
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &Error{Title: "database_error", Details: ErrNoDocumentFound}
	}

	return NewErrorDetails("internal_server_error", err.Error())
}

func formatValidationErrors(err validator.ValidationErrors) []map[string]any {
	v := make([]map[string]any, 0)
	for _, e := range err {
		splits := strings.SplitN(e.Namespace(), ".", 2)
		namespace := e.Namespace()
		if len(splits) > 1 {
			namespace = splits[1]
		}
		v = append(v, map[string]any{
			"field":           e.Field(),
			"namespace":       namespace,
			"type":            e.Kind().String(),
			"validation":      e.Tag(),
			"validationParam": e.Param(),
			"value":           e.Value(),
		})
	}
	return v
}

func formatJSONUnmarshalTypeError(err *json.UnmarshalTypeError) []map[string]any {
	return []map[string]any{
		{
			"field":    err.Field,
			"expected": err.Type.Kind().String(),
			"actual":   err.Value,
		},
	}
}

// Problem404 returns a standard RFC7807 problem for a 404 response
func Problem404() *problems.Problem {
	return problems.NewStatusProblem(404)
}
