package pipeline

import (
	"fmt"
	"net/http"
)

// Code is the pipeline's numeric error taxonomy, mirroring the draft
// implementation's fatal (1xxx) / non-fatal (2xxx) error ranges.
type Code int

const (
	CodeDatabaseError         Code = 1001
	CodeServerBusy            Code = 1002
	CodeTaskJoinError         Code = 1003
	CodeClientDisconnected    Code = 1004
	CodeObjStoreError         Code = 1005
	CodeXsltDataMissing       Code = 1006
	CodeMultipleRecords       Code = 1007

	CodeZipError              Code = 2001
	CodeZipIOError             Code = 2002
	CodeUblNotFoundInStore     Code = 2003
	CodeDecompressError        Code = 2004
	CodeNonUtfCharError        Code = 2005
	CodeXMLParseError          Code = 2006
	CodeMissingNode            Code = 2007
	CodeMissingText            Code = 2008
	CodeInvalidXsltKey         Code = 2009
	CodeDecompressTimeout      Code = 2010
	CodeDecompressCancelled    Code = 2011
	CodeEngineTransformError   Code = 2012
	CodeMissingField           Code = 2013
)

var fatalCodes = map[Code]bool{
	CodeDatabaseError:      true,
	CodeServerBusy:         true,
	CodeTaskJoinError:      true,
	CodeClientDisconnected: true,
	CodeObjStoreError:      true,
	CodeXsltDataMissing:    true,
	CodeMultipleRecords:    true,
}

// Error is the pipeline's error type: every failure path in the manager
// and worker returns one of these, carrying enough context to classify
// fatal vs. non-fatal and to pick an HTTP status.
type Error struct {
	Code      Code
	Op        string // operation name, for the contextual chain
	ObjectID  string // item the error occurred on, when applicable
	Cause     error
}

func (e *Error) Error() string {
	if e.ObjectID != "" {
		return fmt.Sprintf("%s: %s (object_id=%s): %v", e.Op, e.codeName(), e.ObjectID, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.codeName(), e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether this error aborts the request with no body.
func (e *Error) IsFatal() bool {
	return fatalCodes[e.Code]
}

// ErrorCode returns the numeric error code for the transport's
// {error_code, error_msg} response shape (spec.md §6).
func (e *Error) ErrorCode() int {
	return int(e.Code)
}

// HTTPStatus maps the error to the response status per spec §7.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeServerBusy:
		return http.StatusTooManyRequests
	case CodeClientDisconnected:
		return http.StatusGatewayTimeout
	default:
		if e.IsFatal() {
			return http.StatusInternalServerError
		}
		return http.StatusPartialContent
	}
}

func (e *Error) codeName() string {
	switch e.Code {
	case CodeDatabaseError:
		return "DatabaseError"
	case CodeServerBusy:
		return "ServerBusyError"
	case CodeTaskJoinError:
		return "TaskJoinError"
	case CodeClientDisconnected:
		return "ClientDisconnectedError"
	case CodeObjStoreError:
		return "ObjStoreError"
	case CodeXsltDataMissing:
		return "XsltDataMissing"
	case CodeMultipleRecords:
		return "Multiple"
	case CodeZipError:
		return "ZipError"
	case CodeZipIOError:
		return "ZipIOError"
	case CodeUblNotFoundInStore:
		return "UblNotFoundInObjectStore"
	case CodeDecompressError:
		return "DecompressError"
	case CodeNonUtfCharError:
		return "NonUtfCharError"
	case CodeXMLParseError:
		return "XMLParseError"
	case CodeMissingNode:
		return "MissingNode"
	case CodeMissingText:
		return "MissingText"
	case CodeInvalidXsltKey:
		return "InvalidXsltKey"
	case CodeDecompressTimeout:
		return "DecompressTimeout"
	case CodeDecompressCancelled:
		return "DecompressCancelled"
	case CodeEngineTransformError:
		return "EngineTransformError"
	case CodeMissingField:
		return "MissingField"
	default:
		return "UnknownError"
	}
}

// New builds a pipeline Error.
func New(code Code, op string, objectID string, cause error) *Error {
	return &Error{Code: code, Op: op, ObjectID: objectID, Cause: cause}
}
