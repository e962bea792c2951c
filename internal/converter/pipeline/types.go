// Package pipeline implements the invoice conversion pipeline: a bounded
// async producer (Manager) feeding a blocking consumer (Worker) that
// compiles and applies XSLT stylesheets and streams the results into an
// archive.
package pipeline

import (
	"encoding/json"
	"fmt"
)

// TargetType selects the rendered output kind. Only Html is implemented by
// this core; the others are forward-compatible wire variants.
type TargetType string

const (
	TargetHtml            TargetType = "Html"
	TargetPdf              TargetType = "Pdf"
	TargetUbl              TargetType = "Ubl"
	TargetUblXsltSeparate  TargetType = "Ubl_Xslt_Separate"
)

// Compression selects the archive container.
type Compression string

const (
	CompressionZip   Compression = "zip"
	CompressionTarXz Compression = "tzip"
	CompressionTarGz Compression = "gzip"
)

// FilenameMode selects how archive entry names are derived from each item.
type FilenameMode string

const (
	FilenameExtractFromObjID    FilenameMode = "ExtractFromObjID"
	FilenameIncludedInRequest   FilenameMode = "IncludedInRequest"
	FilenameUseSiraNo           FilenameMode = "UseSiraNo"
	FilenameStartFromInvoiceOne FilenameMode = "StartFromInvoiceOne"
)

// UnmarshalJSON defaults an empty filename_in_zip to StartFromInvoiceOne.
// An absent field never reaches this method and leaves the zero value,
// which filenameFor names the same way as StartFromInvoiceOne.
func (m *FilenameMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		s = string(FilenameStartFromInvoiceOne)
	}
	switch FilenameMode(s) {
	case FilenameExtractFromObjID, FilenameIncludedInRequest, FilenameUseSiraNo, FilenameStartFromInvoiceOne:
		*m = FilenameMode(s)
		return nil
	default:
		return fmt.Errorf("pipeline: invalid filename_in_zip %q", s)
	}
}

// InvoiceItemRef is one document to convert, as referenced by the caller.
type InvoiceItemRef struct {
	ObjectID  string  `json:"object_id"`
	SiraNo    *uint64 `json:"sira_no,omitempty"`
	InvoiceNo *string `json:"invoice_no,omitempty"`
}

// ConversionRequest is a batch of items plus the target rendering mode.
type ConversionRequest struct {
	TargetType   TargetType       `json:"target_type"`
	Compression  Compression      `json:"target_format"`
	Year         string           `json:"year"`
	FilenameMode FilenameMode     `json:"filename_in_zip"`
	Items        []InvoiceItemRef `json:"items"`
}

// ConversionJob crosses the channel from the manager to the worker.
type ConversionJob struct {
	Item     InvoiceItemRef
	XMLData  []byte
	XsltKey  string
	XsltData []byte // present only on the first occurrence of XsltKey in the request
}

// ConversionResult is the outcome of a request, full or partial.
type ConversionResult struct {
	Archive               []byte
	DocsCount             uint64
	Size                  uint64
	LastProcessedSiraNo   *uint64
	RequestFullyCompleted bool
}
