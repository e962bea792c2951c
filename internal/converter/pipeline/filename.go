package pipeline

import (
	"fmt"
	"strconv"
)

// filenameFor computes the archive entry name (without extension) for an
// item, per the request's FilenameMode. docsCount is the number of entries
// already appended before this one (0-based), which also serves as the
// sequence fallback for every mode.
func filenameFor(mode FilenameMode, item InvoiceItemRef, docsCount uint64) string {
	switch mode {
	case FilenameExtractFromObjID:
		if len(item.ObjectID) >= 16 {
			return item.ObjectID[8:16]
		}
		return strconv.FormatUint(docsCount, 10)
	case FilenameIncludedInRequest:
		if item.InvoiceNo != nil && *item.InvoiceNo != "" {
			return fmt.Sprintf("Fat_%s", *item.InvoiceNo)
		}
		return fmt.Sprintf("Fat_%d", docsCount)
	case FilenameUseSiraNo:
		if item.SiraNo != nil {
			return fmt.Sprintf("Fat_%d", *item.SiraNo)
		}
		return fmt.Sprintf("Fat_%d", docsCount)
	case FilenameStartFromInvoiceOne:
		return fmt.Sprintf("Fat_%d", docsCount)
	default:
		return fmt.Sprintf("Fat_%d", docsCount)
	}
}
