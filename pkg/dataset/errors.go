package dataset

import "fmt"

// FormCodeNotInCatalog reports observations of a form the catalog does not
// know. Their rows are dropped.
type FormCodeNotInCatalog struct {
	FormCode string
	Rows     int
}

func (e *FormCodeNotInCatalog) Error() string {
	return fmt.Sprintf("dataset: form %s not found in catalog (%d rows dropped)", e.FormCode, e.Rows)
}
