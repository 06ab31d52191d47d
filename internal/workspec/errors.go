package workspec

import (
	"errors"
	"fmt"
)

// MalformedInputError reports a work specification that cannot be turned into
// work items. It is fatal: no generation starts.
type MalformedInputError struct {
	Row    int // 1-based data row; 0 when the header is at fault
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("malformed work spec: row %d column %q: %s", e.Row, e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("malformed work spec: row %d: %s", e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("malformed work spec: column %q: %s", e.Column, e.Reason)
	default:
		return "malformed work spec: " + e.Reason
	}
}

// ErrorKind classifies the error for exit reporting.
func (e *MalformedInputError) ErrorKind() string { return "malformed_input" }

// DuplicateAssetIDError reports two rows sharing an asset_id. It also matches
// *MalformedInputError under errors.As.
type DuplicateAssetIDError struct {
	AssetID   string
	FirstRow  int
	SecondRow int
}

func (e *DuplicateAssetIDError) Error() string {
	return fmt.Sprintf("malformed work spec: duplicate asset_id %q (rows %d and %d)", e.AssetID, e.FirstRow, e.SecondRow)
}

// ErrorKind classifies the error for exit reporting.
func (e *DuplicateAssetIDError) ErrorKind() string { return "malformed_input" }

// As lets callers treat duplicates as any other malformed input.
func (e *DuplicateAssetIDError) As(target any) bool {
	t, ok := target.(**MalformedInputError)
	if !ok {
		return false
	}
	*t = &MalformedInputError{Row: e.SecondRow, Column: ColumnAssetID, Reason: fmt.Sprintf("duplicate asset_id %q", e.AssetID)}
	return true
}

// IsMalformed reports whether err stems from an invalid work specification.
func IsMalformed(err error) bool {
	var malformed *MalformedInputError
	return errors.As(err, &malformed)
}
