// Package errors defines the error kinds raised by the import pipeline.
// Every kind except FeedReadError is recoverable at its own unit of work.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/models"
)

// RowValidationError rejects a single feed row. Row carries the identity fields kept for the run report.
type RowValidationError struct {
	Row models.RejectedRow
}

func NewRowValidationError(row models.RejectedRow) *RowValidationError {
	return &RowValidationError{Row: row}
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("row %d: invalid fields [%s]", e.Row.Line, strings.Join(e.Row.InvalidFields, ", "))
}

func (e *RowValidationError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("line", strconv.Itoa(e.Row.Line)).
		AddMetaValue("invalid_fields", strings.Join(e.Row.InvalidFields, ","))
}

// StagingWriteError means a valid row could not be written to staging and is dropped for the run.
type StagingWriteError struct {
	Line           int
	ProductID      string
	ManufacturerID string
	SKU            string
	Err            error
}

func NewStagingWriteError(err error) *StagingWriteError {
	return &StagingWriteError{Err: err}
}

func (e *StagingWriteError) AddLine(line int) *StagingWriteError {
	e.Line = line
	return e
}

func (e *StagingWriteError) AddKey(productID, manufacturerID, sku string) *StagingWriteError {
	e.ProductID = productID
	e.ManufacturerID = manufacturerID
	e.SKU = sku
	return e
}

func (e *StagingWriteError) Error() string {
	return fmt.Sprintf("row %d: failed to stage sku '%s' for product '%s' manufacturer '%s': %v",
		e.Line, e.SKU, e.ProductID, e.ManufacturerID, e.Err)
}

func (e *StagingWriteError) Unwrap() error {
	return e.Err
}

// IdentityResolutionError skips a whole staging product.
type IdentityResolutionError struct {
	Step             string
	ManufacturerID   string
	ManufacturerName string
	ProductID        string
	Message          string
	Err              error
}

func NewIdentityResolutionError(msg string) *IdentityResolutionError {
	return &IdentityResolutionError{Message: msg}
}

func NewIdentityResolutionErrorf(format string, args ...any) *IdentityResolutionError {
	return &IdentityResolutionError{Message: fmt.Sprintf(format, args...)}
}

func (e *IdentityResolutionError) AddStep(step string) *IdentityResolutionError {
	e.Step = step
	return e
}

func (e *IdentityResolutionError) AddManufacturer(id, name string) *IdentityResolutionError {
	e.ManufacturerID = id
	e.ManufacturerName = name
	return e
}

func (e *IdentityResolutionError) AddProduct(productID string) *IdentityResolutionError {
	e.ProductID = productID
	return e
}

func (e *IdentityResolutionError) Wrap(err error) *IdentityResolutionError {
	e.Err = err
	return e
}

func (e *IdentityResolutionError) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("step '%s': %s", e.Step, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}

// Keys returns the supplier keys involved, for run reports.
func (e *IdentityResolutionError) Keys() map[string]any {
	keys := map[string]any{
		"manufacturer_id":   e.ManufacturerID,
		"manufacturer_name": e.ManufacturerName,
	}
	if e.ProductID != "" {
		keys["product_id"] = e.ProductID
	}
	return keys
}

type MergeScope string

const (
	MergeScopeProduct MergeScope = "product"
	MergeScopeVariant MergeScope = "variant"
)

// MergeError fails a product (and all of its variants) or a single variant.
type MergeError struct {
	Scope             MergeScope
	InternalProductID string
	SKU               string
	Err               error
}

func NewProductMergeError(internalProductID string, err error) *MergeError {
	return &MergeError{Scope: MergeScopeProduct, InternalProductID: internalProductID, Err: err}
}

func NewVariantMergeError(internalProductID, sku string, err error) *MergeError {
	return &MergeError{Scope: MergeScopeVariant, InternalProductID: internalProductID, SKU: sku, Err: err}
}

func (e *MergeError) Error() string {
	if e.Scope == MergeScopeVariant {
		return fmt.Sprintf("failed to merge variant '%s' of product '%s': %v", e.SKU, e.InternalProductID, e.Err)
	}
	return fmt.Sprintf("failed to merge product '%s': %v", e.InternalProductID, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

func (e *MergeError) Keys() map[string]any {
	keys := map[string]any{"internal_product_id": e.InternalProductID}
	if e.SKU != "" {
		keys["sku"] = e.SKU
	}
	return keys
}

// FeedReadError is fatal: the feed itself could not be read and the run aborts.
type FeedReadError struct {
	Line int
	Err  error
}

func NewFeedReadError(line int, err error) *FeedReadError {
	return &FeedReadError{Line: line, Err: err}
}

func (e *FeedReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to read feed at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("failed to read feed: %v", e.Err)
}

func (e *FeedReadError) Unwrap() error {
	return e.Err
}

func (e *FeedReadError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadGateway, e.Error()).AddMetaValue("line", strconv.Itoa(e.Line))
}

func IsFeedReadError(err error) bool {
	var target *FeedReadError
	return stderrors.As(err, &target)
}

func IsIdentityResolutionError(err error) bool {
	var target *IdentityResolutionError
	return stderrors.As(err, &target)
}

func IsMergeError(err error) bool {
	var target *MergeError
	return stderrors.As(err, &target)
}

// Keys extracts report keys from any pipeline error that carries them.
func Keys(err error) map[string]any {
	var identityErr *IdentityResolutionError
	if stderrors.As(err, &identityErr) {
		return identityErr.Keys()
	}
	var mergeErr *MergeError
	if stderrors.As(err, &mergeErr) {
		return mergeErr.Keys()
	}
	var stagingErr *StagingWriteError
	if stderrors.As(err, &stagingErr) {
		return map[string]any{
			"line":            stagingErr.Line,
			"product_id":      stagingErr.ProductID,
			"manufacturer_id": stagingErr.ManufacturerID,
			"sku":             stagingErr.SKU,
		}
	}
	var feedErr *FeedReadError
	if stderrors.As(err, &feedErr) {
		return map[string]any{"line": feedErr.Line}
	}
	return nil
}
