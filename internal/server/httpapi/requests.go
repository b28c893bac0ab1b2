package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/server/multipart"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
)

const maxJSONBody = 1 << 20

// validator is implemented by every JSON request body.
type validator interface {
	Validate() error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into dst and validates it. Malformed JSON, wrong
// field types and failed validation all wrap common.ErrValidation.
func decode(w http.ResponseWriter, r *http.Request, dst validator) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return invalid("request body is empty")
		case errors.As(err, &typeErr):
			return invalid("field %q has the wrong type", typeErr.Field)
		default:
			return invalid("malformed JSON body")
		}
	}
	return dst.Validate()
}

func required(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", name)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	return firstErr(required("email", r.Email), required("password", r.Password))
}

type toggleRequest struct {
	Key      string `json:"key"`
	IsPublic *bool  `json:"isPublic"`
}

func (r *toggleRequest) Validate() error {
	if err := required("key", r.Key); err != nil {
		return err
	}
	if r.IsPublic == nil {
		return invalid("isPublic is required")
	}
	return nil
}

type folderRequest struct {
	Name string `json:"name"`
}

func (r *folderRequest) Validate() error {
	if err := required("name", r.Name); err != nil {
		return err
	}
	return cleanName(r.Name)
}

type renameRequest struct {
	Key    string `json:"key"`
	NewKey string `json:"newKey"`
}

func (r *renameRequest) Validate() error {
	if err := firstErr(required("key", r.Key), required("newKey", r.NewKey)); err != nil {
		return err
	}
	if r.Key == r.NewKey {
		return invalid("newKey must differ from key")
	}
	if strings.HasSuffix(r.Key, "/") || strings.HasSuffix(r.NewKey, "/") {
		return invalid("folders cannot be renamed")
	}
	return cleanName(r.NewKey)
}

type initiateRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

func (r *initiateRequest) Validate() error {
	if err := required("key", r.Key); err != nil {
		return err
	}
	if strings.HasSuffix(r.Key, "/") {
		return invalid("key must name a file")
	}
	return cleanName(r.Key)
}

type presignRequest struct {
	UploadID    string  `json:"uploadId"`
	Key         string  `json:"key"`
	PartNumbers []int32 `json:"partNumbers"`
}

func (r *presignRequest) Validate() error {
	if err := firstErr(required("uploadId", r.UploadID), required("key", r.Key)); err != nil {
		return err
	}
	return multipart.ValidatePartNumbers(r.PartNumbers)
}

type completePart struct {
	ETag       string `json:"ETag"`
	PartNumber *int32 `json:"PartNumber"`
}

type completeRequest struct {
	UploadID string         `json:"uploadId"`
	Key      string         `json:"key"`
	Parts    []completePart `json:"parts"`
}

func (r *completeRequest) Validate() error {
	if err := firstErr(required("uploadId", r.UploadID), required("key", r.Key)); err != nil {
		return err
	}
	if len(r.Parts) == 0 {
		return invalid("parts must be a non-empty list")
	}
	for i, p := range r.Parts {
		if p.ETag == "" {
			return invalid("parts[%d].ETag is required", i)
		}
		if p.PartNumber == nil {
			return invalid("parts[%d].PartNumber is required", i)
		}
	}
	return multipart.ValidateParts(r.completedParts())
}

func (r *completeRequest) completedParts() []objectstore.CompletedPart {
	parts := make([]objectstore.CompletedPart, 0, len(r.Parts))
	for _, p := range r.Parts {
		var n int32
		if p.PartNumber != nil {
			n = *p.PartNumber
		}
		parts = append(parts, objectstore.CompletedPart{PartNumber: n, ETag: p.ETag})
	}
	return parts
}

type abortRequest struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

func (r *abortRequest) Validate() error {
	return firstErr(required("uploadId", r.UploadID), required("key", r.Key))
}

// cleanName rejects path segments that would escape or alias a prefix.
func cleanName(name string) error {
	for _, seg := range strings.Split(strings.Trim(name, "/"), "/") {
		switch seg {
		case "":
			return invalid("name contains an empty path segment")
		case ".", "..":
			return invalid("name contains a relative path segment")
		}
	}
	return nil
}
