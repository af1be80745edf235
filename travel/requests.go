package travel

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is the mark of request validation errors
var ErrInvalidRequest = errors.New("invalid request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ItineraryRequest is the request to plan a trip
type ItineraryRequest struct {
	Destination string  `json:"destination" yaml:"destination" validate:"required"`
	Budget      float64 `json:"budget" yaml:"budget" validate:"gt=0"`
	Days        int     `json:"days" yaml:"days" validate:"gt=0"`
	StartDate   string  `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
}

// Validate returns ErrInvalidRequest with the failed fields
func (r *ItineraryRequest) Validate() error {
	return validateRequest(r)
}

// ResearchRequest is the request to research hotels and transport of a destination
type ResearchRequest struct {
	Destination string  `json:"destination" yaml:"destination" validate:"required"`
	Budget      float64 `json:"budget" yaml:"budget" validate:"gt=0"`
	Days        int     `json:"days" yaml:"days" validate:"gt=0"`
}

// Validate returns ErrInvalidRequest with the failed fields
func (r *ResearchRequest) Validate() error {
	return validateRequest(r)
}

func validateRequest(req any) error {
	if req == nil || reflect.ValueOf(req).IsNil() {
		return errors.Mark(errors.New("invalid request: missing body"), ErrInvalidRequest)
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Mark(errors.Wrap(err, "invalid request"), ErrInvalidRequest)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.Mark(errors.Newf("invalid request: %s", strings.Join(msgs, "; ")), ErrInvalidRequest)
}

func fieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	}
	return fe.Field() + " is invalid"
}
