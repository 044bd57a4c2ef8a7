package pfmea

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Request holds the user's description of the process to analyze
type Request struct {
	ProcessName string `json:"process_name" validate:"required,max=200"`
	Equipment   string `json:"equipment" validate:"required,max=500"`
	Notes       string `json:"notes,omitempty" validate:"max=4000"`
}

// ErrInvalidRequest marks a Request that failed validation
var ErrInvalidRequest = errors.New("invalid request")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims surrounding whitespace from every field
func (r Request) Normalize() Request {
	return Request{
		ProcessName: strings.TrimSpace(r.ProcessName),
		Equipment:   strings.TrimSpace(r.Equipment),
		Notes:       strings.TrimSpace(r.Notes),
	}
}

// Validate checks the normalized request and returns a readable error
func (r Request) Validate() error {
	err := getValidator().Struct(r.Normalize())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}
