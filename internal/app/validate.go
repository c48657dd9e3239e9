package app

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"school_reviews/internal/domain"
)

var basicEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SubmitInput is what the review form posts.
type SubmitInput struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,basicemail"`
	Relationship string `json:"relationship" validate:"required"`
	Review       string `json:"review" validate:"required,min=10"`
}

func (in SubmitInput) trimmed() SubmitInput {
	return SubmitInput{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.TrimSpace(in.Email),
		Relationship: strings.TrimSpace(in.Relationship),
		Review:       strings.TrimSpace(in.Review),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("basicemail", func(fl validator.FieldLevel) bool {
		return basicEmail.MatchString(fl.Field().String())
	})
	return v
}

// validate returns nil or a *domain.ValidationError keyed by JSON field name.
func validate(v *validator.Validate, in SubmitInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ValidationError{Fields: map[string]string{"_": err.Error()}}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "basicemail":
			fields[fe.Field()] = "must be a valid email address"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param() + " characters long"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &domain.ValidationError{Fields: fields}
}
