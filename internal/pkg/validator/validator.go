package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseMetric(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("admin_level", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseAdminLevel(fl.Field().String())
		return err == nil
	})
}

// Validate checks struct tags and converts failures to ErrInvalidRequest
// with one entry per offending field.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrInvalidRequest.Wrap(err)
	}

	details := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = fmt.Sprintf("failed on %q", fe.Tag())
	}
	return errors.ErrInvalidRequest.WithDetails(details)
}

func GetValidator() *validator.Validate {
	return validate
}
