package page

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ocwc/oeweek2022/core"
)

func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterChoiceValidation(validate, translator, "pagekind", "select a valid page kind", Kinds...)
}
