package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

var corpusNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate checks the job descriptor and returns ValidationErrors listing every
// problem, or nil.
func (j *Job) Validate() error {
	v := newValidator()

	var problems ValidationErrors
	switch j.Mode {
	case ModeCrawl, ModeList, ModeRepo, ModeMediaWiki:
	default:
		problems = append(problems, FieldError{Field: "mode", Message: fmt.Sprintf("unsupported mode %q", j.Mode)})
		return problems
	}

	problems = append(problems, collect(v.Struct(j.Common))...)

	opts := j.modeOptions()
	if reflect.ValueOf(opts).IsNil() {
		problems = append(problems, FieldError{Field: "config", Message: "config does not match mode"})
	} else {
		problems = append(problems, collect(v.Struct(opts))...)
	}

	if err := j.checkModeExclusive(); err != nil {
		problems = append(problems, FieldError{Field: "config", Message: err.Error()})
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}

// checkModeExclusive rejects descriptors carrying options for another mode.
func (j *Job) checkModeExclusive() error {
	set := 0
	for _, present := range []bool{j.Crawl != nil, j.List != nil, j.Repo != nil, j.MediaWiki != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return errors.New("options for more than one mode are set")
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("corpusname", func(fl validator.FieldLevel) bool {
		return corpusNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("notoption", func(fl validator.FieldLevel) bool {
		return !strings.HasPrefix(fl.Field().String(), "-")
	})
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		mw, ok := sl.Current().Interface().(MediaWikiOptions)
		if !ok {
			return
		}
		if strings.TrimSpace(mw.Category) == "" && strings.TrimSpace(mw.AllpagesPrefix) == "" {
			sl.ReportError(mw.Category, "category", "Category", "mediawikiscope", "")
		}
	}, MediaWikiOptions{})

	return v
}

func collect(err error) ValidationErrors {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "config", Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "corpusname":
		return "must match [a-zA-Z0-9_-]+"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "min":
		return fmt.Sprintf("at least %s value(s) required", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "http_url":
		return "must be an absolute http(s) URL"
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "regexp":
		return "invalid regular expression"
	case "glob":
		return "invalid glob pattern"
	case "notoption":
		return "must not start with '-'"
	case "mediawikiscope":
		return "mediawiki requires category or allpages_prefix"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
