package handler

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"mime"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/stevemurr/admit-stats/record"
)

const maxSubmissionBytes = 1 << 20

// submission is the body of POST /update. Numbers arrive as form strings or
// JSON numbers and are parsed before validation; nil means not submitted.
type submission struct {
	University string `json:"university" validate:"required"`
	Course     string `json:"course" validate:"required"`

	Experience *float64 `json:"experience" validate:"required,finite,gte=0"`
	GPA        *float64 `json:"gpa" validate:"required,finite,gte=0"`

	GMAT  *float64 `json:"gmat" validate:"omitempty,finite,gte=0"`
	GRE   *float64 `json:"gre" validate:"omitempty,finite,gte=0"`
	TOEFL *float64 `json:"toefl" validate:"omitempty,finite,gte=0"`
	IELTS *float64 `json:"ielts" validate:"omitempty,finite,gte=0"`
}

// ValidationError reports every rejected field of a submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range slices.Sorted(maps.Keys(e.Fields)) {
		msgs = append(msgs, e.Fields[f])
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			x := fl.Field().Float()
			return !math.IsNaN(x) && !math.IsInf(x, 0)
		})
	})
	return validate
}

var fieldMessages = map[string]string{
	"required": "%s is required",
	"finite":   "%s must be a finite number",
	"gte":      "%s must be greater than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	tmpl, ok := fieldMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	if fe.Param() != "" {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(tmpl, fe.Field())
}

// parseSubmission reads a JSON or form body into a validated observation.
func parseSubmission(w http.ResponseWriter, r *http.Request) (record.Observation, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

	raw, err := rawValues(r)
	if err != nil {
		return record.Observation{}, err
	}

	fields := map[string]string{}
	number := func(name string) *float64 {
		s := strings.TrimSpace(raw[name])
		if s == "" {
			return nil
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fields[name] = name + " must be a number"
			return nil
		}
		return &x
	}

	sub := submission{
		University: raw["university"],
		Course:     raw["course"],
		Experience: number("experience"),
		GPA:        number("gpa"),
		GMAT:       number("gmat"),
		GRE:        number("gre"),
		TOEFL:      number("toefl"),
		IELTS:      number("ielts"),
	}
	if strings.TrimSpace(sub.University) == "" {
		sub.University = ""
	}
	if strings.TrimSpace(sub.Course) == "" {
		sub.Course = ""
	}

	if err := getValidator().Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return record.Observation{}, err
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = translateError(fe)
			}
		}
	}
	if len(fields) > 0 {
		return record.Observation{}, &ValidationError{Fields: fields}
	}

	return record.Observation{
		University: sub.University,
		Course:     sub.Course,
		Experience: *sub.Experience,
		GPA:        *sub.GPA,
		GMAT:       optional(sub.GMAT),
		GRE:        optional(sub.GRE),
		TOEFL:      optional(sub.TOEFL),
		IELTS:      optional(sub.IELTS),
	}, nil
}

// optional drops a zero score: forms send 0 for a test that was not taken.
func optional(p *float64) *float64 {
	if p == nil || *p == 0 {
		return nil
	}
	return p
}

// rawValues flattens the request body into field name to string value.
func rawValues(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
				return nil, fmt.Errorf("invalid form body: %w", err)
			}
		} else if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		out := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	out := make(map[string]string, len(body))
	for k, v := range body {
		switch v := v.(type) {
		case nil:
		case string:
			out[k] = v
		case json.Number:
			out[k] = v.String()
		default:
			return nil, &ValidationError{Fields: map[string]string{
				k: k + " must be a string or a number",
			}}
		}
	}
	return out, nil
}
