package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Seniority is the candidate level the questions are pitched at
type Seniority string

const (
	SeniorityIntern     Seniority = "intern"
	SeniorityFresher    Seniority = "fresher"
	SeniorityEntryLevel Seniority = "Entry level"
	SeniorityMid        Seniority = "Mid"
	SenioritySenior     Seniority = "senior"
)

// Difficulty is the requested question difficulty
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyMixed  Difficulty = "Mixed"
)

// Style is a question style. Values are the labels shown in the form.
type Style string

const (
	StyleBehavioral   Style = "Behavioral"
	StyleSystemDesign Style = "System Design"
	StyleAlgorithms   Style = "Algorithms"
	StyleCoding       Style = "Coding"
	StyleTheory       Style = "Theory"
	StyleMetrics      Style = "Metrics/Analytics"
)

// Question count bounds accepted by the form
const (
	MinQuestionCount     = 3
	MaxQuestionCount     = 15
	DefaultQuestionCount = 8
	maxRoleLength        = 120
	maxDomainLength      = 200
)

// Seniorities lists seniority levels in display order
var Seniorities = []Seniority{
	SeniorityIntern, SeniorityFresher, SeniorityEntryLevel, SeniorityMid, SenioritySenior,
}

// Difficulties lists difficulties in display order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed}

// Styles lists question styles in canonical order
var Styles = []Style{
	StyleBehavioral, StyleSystemDesign, StyleAlgorithms, StyleCoding, StyleTheory, StyleMetrics,
}

// DefaultStyles are preselected in the form
var DefaultStyles = []Style{StyleBehavioral, StyleCoding, StyleSystemDesign}

// ErrRoleRequired is returned when the role field is blank
var ErrRoleRequired = errors.New("Please enter a role to continue.") //nolint:staticcheck // shown verbatim in the UI

// GenerationRequest holds everything the user chose on the form.
// It is validated once and not modified afterwards.
type GenerationRequest struct {
	Role           string     `json:"role" validate:"required,max=120"`
	Seniority      Seniority  `json:"seniority" validate:"required,seniority"`
	Domain         string     `json:"domain" validate:"max=200"`
	QuestionCount  int        `json:"question_count" validate:"min=3,max=15"`
	Difficulty     Difficulty `json:"difficulty" validate:"required,difficulty"`
	Styles         []Style    `json:"styles" validate:"dive,question_style"`
	IncludeRubrics bool       `json:"include_rubrics"`
}

// NewGenerationRequest returns a request populated with the form defaults
func NewGenerationRequest(role string) *GenerationRequest {
	return &GenerationRequest{
		Role:           role,
		Seniority:      SeniorityEntryLevel,
		QuestionCount:  DefaultQuestionCount,
		Difficulty:     DifficultyMixed,
		Styles:         slices.Clone(DefaultStyles),
		IncludeRubrics: true,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("seniority", func(fl validator.FieldLevel) bool {
		return slices.Contains(Seniorities, Seniority(fl.Field().String()))
	})
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return slices.Contains(Difficulties, Difficulty(fl.Field().String()))
	})
	_ = v.RegisterValidation("question_style", func(fl validator.FieldLevel) bool {
		return slices.Contains(Styles, Style(fl.Field().String()))
	})
	return v
}

// Validate normalizes whitespace and checks the request against the form rules
func (r *GenerationRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	r.Domain = strings.TrimSpace(r.Domain)
	if r.Role == "" {
		return ErrRoleRequired
	}

	if err := validate.Struct(r); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return describeFieldError(validationErrs[0])
		}
		return err
	}
	return nil
}

func describeFieldError(fe validator.FieldError) error {
	switch fe.StructField() {
	case "Role":
		return fmt.Errorf("role must be at most %d characters", maxRoleLength)
	case "Domain":
		return fmt.Errorf("domain must be at most %d characters", maxDomainLength)
	case "QuestionCount":
		return fmt.Errorf("question_count must be between %d and %d", MinQuestionCount, MaxQuestionCount)
	case "Seniority":
		return fmt.Errorf("unknown seniority %q", fe.Value())
	case "Difficulty":
		return fmt.Errorf("unknown difficulty %q", fe.Value())
	default:
		if strings.HasPrefix(fe.StructNamespace(), "GenerationRequest.Styles") {
			return fmt.Errorf("unknown question style %q", fe.Value())
		}
		return fmt.Errorf("invalid %s", fe.Field())
	}
}

// OrderedStyles returns the selected styles de-duplicated and in canonical order
func (r *GenerationRequest) OrderedStyles() []Style {
	ordered := make([]Style, 0, len(r.Styles))
	for _, s := range Styles {
		if slices.Contains(r.Styles, s) {
			ordered = append(ordered, s)
		}
	}
	return ordered
}
