package prompt

import (
	"fmt"
	"io"
	"log"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/intprep/internal/models"
)

const mixedStyles = "mixed"

// Builder turns a GenerationRequest into the prompts sent to the model.
// Templates are parsed once; building never performs I/O.
type Builder struct {
	loader       *Loader
	systemPrompt string
	userTemplate *template.Template
}

// userPromptData is the view the user prompt template renders
type userPromptData struct {
	Role           string
	Seniority      models.Seniority
	Domain         string
	QuestionCount  int
	Difficulty     models.Difficulty
	StyleLine      string
	IncludeRubrics bool
}

// NewPromptBuilder creates a builder over the compiled-in prompts
func NewPromptBuilder() *Builder {
	builder, err := NewPromptBuilderFromLoader(NewPromptLoader())
	if err != nil {
		log.Fatalf("failed to load built-in prompts: %v", err)
	}
	return builder
}

// NewPromptBuilderFromLoader reads and parses the prompts from loader
func NewPromptBuilderFromLoader(loader *Loader) (*Builder, error) {
	systemPrompt, err := loader.GetSystemPrompt()
	if err != nil {
		return nil, err
	}
	source, err := loader.GetUserPromptTemplate()
	if err != nil {
		return nil, err
	}
	userTemplate, err := template.New(userPromptFile).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", userPromptFile, err)
	}

	// Unknown fields only surface on Execute
	sample := models.NewGenerationRequest("Software Engineer")
	if err := userTemplate.Execute(io.Discard, newUserPromptData(sample)); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", userPromptFile, err)
	}

	return &Builder{
		loader:       loader,
		systemPrompt: systemPrompt,
		userTemplate: userTemplate,
	}, nil
}

// BuildSystemPrompt returns the fixed interviewer instructions
func (b *Builder) BuildSystemPrompt() string {
	return b.systemPrompt
}

// BuildUserPrompt renders the request into the user message
func (b *Builder) BuildUserPrompt(req *models.GenerationRequest) string {
	var sb strings.Builder
	if err := b.userTemplate.Execute(&sb, newUserPromptData(req)); err != nil {
		// The constructor already rendered this template once
		log.Printf("❌ Failed to render user prompt: %v", err)
	}
	return strings.TrimSpace(sb.String())
}

func newUserPromptData(req *models.GenerationRequest) userPromptData {
	return userPromptData{
		Role:           req.Role,
		Seniority:      req.Seniority,
		Domain:         req.Domain,
		QuestionCount:  req.QuestionCount,
		Difficulty:     req.Difficulty,
		StyleLine:      styleLine(req.OrderedStyles()),
		IncludeRubrics: req.IncludeRubrics,
	}
}

// Build returns both prompts for a request
func (b *Builder) Build(req *models.GenerationRequest) models.PromptPair {
	return models.PromptPair{
		SystemPrompt: b.BuildSystemPrompt(),
		UserPrompt:   b.BuildUserPrompt(req),
	}
}

func styleLine(styles []models.Style) string {
	if len(styles) == 0 {
		return mixedStyles
	}
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
