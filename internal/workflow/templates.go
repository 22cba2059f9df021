package workflow

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTemplate is returned when a template name is not in the catalog.
var ErrUnknownTemplate = errors.New("unknown workflow template")

// Step describes one link in a workflow chain. PromptTemplate may contain
// the placeholders {input} (previous step's output, or the initial input on
// the first step) and {initial} (always the original input).
type Step struct {
	ModelID        string
	Operation      string
	PromptTemplate string
}

// ContentGeneration returns the outline → draft → polish pipeline with every
// step bound to the given model.
func ContentGeneration(modelID string) []Step {
	return []Step{
		{ModelID: modelID, Operation: "outline", PromptTemplate: "Create a brief outline for an article about: {input}"},
		{ModelID: modelID, Operation: "draft", PromptTemplate: "Write a short article following this outline:\n{input}"},
		{ModelID: modelID, Operation: "polish", PromptTemplate: "Improve the clarity and flow of this article:\n{input}"},
	}
}

// Translation returns the translate → review pipeline.
func Translation(modelID, targetLanguage string) []Step {
	return []Step{
		{ModelID: modelID, Operation: "translate", PromptTemplate: fmt.Sprintf("Translate the following text to %s:\n{input}", targetLanguage)},
		{ModelID: modelID, Operation: "review", PromptTemplate: fmt.Sprintf("Review this %s translation of the original text and correct any errors.\nOriginal: {initial}\nTranslation: {input}", targetLanguage)},
	}
}

// Analysis returns the extract → summarize pipeline.
func Analysis(modelID string) []Step {
	return []Step{
		{ModelID: modelID, Operation: "extract", PromptTemplate: "Extract the key points from the following text:\n{input}"},
		{ModelID: modelID, Operation: "summarize", PromptTemplate: "Write a one-paragraph summary based on these key points:\n{input}"},
	}
}

var catalog = map[string]string{
	"content_generation": "Outline, draft, and polish an article",
	"translation":        "Translate text and review the result against the original",
	"analysis":           "Extract key points and summarize them",
}

// Catalog returns the built-in template names and their descriptions.
func Catalog() map[string]string {
	out := make(map[string]string, len(catalog))
	for name, desc := range catalog {
		out[name] = desc
	}
	return out
}

// TemplateNames lists the built-in workflow templates in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template resolves a named built-in pipeline for the given model. The
// translation template defaults to Spanish when used by name.
func Template(name, modelID string) ([]Step, error) {
	switch name {
	case "content_generation":
		return ContentGeneration(modelID), nil
	case "translation":
		return Translation(modelID, "Spanish"), nil
	case "analysis":
		return Analysis(modelID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
}
