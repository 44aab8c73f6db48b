// Package playground provides pre-built law-article examples for exploring
// the expression language's operator catalog interactively, one example per
// operator category.
package playground

import (
	"fmt"
	"sort"
	"strings"
)

// TemplateParameter describes a named parameter a template accepts.
type TemplateParameter struct {
	Name         string // parameter name (e.g., "law_id")
	Description  string // human-readable description
	DefaultValue string // default if not provided
	Required     bool   // whether the parameter must be supplied
}

// ExampleTemplate holds a pre-built law-article YAML snippet for the
// playground, demonstrating one operator category of pkg/ops.
type ExampleTemplate struct {
	Name        string              // unique slug (e.g., "arithmetic-threshold")
	Description string              // one-line description
	Category    string              // operator grouping (e.g., "arithmetic", "control-flow")
	YAML        string              // law document YAML, may contain %s placeholders
	Parameters  []TemplateParameter // parameters for substitution
}

var templateRegistry = map[string]ExampleTemplate{
	"arithmetic-threshold": {
		Name:        "arithmetic-threshold",
		Description: "Computing a threshold with MULTIPLY and comparing it with GREATER_THAN_OR_EQUAL",
		Category:    "arithmetic",
		YAML: `$id: %s
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "1"
    text: Drempelinkomen bepaling
    machine_readable:
      public: true
      execution:
        parameters:
          - name: basisbedrag
        output:
          - name: drempel_overschreden
        actions:
          - output: drempel_overschreden
            value:
              operation: GREATER_THAN_OR_EQUAL
              subject:
                operation: MULTIPLY
                subject: $basisbedrag
                value: 1.1
              value: 35000
`,
		Parameters: []TemplateParameter{
			{Name: "law_id", Description: "law $id to generate", DefaultValue: "voorbeeldwet", Required: false},
		},
	},

	"control-flow-switch": {
		Name:        "control-flow-switch",
		Description: "Bracketed outcome via SWITCH over a resolved input",
		Category:    "control-flow",
		YAML: `$id: %s
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "2"
    text: Tariefgroep bepaling
    machine_readable:
      public: true
      execution:
        parameters:
          - name: inkomen
        output:
          - name: tariefgroep
        actions:
          - output: tariefgroep
            value:
              operation: SWITCH
              cases:
                - when:
                    operation: LESS_THAN
                    subject: $inkomen
                    value: 20000
                  then: "laag"
                - when:
                    operation: LESS_THAN
                    subject: $inkomen
                    value: 50000
                  then: "midden"
              default: "hoog"
`,
	},

	"date-anniversary": {
		Name:        "date-anniversary",
		Description: "Age-eligibility check via SUBTRACT_DATE in years",
		Category:    "date",
		YAML: `$id: %s
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "3"
    text: Leeftijdsgrens bepaling
    machine_readable:
      public: true
      execution:
        parameters:
          - name: geboortedatum
        output:
          - name: leeftijd_bereikt
        actions:
          - output: leeftijd_bereikt
            value:
              operation: GREATER_THAN_OR_EQUAL
              subject:
                operation: SUBTRACT_DATE
                subject: $referencedate
                value: $geboortedatum
                unit: years
              value: 18
`,
	},

	"collection-foreach": {
		Name:        "collection-foreach",
		Description: "Collecting each household member's income into a list with FOREACH",
		Category:    "collection",
		YAML: `$id: %s
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "4"
    text: Huishoudinkomen optelling
    machine_readable:
      public: true
      execution:
        parameters:
          - name: huishoudleden
        output:
          - name: inkomens
        actions:
          - output: inkomens
            value:
              operation: FOREACH
              over: $huishoudleden
              as: lid
              body: $lid.inkomen
`,
	},

	"logical-and-or": {
		Name:        "logical-and-or",
		Description: "Combining two boolean conditions with AND and NOT",
		Category:    "logical",
		YAML: `$id: %s
regulatory_layer: WET
publication_date: 2023-01-01
valid_from: 2023-01-01
articles:
  - number: "5"
    text: Verzekeringsplicht voorwaarden
    machine_readable:
      public: true
      execution:
        parameters:
          - name: ingezetene
          - name: uitgezonderd
        output:
          - name: verzekeringsplichtig
        actions:
          - output: verzekeringsplichtig
            value:
              operation: AND
              values:
                - $ingezetene
                - operation: NOT
                  subject: $uitgezonderd
`,
	},
}

// Registry returns all registered playground templates keyed by name.
func Registry() map[string]ExampleTemplate {
	return templateRegistry
}

// TemplateNames returns template names in sorted order for consistent listing.
func TemplateNames() []string {
	names := make([]string, 0, len(templateRegistry))
	for name := range templateRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a template by name, or false if not found.
func Get(name string) (ExampleTemplate, bool) {
	template, exists := templateRegistry[name]
	return template, exists
}

// RenderDocument substitutes parameters into the template's law YAML.
// parameterValues maps parameter name to value; a missing "law_id" falls
// back to the parameter's DefaultValue.
func RenderDocument(template ExampleTemplate, parameterValues map[string]string) (string, error) {
	for _, parameter := range template.Parameters {
		if parameter.Required {
			if value, exists := parameterValues[parameter.Name]; !exists || value == "" {
				return "", fmt.Errorf("required parameter --%s not provided: %s", parameter.Name, parameter.Description)
			}
		}
	}

	lawID := parameterValues["law_id"]
	if lawID == "" {
		for _, parameter := range template.Parameters {
			if parameter.Name == "law_id" && parameter.DefaultValue != "" {
				lawID = parameter.DefaultValue
			}
		}
	}
	if lawID == "" {
		lawID = "voorbeeldwet"
	}

	rendered := template.YAML
	if strings.Contains(rendered, "%s") {
		rendered = fmt.Sprintf(rendered, lawID)
	}
	return rendered, nil
}
