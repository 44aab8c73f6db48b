package loader

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// lawSchemaID is the $schema URL every law file is expected to carry.
// Reflection-generated, not hand-maintained.
const lawSchemaID = "https://regelrecht.dev/schemas/law.schema.json"

// lawDocument is the shape jsonschema.Reflector generates the published
// schema from. It covers only the envelope fields that are required
// ($id, regulatory_layer, publication_date, valid_from,
// articles[], article number/text); the polymorphic execution/expression
// tree underneath machine_readable is deliberately left as a free-form
// object here and checked structurally, post-parse, by the V2/V3 gates —
// reflecting lawdoc.Expr itself would leak its unexported value.Value
// internals into the generated schema.
type lawDocument struct {
	Schema          string             `json:"$schema,omitempty"`
	ID              string             `json:"$id" jsonschema:"required"`
	RegulatoryLayer string             `json:"regulatory_layer" jsonschema:"required,enum=WET,enum=AMVB,enum=MINISTERIELE_REGELING,enum=KONINKLIJK_BESLUIT,enum=BELEIDSREGEL,enum=GEMEENTELIJKE_VERORDENING"`
	PublicationDate string             `json:"publication_date" jsonschema:"required"`
	ValidFrom       string             `json:"valid_from" jsonschema:"required"`
	ValidUntil      string             `json:"valid_until,omitempty"`
	BWBID           string             `json:"bwb_id,omitempty"`
	GemeenteCode    string             `json:"gemeente_code,omitempty"`
	Articles        []lawArticleSchema `json:"articles" jsonschema:"required"`
}

type lawArticleSchema struct {
	Number          string         `json:"number" jsonschema:"required"`
	Text            string         `json:"text" jsonschema:"required"`
	URL             string         `json:"url,omitempty"`
	MachineReadable map[string]any `json:"machine_readable,omitempty"`
}

// schemaState lazily compiles the reflected schema once, the same
// sync.Once pattern the plugin-manifest schema in the reference pack uses.
type schemaState struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

var globalSchema = &schemaState{}

// GenerateSchema renders the reflected JSON Schema document as bytes, for
// publication alongside the law files that reference it.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true, RequiredFromJSONSchemaTags: true}
	schema := r.Reflect(&lawDocument{})
	schema.ID = jsonschema.ID(lawSchemaID)
	schema.Title = "RegelRecht law document"
	schema.Description = "Envelope schema for a versioned law file; the machine_readable execution tree is validated structurally, not by this schema."
	return json.MarshalIndent(schema, "", "  ")
}

func compiledSchema() (*jschema.Schema, error) {
	globalSchema.once.Do(func() {
		globalSchema.schema, globalSchema.err = compileSchema()
	})
	return globalSchema.schema, globalSchema.err
}

func compileSchema() (*jschema.Schema, error) {
	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	c := jschema.NewCompiler()
	if err := c.AddResource("law.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("law.schema.json")
}

// validateAgainstSchema checks yamlData (whatever yaml.Unmarshal produced
// for a law document decoded into `any`) against the published envelope
// schema, returning every violation message found.
func validateAgainstSchema(yamlData any) []string {
	sch, err := compiledSchema()
	if err != nil {
		return []string{"internal error compiling schema: " + err.Error()}
	}
	if err := sch.Validate(toJSONTypes(yamlData)); err != nil {
		return []string{err.Error()}
	}
	return nil
}

// toJSONTypes normalises a yaml.v3-decoded value into the map[string]any /
// []any / string / float64 / bool / nil shape jsonschema validation expects.
// yaml.v3 already produces map[string]any for mappings, but date-looking
// scalars (publication_date, valid_from, ...) decode as time.Time rather
// than string; round-tripping those through JSON turns them back into the
// RFC3339 strings the schema's string-typed fields expect.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = toJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = toJSONTypes(v)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if json.Unmarshal(b, &result) == nil {
				return result
			}
		}
		return val
	}
}
