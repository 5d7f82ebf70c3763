package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scraped_item.schema.json
var scrapedItemSchemaJSON string

//go:embed app_config.schema.json
var appConfigSchemaJSON string

// ScrapedItem is the connector output accepted by ingestion.
type ScrapedItem struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Date      string   `json:"date,omitempty"`
	Text      string   `json:"text,omitempty"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

type compiledSchema struct {
	name   string
	source string
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	scrapedItemSchema = &compiledSchema{name: "scraped_item.schema.json", source: scrapedItemSchemaJSON}
	appConfigSchema   = &compiledSchema{name: "app_config.schema.json", source: appConfigSchemaJSON}
)

// ValidateScrapedItem checks one connector payload against the embedded schema.
func ValidateScrapedItem(payload json.RawMessage) (*ScrapedItem, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := scrapedItemSchema.load()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item ScrapedItem
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := validateSemantics(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ValidateAppConfigYAML converts the YAML document to JSON values and validates it.
func ValidateAppConfigYAML(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse app config YAML: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("app config is empty")
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert app config to JSON: %w", err)
	}
	value, err := decodeStrictJSON(asJSON)
	if err != nil {
		return fmt.Errorf("decode app config JSON: %w", err)
	}

	schema, err := appConfigSchema.load()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("app config schema validation failed: %w", err)
	}
	return nil
}

func (c *compiledSchema) load() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(c.name, strings.NewReader(c.source)); err != nil {
			c.err = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile(c.name)
		if err != nil {
			c.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		c.schema = schema
	})

	if c.err != nil {
		return nil, c.err
	}
	if c.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return c.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(item *ScrapedItem) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if err := validateURI("url", item.URL); err != nil {
		return err
	}
	for i, mediaURL := range item.MediaURLs {
		if err := validateURI(fmt.Sprintf("media_urls[%d]", i), mediaURL); err != nil {
			return err
		}
	}
	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must be absolute", fieldName)
	}
	return nil
}
