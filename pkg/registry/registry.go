package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed questions.json
var defaultCatalog []byte

// LoadRegistry reads a catalog from path, or the built-in catalog when path
// is empty.
func LoadRegistry(path string) (*QuestionCatalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	var reg QuestionCatalog
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Default returns the built-in catalog.
func Default() *QuestionCatalog {
	reg, err := LoadRegistry("")
	if err != nil {
		panic(fmt.Sprintf("registry: embedded catalog: %v", err))
	}
	return reg
}

func (c *QuestionCatalog) validate() error {
	seen := make(map[string]bool, len(c.Questions))
	for _, q := range c.Questions {
		if q.Key == "" {
			return fmt.Errorf("question with empty key")
		}
		if seen[q.Key] {
			return fmt.Errorf("duplicate question key %q", q.Key)
		}
		seen[q.Key] = true
	}
	return nil
}

// Lookup returns the question with key.
func (c *QuestionCatalog) Lookup(key string) (Question, bool) {
	for _, q := range c.Questions {
		if q.Key == key {
			return q, true
		}
	}
	return Question{}, false
}

// RequiredKeys lists required question keys in catalog order.
func (c *QuestionCatalog) RequiredKeys() []string {
	var keys []string
	for _, q := range c.Questions {
		if q.Required {
			keys = append(keys, q.Key)
		}
	}
	return keys
}

// Render substitutes company into every question text.
func (c *QuestionCatalog) Render(company string) []Question {
	out := make([]Question, len(c.Questions))
	for i, q := range c.Questions {
		q.Text = strings.ReplaceAll(q.Text, "{company}", company)
		out[i] = q
	}
	return out
}
