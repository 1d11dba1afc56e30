// cmd/tools/question-registry/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hireflow/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	renderCmd := flag.NewFlagSet("render", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, renderCmd} {
		fs.StringVar(&registryPath, "path", "configs/questions.json", "Path to question catalog file")
	}

	keyAdd := addCmd.String("key", "", "Question key (e.g., nonCompete)")
	text := addCmd.String("text", "", "Question text; {company} is replaced at render time")
	required := addCmd.Bool("required", false, "Whether an answer is required to submit")

	keyUpdate := updateCmd.String("key", "", "Question key to update")
	field := updateCmd.String("field", "", "Field to update (text, required)")
	value := updateCmd.String("value", "", "New value for the field")

	company := renderCmd.String("company", "Example Corp", "Company name to render into question text")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *keyAdd == "" || *text == "" {
			fmt.Println("Error: key and text are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		if err := addQuestion(registry.Question{Key: *keyAdd, Text: *text, Required: *required}); err != nil {
			fmt.Printf("Error adding question: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added question: %s\n", *keyAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *keyUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: key, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateQuestion(*keyUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating question: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated question %s, field %s to %s\n", *keyUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		if len(reg.Questions) == 0 {
			fmt.Println("Catalog validation failed: catalog contains no questions")
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed (%d questions, %d required).\n", len(reg.Questions), len(reg.RequiredKeys()))

	case "render":
		renderCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Error loading catalog: %v\n", err)
			os.Exit(1)
		}
		for _, q := range reg.Render(*company) {
			marker := " "
			if q.Required {
				marker = "*"
			}
			fmt.Printf("%s %-32s %s\n", marker, q.Key, q.Text)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func addQuestion(q registry.Question) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		reg = &registry.QuestionCatalog{Version: "1.0.0"}
	}

	if _, exists := reg.Lookup(q.Key); exists {
		return fmt.Errorf("question with key %s already exists", q.Key)
	}

	reg.Questions = append(reg.Questions, q)
	return saveRegistry(reg, registryPath)
}

func updateQuestion(key, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	found := false
	for i := range reg.Questions {
		if reg.Questions[i].Key != key {
			continue
		}
		found = true
		switch field {
		case "text":
			reg.Questions[i].Text = value
		case "required":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid required value: %w", err)
			}
			reg.Questions[i].Required = b
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("question with key %s not found", key)
	}
	return saveRegistry(reg, registryPath)
}

func saveRegistry(reg *registry.QuestionCatalog, path string) error {
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func help() {
	fmt.Println("Usage: question-registry <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  add       Add a screening question")
	fmt.Println("  update    Update a question's text or required flag")
	fmt.Println("  validate  Validate the catalog file")
	fmt.Println("  render    Print the questions as shown for a company")
	fmt.Println("  help      Show this help message")
	fmt.Println("All commands accept -path (default configs/questions.json).")
}
