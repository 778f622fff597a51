package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// writeValue encodes v as indented JSON or YAML
func writeValue(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format '%s' (supported: json, yaml)", format)
	}
}

// writeJSONLines writes one compact JSON value per line
func writeJSONLines[T any](w io.Writer, values []T) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// printError writes err with its category and returns exit code 1
func printError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: [%s] %v\n", utils.CategorizeError(err), err)
	return 1
}
