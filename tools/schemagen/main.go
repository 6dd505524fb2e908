// Command schemagen writes JSON schemas for gitorigin's machine-readable
// outputs: the resolver's Creation and the MCP tool results.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/gitorigin/pkg/history"
	"github.com/Sumatoshi-tech/gitorigin/pkg/mcp"
	"github.com/Sumatoshi-tech/gitorigin/pkg/schema"
)

func main() {
	var outputDir string

	flag.StringVar(&outputDir, "o", "docs/schemas", "Output directory for schemas")
	flag.Parse()

	err := os.MkdirAll(outputDir, 0o755)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	creation := schema.Generate("Creation", "Where a file entered its repository", history.Creation{})
	output := schema.Generate("Creation date", "Result of the "+mcp.ToolNameCreationDate+" tool", mcp.CreationDateOutput{})

	schemas := map[string]*schema.Schema{
		"creation":       creation,
		"creation_date":  output,
		"creation_dates":   schema.Array("Creation dates", "Result of the "+mcp.ToolNameCreationDates+" tool", output),
	}

	for name, sch := range schemas {
		err = writeSchema(outputDir, name, sch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing schema for %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Generated schema for %s\n", name)
	}
}

func writeSchema(dir, name string, sch *schema.Schema) error {
	data, err := json.MarshalIndent(sch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644)
}
