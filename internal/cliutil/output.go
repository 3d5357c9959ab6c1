// Package cliutil holds the output plumbing shared by all commands:
// format flags, table rendering, and jq-style result filtering.
package cliutil

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// AddOutputFlags registers the output flags shared by every command that
// prints resource listings.
func AddOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format. One of: table, json, yaml")
	cmd.Flags().String("query", "", "jq expression applied to the JSON output")
}

// RenderOutput writes a command's result to its stdout. The table is used
// for the default format; v is the payload behind the json and yaml formats
// and the --query expression.
func RenderOutput(cmd *cobra.Command, table *Table, v interface{}) error {
	format, _ := cmd.Flags().GetString("output")
	query, _ := cmd.Flags().GetString("query")

	if query != "" {
		return renderQuery(cmd, v, query)
	}

	switch format {
	case "table":
		fmt.Fprint(cmd.OutOrStdout(), renderTable(table))
		return nil
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func renderQuery(cmd *cobra.Command, v interface{}, query string) error {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("failed to parse query %q: %w", query, err)
	}

	// gojq only accepts plain JSON values, so round-trip the payload first.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	iter := parsed.Run(doc)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("query failed: %w", err)
		}
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal query result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	}

	return nil
}
