package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jvollmer/go-flow/engine"
	"github.com/spf13/cobra"
)

func flagQueryOptions(c *cobra.Command, options *engine.QueryOptions) {
	c.Flags().IntVar(&options.Limit, "limit", 100, "")
	c.Flags().IntVar(&options.Offset, "offset", 0, "")
}

// mapVariables parses flag values into a variable mapping. Values are decoded
// as JSON - a value that is not valid JSON is used as a plain string. An empty
// value maps to nil, which deletes the variable when merged.
func mapVariables(valueMap map[string]string) (map[string]any, error) {
	if len(valueMap) == 0 {
		return nil, nil
	}

	variables := make(map[string]any, len(valueMap))
	for name, value := range valueMap {
		if name == "" {
			return nil, fmt.Errorf("variable name must not be empty")
		}
		if value == "" || value == "null" {
			variables[name] = nil
			continue
		}

		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err != nil {
			variables[name] = value
		} else {
			variables[name] = decoded
		}
	}

	return variables, nil
}
