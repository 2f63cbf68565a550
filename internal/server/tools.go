package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func outputPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Optional file to write the result to. The format follows the extension. When omitted the result is returned as base64 PNG",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, color mode and size on disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "augment_list",
			Description: "Describe the augmentation pipeline: its transformations with their weights and selection probabilities, the probability of applying any augmentation, and whether dispatch is seeded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "augment_image",
			Description: "Dispatch an image through the augmentation pipeline. Returns the decision (whether an augmentation was applied, which one, and its parameters when enabled) and the resulting image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Dataset index of the image. Required when the pipeline is seeded; the same index always yields the same result",
						"minimum":     0,
					},
					"output_path": outputPathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "augment_preview",
			Description: "Apply one named transformation of the pipeline to an image, bypassing the probability gate and weighted selection. Returns the sampled parameters and the resulting image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Transformation name as listed by augment_list",
					},
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Index used to derive the parameter stream. Default 0",
						"default":     0,
						"minimum":     0,
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Seed for the parameter stream. Defaults to the pipeline seed, or 0 when the pipeline is unseeded",
					},
					"output_path": outputPathProperty(),
				},
				"required": []string{"path", "name"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
