package server

import (
	"encoding/json"
	"fmt"
	"image"

	dimaging "github.com/disintegration/imaging"
	"k8s.io/klog/v2"

	"github.com/TimofeyKaliakin/cyrill/internal/augment"
	"github.com/TimofeyKaliakin/cyrill/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "augment_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		klog.V(1).Infof("mcp: %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "augment_list":
		return s.handleAugmentList(args)
	case "augment_image":
		return s.handleAugmentImage(args)
	case "augment_preview":
		return s.handleAugmentPreview(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating absent arguments as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// TransformationInfo describes one pipeline member.
type TransformationInfo struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability"`
}

// PipelineInfo is the augment_list result.
type PipelineInfo struct {
	PAug            float64              `json:"p_aug"`
	Seeded          bool                 `json:"seeded"`
	Seed            *int64               `json:"seed,omitempty"`
	ReturnParams    bool                 `json:"return_params"`
	Transformations []TransformationInfo `json:"transformations"`
	Kinds           []string             `json:"available_kinds,omitempty"`
}

func (s *Server) handleAugmentList(_ json.RawMessage) (interface{}, error) {
	cfg := s.pipeline.Config()
	probs := s.pipeline.Probabilities()
	info := &PipelineInfo{
		PAug:         cfg.PAug(),
		Seeded:       s.pipeline.Seeded(),
		ReturnParams: cfg.ReturnParams(),
		Kinds:        s.kinds,
	}
	if seed, ok := s.pipeline.Seed(); ok {
		info.Seed = &seed
	}
	for _, name := range cfg.Names() {
		info.Transformations = append(info.Transformations, TransformationInfo{
			Name:        name,
			Weight:      cfg.Weight(name),
			Probability: probs[name],
		})
	}
	return info, nil
}

type augmentImageArgs struct {
	Path       string `json:"path"`
	Index      *int   `json:"index"`
	OutputPath string `json:"output_path"`
}

// AugmentResult is the augment_image and augment_preview result.
type AugmentResult struct {
	Augmentation *augment.Decision     `json:"augmentation,omitempty"`
	Name         string                `json:"name,omitempty"`
	Params       augment.Params        `json:"params,omitempty"`
	OutputPath   string                `json:"output_path,omitempty"`
	Image        *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleAugmentImage(args json.RawMessage) (interface{}, error) {
	var a augmentImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Index != nil && *a.Index < 0 {
		return nil, fmt.Errorf("index must be non-negative, got %d", *a.Index)
	}
	src, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	var (
		out image.Image
		dec augment.Decision
	)
	if a.Index != nil {
		out, dec, err = s.pipeline.DispatchAt(src, *a.Index)
	} else {
		out, dec, err = s.pipeline.Dispatch(src)
	}
	if err != nil {
		return nil, err
	}

	res := &AugmentResult{Augmentation: &dec}
	if err := s.deliver(res, out, a.OutputPath); err != nil {
		return nil, err
	}
	return res, nil
}

type augmentPreviewArgs struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Index      int    `json:"index"`
	Seed       *int64 `json:"seed"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleAugmentPreview(args json.RawMessage) (interface{}, error) {
	var a augmentPreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" || a.Name == "" {
		return nil, fmt.Errorf("path and name are required")
	}
	if a.Index < 0 {
		return nil, fmt.Errorf("index must be non-negative, got %d", a.Index)
	}
	t, ok := s.pipeline.Config().Transformation(a.Name)
	if !ok {
		return nil, fmt.Errorf("pipeline has no transformation %q (have %v)", a.Name, s.pipeline.Config().Names())
	}
	src, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	seed, _ := s.pipeline.Seed()
	if a.Seed != nil {
		seed = *a.Seed
	}
	out, params, err := augment.Run(t, src, augment.NewSource(seed, a.Index))
	if err != nil {
		return nil, err
	}

	res := &AugmentResult{Name: a.Name, Params: params}
	if err := s.deliver(res, out, a.OutputPath); err != nil {
		return nil, err
	}
	return res, nil
}

// deliver writes img to outputPath, or embeds it in res as base64 PNG. A
// written file is evicted from the cache so later loads see the new pixels.
func (s *Server) deliver(res *AugmentResult, img image.Image, outputPath string) error {
	if outputPath != "" {
		if err := dimaging.Save(img, outputPath); err != nil {
			return fmt.Errorf("saving %s: %w", outputPath, err)
		}
		s.cache.Evict(outputPath)
		res.OutputPath = outputPath
		return nil
	}
	enc, err := imaging.Encode(img)
	if err != nil {
		return err
	}
	res.Image = enc
	return nil
}
