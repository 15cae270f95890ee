package workflow

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// InputResolver resolves a block's inputs from upstream block states, env
// vars, workflow vars, and loop/parallel iteration context (spec.md §4.5).
// This is an interface-only contract per spec.md §1 (Core, in scope) / §4.5
// ("Exact templating rules are the implementer's choice"); DefaultInputResolver
// is the concrete implementation this engine ships.
type InputResolver interface {
	ResolveInputs(ctx context.Context, block Block, execCtx *ExecutionContext) (map[string]any, error)
}

// referencePattern matches "<blockName.field.path>" style references
// embedded in config strings, including bracket array indices such as
// "<results.items[0].id>".
var referencePattern = regexp.MustCompile(`<([A-Za-z_][\w.\[\]]*)>`)

// DefaultInputResolver resolves references against a fixed WorkflowGraph,
// using block Metadata["name"] (falling back to id) as the friendly name
// referenced in "<name.field>" templates.
type DefaultInputResolver struct {
	Graph        *WorkflowGraph
	StartBlockID string
}

// NewDefaultInputResolver builds a resolver bound to graph, treating
// startBlockID as the block addressed by the "start" alias.
func NewDefaultInputResolver(graph *WorkflowGraph, startBlockID string) *DefaultInputResolver {
	return &DefaultInputResolver{Graph: graph, StartBlockID: startBlockID}
}

// ResolveInputs implements InputResolver by walking block.Config's
// "inputs" map (or the whole Config if no "inputs" key is present) and
// substituting every embedded reference.
func (r *DefaultInputResolver) ResolveInputs(_ context.Context, block Block, execCtx *ExecutionContext) (map[string]any, error) {
	source, ok := block.Config["inputs"].(map[string]any)
	if !ok {
		source = block.Config
	}

	resolved := make(map[string]any, len(source))
	for key, raw := range source {
		resolved[key] = r.resolveValue(raw, execCtx)
	}
	return resolved, nil
}

func (r *DefaultInputResolver) resolveValue(raw any, execCtx *ExecutionContext) any {
	switch v := raw.(type) {
	case string:
		return r.resolveString(v, execCtx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = r.resolveValue(val, execCtx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = r.resolveValue(val, execCtx)
		}
		return out
	default:
		return raw
	}
}

// resolveString substitutes references inside a string value. A string
// that is *entirely* one reference ("<start.input>") resolves to the
// referenced value with its original structure intact (object/array stay
// structured); references embedded in a larger string are stringified in
// place, matching the "preserve type fidelity" requirement of spec.md §4.5
// without silently flattening whole-value references to text.
func (r *DefaultInputResolver) resolveString(s string, execCtx *ExecutionContext) any {
	if m := referencePattern.FindStringSubmatch(s); m != nil && m[0] == s {
		value, ok := r.resolveReference(m[1], execCtx)
		if !ok {
			return nil
		}
		return value
	}

	return referencePattern.ReplaceAllStringFunc(s, func(match string) string {
		ref := referencePattern.FindStringSubmatch(match)[1]
		value, ok := r.resolveReference(ref, execCtx)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// resolveReference resolves one "name.path" reference (path may be empty)
// against block states, env/workflow variables, or loop current-item
// context.
func (r *DefaultInputResolver) resolveReference(ref string, execCtx *ExecutionContext) (any, bool) {
	head, rest, _ := strings.Cut(ref, ".")

	switch head {
	case "start":
		return r.lookupBlockField(r.StartBlockID, rest, execCtx)
	case "env":
		return lookupPath(execCtx.EnvironmentVariables, rest)
	case "workflow", "variables":
		return lookupPath(execCtx.WorkflowVariables, rest)
	}

	if rest == "currentItem" {
		if loopID, ok := r.loopIDByName(head); ok {
			item, exists := execCtx.LoopItems[loopID]
			return item, exists
		}
	}

	blockID := head
	if id, ok := r.blockIDByName(head); ok {
		blockID = id
	}
	return r.lookupBlockField(blockID, rest, execCtx)
}

// lookupBlockField resolves path against the output of blockID, preferring
// the virtual instance of blockID belonging to the currently-executing
// parallel iteration when one exists (spec.md §4.5).
func (r *DefaultInputResolver) lookupBlockField(blockID, path string, execCtx *ExecutionContext) (any, bool) {
	effectiveID := blockID
	if execCtx.CurrentVirtualBlockID != "" {
		if _, parallelID, iteration, ok := ParseVirtualID(execCtx.CurrentVirtualBlockID); ok {
			candidate := GenerateVirtualID(blockID, parallelID, iteration)
			if _, exists := execCtx.BlockStates[candidate]; exists {
				effectiveID = candidate
			}
		}
	}

	state, ok := execCtx.BlockStates[effectiveID]
	if !ok {
		state, ok = execCtx.BlockStates[blockID]
		if !ok {
			return nil, false
		}
	}
	if path == "" {
		return state.Output.Data, true
	}
	return lookupPath(state.Output.Data, path)
}

// lookupPath resolves a dotted/bracketed gjson path against an in-memory
// map, round-tripping through JSON so object/array structure is preserved
// in the returned value.
func lookupPath(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(b, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// buildResolvedDocument merges a flat set of dotted paths into a single
// structured document using sjson, used by handlers (e.g. the response
// handler) that need to project several resolved references into one
// nested output shape rather than a flat map.
func buildResolvedDocument(paths map[string]any) (map[string]any, error) {
	doc := []byte("{}")
	var err error
	for path, value := range paths {
		doc, err = sjson.SetBytes(doc, path, value)
		if err != nil {
			return nil, err
		}
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DefaultInputResolver) blockIDByName(name string) (string, bool) {
	if r.Graph == nil {
		return "", false
	}
	for _, b := range r.Graph.Blocks {
		if b.ID == name {
			return b.ID, true
		}
		if n, ok := b.Metadata["name"].(string); ok && n == name {
			return b.ID, true
		}
	}
	return "", false
}

func (r *DefaultInputResolver) loopIDByName(name string) (string, bool) {
	if r.Graph == nil {
		return "", false
	}
	if _, ok := r.Graph.Loops[name]; ok {
		return name, true
	}
	for id := range r.Graph.Loops {
		if b, ok := r.Graph.BlockByID(id); ok {
			if n, ok := b.Metadata["name"].(string); ok && n == name {
				return id, true
			}
		}
	}
	return "", false
}
