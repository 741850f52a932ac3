// This file loads model schema manifests. A manifest declares, per model, the
// externally visible field set the sync layer is expected to deliver:
//
//	model "Player" {
//	  description = "Live player state."
//
//	  field "Health"   { type = uint }
//	  field "Position" { type = tuple(float, float) }
//
//	  field "Buffs" {
//	    type    = list(string)
//	    default = []
//	  }
//	}

package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/fsutil"
	"github.com/vk/modelbind/internal/wire"
)

// manifestRoot is the top-level HCL structure: one or more 'model' blocks.
type manifestRoot struct {
	Models []*hclModel `hcl:"model,block"`
}

// hclModel is a single 'model' block, decoded in two passes so field type
// expressions stay expressions instead of being evaluated.
type hclModel struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type hclModelBody struct {
	Description string      `hcl:"description,optional"`
	Fields      []*hclField `hcl:"field,block"`
}

type hclField struct {
	Key     string         `hcl:"key,label"`
	Type    hcl.Expression `hcl:"type"`
	Default hcl.Expression `hcl:"default,optional"`
}

// LoadManifests walks a directory recursively and loads every .hcl model
// manifest it finds. Duplicate model declarations across files are rejected.
func (r *Registry) LoadManifests(ctx context.Context, manifestsPath string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading model manifests...", "path", manifestsPath)

	filePaths, err := fsutil.FindFilesByExtension(manifestsPath, ".hcl")
	if err != nil {
		logger.Error("Failed to walk manifests directory", "path", manifestsPath, "error", err)
		return err
	}
	if len(filePaths) == 0 {
		logger.Warn("No .hcl manifest files found in path", "path", manifestsPath)
		return nil
	}

	parser := hclparse.NewParser()
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse manifest %s: %w", filePath, diags)
		}
		if err := r.loadManifestFile(ctx, hclFile, filePath); err != nil {
			return err
		}
		logger.Debug("Loaded model declarations from manifest.", "file", filePath)
	}

	logger.Info("Model manifests loaded.", "declarations", len(r.decls), "files", len(filePaths))
	return nil
}

func (r *Registry) loadManifestFile(ctx context.Context, hclFile *hcl.File, filePath string) error {
	root := &manifestRoot{}
	if diags := gohcl.DecodeBody(hclFile.Body, nil, root); diags.HasErrors() {
		return fmt.Errorf("failed to decode manifest %s: %w", filePath, diags)
	}

	for _, m := range root.Models {
		decl, err := translateModel(ctx, m, filePath)
		if err != nil {
			return fmt.Errorf("in manifest %s: %w", filePath, err)
		}

		r.mu.Lock()
		if r.sealed {
			r.mu.Unlock()
			return fmt.Errorf("registry: cannot load manifest %s after seal", filePath)
		}
		if prior, exists := r.decls[decl.Name]; exists {
			r.mu.Unlock()
			return fmt.Errorf("model %q declared in both %s and %s", decl.Name, prior.SourceFile, filePath)
		}
		r.decls[decl.Name] = decl
		r.mu.Unlock()
	}
	return nil
}

func translateModel(ctx context.Context, m *hclModel, filePath string) (*Declaration, error) {
	body := &hclModelBody{}
	if diags := gohcl.DecodeBody(m.Body, nil, body); diags.HasErrors() {
		return nil, fmt.Errorf("in model %q: %w", m.Name, diags)
	}

	decl := &Declaration{
		Name:        m.Name,
		Description: body.Description,
		SourceFile:  filePath,
	}
	for _, f := range body.Fields {
		fieldDecl, err := translateField(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("in model %q, field %q: %w", m.Name, f.Key, err)
		}
		decl.Fields = append(decl.Fields, fieldDecl)
	}
	return decl, nil
}

func translateField(ctx context.Context, f *hclField) (*FieldDecl, error) {
	sh, err := typeExprToShape(ctx, f.Type)
	if err != nil {
		return nil, err
	}

	decl := &FieldDecl{Key: f.Key, Shape: sh}
	if exprDefined(f.Default) {
		val, diags := f.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value: %w", diags)
		}
		if !val.IsNull() {
			node, err := wire.FromCty(val)
			if err != nil {
				return nil, fmt.Errorf("invalid default value: %w", err)
			}
			decl.Default = node
		}
	}
	return decl, nil
}

// exprDefined reports whether an optional attribute was actually present in
// the source. The decoder fills omitted attributes with zero-width expression
// placeholders, so a nil check alone is not enough.
func exprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}
