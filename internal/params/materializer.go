package params

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/launchgrid/internal/cleanup"
	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Materializer renders parameter templates into Dir. Every file it creates
// is registered for removal with Cleanup.
type Materializer struct {
	Dir     string
	Cleanup *cleanup.Registry

	mu    sync.Mutex
	cache map[string]string
}

// NewMaterializer returns a Materializer writing into dir.
func NewMaterializer(dir string, reg *cleanup.Registry) *Materializer {
	return &Materializer{
		Dir:     dir,
		Cleanup: reg,
		cache:   make(map[string]string),
	}
}

// Materialize renders src and returns the path of the rendered file.
func (m *Materializer) Materialize(ctx context.Context, src Source) (string, error) {
	logger := ctxlog.FromContext(ctx).With("template", src.Template)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := src.cacheKey()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache == nil {
		m.cache = make(map[string]string)
	}
	if path, ok := m.cache[key]; ok {
		logger.Debug("Reusing rendered parameter file.", "path", path)
		return path, nil
	}

	rendered, err := Render(src)
	if err != nil {
		return "", err
	}

	path, err := m.write(src, rendered)
	if err != nil {
		return "", err
	}
	m.cache[key] = path
	logger.Debug("Rendered parameter file.", "path", path, "rewrites", len(src.Rewrites))
	return path, nil
}

func (m *Materializer) write(src Source, data []byte) (string, error) {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create parameter directory %s: %w", m.Dir, err)
	}
	f, err := os.CreateTemp(m.Dir, filePattern(src))
	if err != nil {
		return "", fmt.Errorf("failed to create parameter file: %w", err)
	}
	if m.Cleanup != nil {
		m.Cleanup.RegisterRemove(f.Name())
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write parameter file %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close parameter file %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func filePattern(src Source) string {
	name := src.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src.Template), filepath.Ext(src.Template))
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '*' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, name)
	return name + "-*.yaml"
}

// Render reads the template and returns the rewritten document.
func Render(src Source) ([]byte, error) {
	data, err := os.ReadFile(src.Template)
	if err != nil {
		return nil, &TemplateNotFoundError{Path: src.Template, Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedTemplateError{Path: src.Template, Err: err}
	}

	var root *yaml.Node
	switch {
	case doc.Kind == 0:
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	case doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 && doc.Content[0].Kind == yaml.MappingNode:
		root = doc.Content[0]
	default:
		return nil, &MalformedTemplateError{Path: src.Template, Err: errors.New("top level is not a mapping")}
	}

	root = Apply(root, src)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode parameters from %s: %w", src.Template, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode parameters from %s: %w", src.Template, err)
	}
	return buf.Bytes(), nil
}
