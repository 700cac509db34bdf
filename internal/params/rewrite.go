package params

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rewrite replaces the value of Key. A key without dots matches that key at
// any depth; a dotted key matches only the full path from the document root.
type Rewrite struct {
	Key   string
	Value string
}

// Source is a fully resolved parameter template.
type Source struct {
	Name         string
	Template     string
	RootKey      string
	Rewrites     []Rewrite
	ConvertTypes bool
}

func (s Source) cacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q|%q|%t", s.Template, s.RootKey, s.ConvertTypes)
	for _, rw := range s.Rewrites {
		fmt.Fprintf(&b, "|%q=%q", rw.Key, rw.Value)
	}
	return b.String()
}

// Apply runs the rewrites and root key nesting over a parsed document. The
// root must be a mapping node.
func Apply(root *yaml.Node, src Source) *yaml.Node {
	applied := make([]bool, len(src.Rewrites))
	substitute(root, nil, src, applied)

	if src.ConvertTypes {
		for i, rw := range src.Rewrites {
			if !applied[i] {
				insert(root, strings.Split(rw.Key, "."), scalar(rw.Value, true))
			}
		}
		convertValues(root)
	}

	if src.RootKey != "" {
		root = &yaml.Node{
			Kind:    yaml.MappingNode,
			Tag:     "!!map",
			Content: []*yaml.Node{keyNode(src.RootKey), root},
		}
	}
	return root
}

func substitute(node *yaml.Node, path []string, src Source, applied []bool) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		childPath := append(path[:len(path):len(path)], key)
		dotted := strings.Join(childPath, ".")

		if idx := match(src.Rewrites, key, dotted, val.Kind == yaml.MappingNode); idx >= 0 {
			node.Content[i+1] = scalar(src.Rewrites[idx].Value, src.ConvertTypes)
			applied[idx] = true
			continue
		}
		substitute(val, childPath, src, applied)
	}
}

// match returns the index of the last rewrite matching the key, preferring
// an exact dotted path. Bare key rewrites never replace a whole mapping.
func match(rewrites []Rewrite, key, dotted string, isMapping bool) int {
	found := -1
	for i, rw := range rewrites {
		if rw.Key == dotted {
			return i
		}
		if !isMapping && !strings.Contains(rw.Key, ".") && rw.Key == key {
			found = i
		}
	}
	return found
}

func insert(node *yaml.Node, path []string, value *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			node.Content[i+1] = value
			return
		}
		child := node.Content[i+1]
		if child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content[i+1] = child
		}
		insert(child, path[1:], value)
		return
	}

	if len(path) == 1 {
		node.Content = append(node.Content, keyNode(path[0]), value)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	node.Content = append(node.Content, keyNode(path[0]), child)
	insert(child, path[1:], value)
}

// convertValues retags string scalars that read as numbers or booleans.
// Mapping keys are left alone.
func convertValues(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			convertValues(node.Content[i])
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			convertValues(item)
		}
	case yaml.ScalarNode:
		if node.Tag == "!!str" {
			converted := scalar(node.Value, true)
			node.Tag, node.Value = converted.Tag, converted.Value
			if node.Tag != "!!str" {
				node.Style = 0
			}
		}
	}
}

func keyNode(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
}

// scalar builds a value node. With convert set, integers, floats and
// booleans get their native tag; everything else stays a string.
func scalar(v string, convert bool) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	if !convert {
		return n
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		n.Tag = "!!int"
		return n
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil && strings.ContainsAny(v, "0123456789") {
		n.Tag = "!!float"
		return n
	}
	switch strings.ToLower(v) {
	case "true", "false":
		n.Tag = "!!bool"
		n.Value = strings.ToLower(v)
	}
	return n
}
