package params

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/launchgrid/internal/cleanup"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const navTemplate = `
amcl:
  ros__parameters:
    use_sim_time: true
    base_frame_id: "base_footprint"
    laser_max_range: 100.0
bt_navigator:
  ros__parameters:
    use_sim_time: true
    default_nav_to_pose_bt_xml: "$(find-pkg-share nav2_bt_navigator)/behavior_trees/nav.xml"
map_server:
  ros__parameters:
    yaml_filename: ""
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nav2_params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestMaterialize_RewritesLeafKeysEverywhere(t *testing.T) {
	// --- Arrange ---
	m := NewMaterializer(t.TempDir(), cleanup.NewRegistry())
	src := Source{
		Template: writeTemplate(t, navTemplate),
		Rewrites: []Rewrite{
			{Key: "use_sim_time", Value: "false"},
			{Key: "yaml_filename", Value: "/maps/depot.yaml"},
		},
		ConvertTypes: true,
	}

	// --- Act ---
	path, err := m.Materialize(context.Background(), src)

	// --- Assert ---
	require.NoError(t, err)
	want := map[string]any{
		"amcl": map[string]any{"ros__parameters": map[string]any{
			"use_sim_time":    false,
			"base_frame_id":   "base_footprint",
			"laser_max_range": 100.0,
		}},
		"bt_navigator": map[string]any{"ros__parameters": map[string]any{
			"use_sim_time":               false,
			"default_nav_to_pose_bt_xml": "$(find-pkg-share nav2_bt_navigator)/behavior_trees/nav.xml",
		}},
		"map_server": map[string]any{"ros__parameters": map[string]any{
			"yaml_filename": "/maps/depot.yaml",
		}},
	}
	if diff := cmp.Diff(want, decode(t, path)); diff != "" {
		t.Errorf("rendered parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_ConvertTypes(t *testing.T) {
	// --- Arrange ---
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template:     writeTemplate(t, "a: \"1\"\nb: \"true\"\nc: \"$(var map)\"\nd: [\"2.5\", \"nan\"]\n"),
		ConvertTypes: true,
	}

	// --- Act ---
	path, err := m.Materialize(context.Background(), src)

	// --- Assert ---
	require.NoError(t, err)
	want := map[string]any{"a": 1, "b": true, "c": "$(var map)", "d": []any{2.5, "nan"}}
	if diff := cmp.Diff(want, decode(t, path)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_ConvertsRewriteValues(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template:     writeTemplate(t, "a: x\nb: y\n"),
		Rewrites:     []Rewrite{{Key: "a", Value: "1"}, {Key: "b", Value: "True"}},
		ConvertTypes: true,
	}

	path, err := m.Materialize(context.Background(), src)

	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": true}, decode(t, path))
}

func TestMaterialize_WithoutConvertKeepsStringsAndSkipsAbsentKeys(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template: writeTemplate(t, "a: x\n"),
		Rewrites: []Rewrite{{Key: "a", Value: "1"}, {Key: "missing.key", Value: "v"}},
	}

	path, err := m.Materialize(context.Background(), src)

	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "1"}, decode(t, path))
}

func TestMaterialize_CreatesAbsentDottedPathWhenConverting(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template:     writeTemplate(t, "controller_server:\n  ros__parameters:\n    frequency: 20.0\n"),
		Rewrites:     []Rewrite{{Key: "controller_server.ros__parameters.odom_topic", Value: "/odom"}},
		ConvertTypes: true,
	}

	path, err := m.Materialize(context.Background(), src)

	require.NoError(t, err)
	want := map[string]any{"controller_server": map[string]any{"ros__parameters": map[string]any{
		"frequency":  20.0,
		"odom_topic": "/odom",
	}}}
	if diff := cmp.Diff(want, decode(t, path)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_DottedPathOnlyMatchesThatPath(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template: writeTemplate(t, navTemplate),
		Rewrites: []Rewrite{{Key: "amcl.ros__parameters.use_sim_time", Value: "false"}},
	}

	path, err := m.Materialize(context.Background(), src)
	require.NoError(t, err)

	got := decode(t, path)
	amcl := got["amcl"].(map[string]any)["ros__parameters"].(map[string]any)
	bt := got["bt_navigator"].(map[string]any)["ros__parameters"].(map[string]any)
	require.Equal(t, "false", amcl["use_sim_time"])
	require.Equal(t, true, bt["use_sim_time"])
}

func TestMaterialize_RootKey(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)
	src := Source{
		Template: writeTemplate(t, "amcl:\n  ros__parameters:\n    alpha1: 0.2\n"),
		RootKey:  "robot1",
	}

	path, err := m.Materialize(context.Background(), src)

	require.NoError(t, err)
	want := map[string]any{"robot1": map[string]any{"amcl": map[string]any{"ros__parameters": map[string]any{"alpha1": 0.2}}}}
	if diff := cmp.Diff(want, decode(t, path)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_SameInputsParseToSameTree(t *testing.T) {
	template := writeTemplate(t, navTemplate)
	src := Source{Template: template, Rewrites: []Rewrite{{Key: "use_sim_time", Value: "false"}}, ConvertTypes: true}

	first, err := NewMaterializer(t.TempDir(), nil).Materialize(context.Background(), src)
	require.NoError(t, err)
	second, err := NewMaterializer(t.TempDir(), nil).Materialize(context.Background(), src)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	if diff := cmp.Diff(decode(t, first), decode(t, second)); diff != "" {
		t.Errorf("renders differ (-first +second):\n%s", diff)
	}
}

func TestMaterialize_IsIdempotentWithinARun(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	reg := cleanup.NewRegistry()
	m := NewMaterializer(dir, reg)
	template := writeTemplate(t, navTemplate)
	src := Source{Template: template, Rewrites: []Rewrite{{Key: "use_sim_time", Value: "true"}}}

	// --- Act ---
	first, err := m.Materialize(context.Background(), src)
	require.NoError(t, err)
	second, err := m.Materialize(context.Background(), src)
	require.NoError(t, err)
	other, err := m.Materialize(context.Background(), Source{Template: template, RootKey: "ns"})
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
	require.Equal(t, 2, reg.Len())

	original, err := os.ReadFile(template)
	require.NoError(t, err)
	require.Equal(t, navTemplate, string(original))

	require.NoError(t, reg.Run(context.Background()))
	_, err = os.Stat(first)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMaterialize_Errors(t *testing.T) {
	m := NewMaterializer(t.TempDir(), nil)

	_, err := m.Materialize(context.Background(), Source{Template: filepath.Join(t.TempDir(), "nope.yaml")})
	var nf *TemplateNotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = m.Materialize(context.Background(), Source{Template: writeTemplate(t, "a: [unterminated\n")})
	var mal *MalformedTemplateError
	require.ErrorAs(t, err, &mal)

	_, err = m.Materialize(context.Background(), Source{Template: writeTemplate(t, "- just\n- a list\n")})
	require.ErrorAs(t, err, &mal)
}
