package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArgv_Node(t *testing.T) {
	d := ProcessDescriptor{
		Name:       "amcl",
		Executable: "/opt/ros/lib/nav2_amcl/amcl",
		Args:       []string{"--verbose"},
		Node:       true,
		NodeName:   "amcl",
		Namespace:  "robot1/",
		ParamFiles: []string{"/tmp/params-1.yaml"},
		Parameters: []Param{{Name: "use_sim_time", Value: "true"}},
		Remaps:     []Remap{{From: "/tf", To: "tf"}, {From: "/tf_static", To: "tf_static"}},
	}

	require.Equal(t, []string{
		"/opt/ros/lib/nav2_amcl/amcl", "--verbose",
		"--ros-args",
		"-r", "__node:=amcl",
		"-r", "__ns:=/robot1",
		"--params-file", "/tmp/params-1.yaml",
		"-p", "use_sim_time:=true",
		"-r", "/tf:=tf",
		"-r", "/tf_static:=tf_static",
	}, d.Argv())
}

func TestArgv_PlainProcessHasNoNodeArguments(t *testing.T) {
	d := ProcessDescriptor{Name: "gz", Executable: "gz", Args: []string{"sim", "-r", "world.sdf"}, Namespace: "ignored"}
	require.Equal(t, []string{"gz", "sim", "-r", "world.sdf"}, d.Argv())
}

func TestValidate(t *testing.T) {
	require.NoError(t, ProcessDescriptor{Name: "a", Executable: "true"}.Validate())
	require.Error(t, ProcessDescriptor{Executable: "true"}.Validate())
	require.Error(t, ProcessDescriptor{Name: "a"}.Validate())
	require.Error(t, ProcessDescriptor{Name: "a", Executable: "true", Output: "syslog"}.Validate())
	require.Error(t, ProcessDescriptor{Name: "a", Executable: "true", RespawnDelay: -time.Second}.Validate())
}

func TestNormalizeNamespace(t *testing.T) {
	require.Equal(t, "", NormalizeNamespace(""))
	require.Equal(t, "", NormalizeNamespace("/"))
	require.Equal(t, "/robot1", NormalizeNamespace("robot1"))
	require.Equal(t, "/a/b", NormalizeNamespace("/a/b/"))
}
