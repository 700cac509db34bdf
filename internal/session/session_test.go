package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"github.com/specialistvlad/launchgrid/internal/testutil"
	"github.com/specialistvlad/launchgrid/internal/tools"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRun_FalseGuardProducesNothing(t *testing.T) {
	// --- Arrange ---
	opts, out := testOptions(t, false)
	rendered := 0
	opts.Runner = tools.FuncRunner(func(context.Context, []string, string, ...string) (tools.Result, error) {
		rendered++
		return tools.Result{Stdout: []byte("<sdf/>")}, nil
	})
	desc := describe(t, filepath.Join(t.TempDir(), "sim.hcl"),
		[]model.ArgumentDecl{{Name: "use_simulator", Default: subst.Lit("False")}},
		shProcess("gazebo", "echo gazebo", subst.Ref("use_simulator")),
		&model.EphemeralArtifact{
			Base:     named("world", subst.Ref("use_simulator")),
			Variable: "world",
			Suffix:   subst.Lit(".sdf"),
			Command:  []subst.Expr{subst.Lit("xacro"), subst.Ref("self.path")},
		},
		&model.Group{Base: named("sim", subst.Ref("use_simulator")), Scoped: true, Actions: []model.Action{
			shProcess("bridge", "echo bridge", nil),
		}},
	)
	s := New(desc, opts)

	// --- Act ---
	status, err := s.Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	require.Empty(t, s.Plan().Processes)
	require.Empty(t, s.Plan().Artifacts)
	require.Equal(t, []string{"process gazebo", "ephemeral world", "group sim"}, s.Plan().Skipped)
	require.Zero(t, rendered)
	require.Empty(t, out.String())
	require.Empty(t, workDirEntries(t, opts.WorkDir))
}

func TestRun_GroupScopesVariables(t *testing.T) {
	// --- Arrange ---
	opts, _ := testOptions(t, true)
	desc := describe(t, "bringup.hcl", nil,
		setVar("robot", subst.Lit("tb3")),
		&model.Group{Base: named("scoped", nil), Scoped: true, Actions: []model.Action{
			setVar("robot", subst.Lit("tb4")),
			setVar("inner", subst.Lit("x")),
			echo("in_group", subst.Concat{Parts: []subst.Expr{subst.Ref("robot"), subst.Lit("/"), subst.Ref("inner")}}),
		}},
		echo("after_scoped", subst.Concat{Parts: []subst.Expr{
			subst.Ref("robot"), subst.Lit("/"), subst.Var{Name: "inner", Default: subst.Lit("unset")},
		}}),
		&model.Group{Base: named("forwarding", nil), Scoped: false, Actions: []model.Action{
			setVar("leak", subst.Lit("yes")),
		}},
		echo("after_forwarding", subst.Ref("leak")),
	)
	s := New(desc, opts)

	// --- Act ---
	status, err := s.Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	procs := s.Plan().Processes
	require.Len(t, procs, 3)
	require.Equal(t, []string{"tb4/x"}, procs[0].Args)
	require.Equal(t, []string{"tb3/unset"}, procs[1].Args)
	require.Equal(t, []string{"yes"}, procs[2].Args)
}

func TestRun_ArgumentDefaults(t *testing.T) {
	args := []model.ArgumentDecl{
		{Name: "world", Default: subst.Lit("depot")},
		{Name: "map", Default: subst.PathJoin{Parts: []subst.Expr{subst.Lit("/maps"), subst.Concat{Parts: []subst.Expr{subst.Ref("world"), subst.Lit(".yaml")}}}}},
	}

	t.Run("unset argument takes its default", func(t *testing.T) {
		opts, _ := testOptions(t, true)
		s := New(describe(t, "tb4.hcl", args), opts)

		_, err := s.Run(context.Background(), nil)

		require.NoError(t, err)
		require.Equal(t, []Binding{{Name: "world", Value: "depot"}, {Name: "map", Value: "/maps/depot.yaml"}}, s.Plan().Arguments)
	})

	t.Run("override wins and feeds later defaults", func(t *testing.T) {
		opts, _ := testOptions(t, true)
		s := New(describe(t, "tb4.hcl", args), opts)

		_, err := s.Run(context.Background(), map[string]string{"world": "warehouse"})

		require.NoError(t, err)
		require.Equal(t, []Binding{{Name: "world", Value: "warehouse"}, {Name: "map", Value: "/maps/warehouse.yaml"}}, s.Plan().Arguments)
	})

	t.Run("required argument without value fails", func(t *testing.T) {
		opts, _ := testOptions(t, true)
		s := New(describe(t, "tb4.hcl", []model.ArgumentDecl{{Name: "map"}}), opts)

		status, err := s.Run(context.Background(), nil)

		require.Equal(t, ExitFailure, status)
		var uv *subst.UnresolvedVariableError
		require.ErrorAs(t, err, &uv)
		require.Equal(t, "argument", uv.Kind)
		require.Equal(t, "map", uv.Name)
	})
}

func TestRun_ArgumentsAreImmutable(t *testing.T) {
	opts, _ := testOptions(t, true)
	desc := describe(t, "bringup.hcl",
		[]model.ArgumentDecl{{Name: "namespace", Default: subst.Lit("")}},
		setVar("namespace", subst.Lit("robot2")),
	)

	status, err := New(desc, opts).Run(context.Background(), nil)

	require.Equal(t, ExitFailure, status)
	var imm *ImmutableArgumentError
	require.ErrorAs(t, err, &imm)
	require.Equal(t, "namespace", imm.Name)
}

func TestRun_IncludeIsolation(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	loader := mapLoader{}
	parentPath := filepath.Join(dir, "bringup.hcl")
	childPath := filepath.Join(dir, "navigation.hcl")

	loader.register(t, describe(t, childPath,
		[]model.ArgumentDecl{{Name: "params_file"}},
		echo("probe", subst.Concat{Parts: []subst.Expr{
			subst.Var{Name: "namespace", Default: subst.Lit("<none>")}, subst.Lit(" "), subst.Ref("params_file"),
		}}),
		&model.StartProcess{Base: named("controller_server", nil), Process: model.ProcessTemplate{
			IsNode: true, Executable: subst.Lit("controller_server"),
		}},
		setVar("leaked", subst.Lit("yes")),
	))
	parent := describe(t, parentPath,
		[]model.ArgumentDecl{
			{Name: "namespace", Default: subst.Lit("robot1")},
			{Name: "params_file", Default: subst.Lit("/opt/nav2_params.yaml")},
		},
		&model.SetParameter{Base: named("use_sim_time", nil), Parameter: "use_sim_time", Value: subst.Lit("true")},
		&model.IncludeSession{
			Base:      model.Base{Name: "navigation", FSInfo: model.NewFSInfo(parentPath, 12)},
			Path:      subst.Lit("navigation.hcl"),
			Arguments: []model.Binding{{Name: "params_file", Value: subst.Ref("params_file")}},
		},
		echo("after", subst.Var{Name: "leaked", Default: subst.Lit("no")}),
	)
	opts, _ := testOptions(t, true)
	opts.Loader = loader
	s := New(parent, opts)

	// --- Act ---
	status, err := s.Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	procs := s.Plan().Processes
	require.Len(t, procs, 3)
	require.Equal(t, []string{"<none> /opt/nav2_params.yaml"}, procs[0].Args)
	require.Empty(t, procs[1].Parameters)
	require.Equal(t, []string{"no"}, procs[2].Args)
	require.Equal(t, []string{childPath}, s.Plan().Includes)
}

func TestRun_IncludeErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		opts, _ := testOptions(t, true)
		opts.Loader = mapLoader{}
		desc := describe(t, filepath.Join(dir, "bringup.hcl"), nil,
			&model.IncludeSession{Base: named("rviz", nil), Path: subst.Lit(filepath.Join(dir, "rviz.hcl"))},
		)

		status, err := New(desc, opts).Run(context.Background(), nil)

		require.Equal(t, ExitFailure, status)
		var nf *SessionNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, filepath.Join(dir, "rviz.hcl"), nf.Path)
	})

	t.Run("cycle", func(t *testing.T) {
		dir := t.TempDir()
		a, b := filepath.Join(dir, "a.hcl"), filepath.Join(dir, "b.hcl")
		loader := mapLoader{}
		loader.register(t, describe(t, a, nil, &model.IncludeSession{Base: named("b", nil), Path: subst.Lit(b)}))
		loader.register(t, describe(t, b, nil, &model.IncludeSession{Base: named("a", nil), Path: subst.Lit(a)}))
		opts, _ := testOptions(t, true)
		opts.Loader = loader

		status, err := New(loader[a], opts).Run(context.Background(), nil)

		require.Equal(t, ExitFailure, status)
		var cycle *IncludeCycleError
		require.ErrorAs(t, err, &cycle)
		require.Equal(t, []string{a, b, a}, cycle.Chain)
	})
}

func TestRun_InvalidGuard(t *testing.T) {
	opts, _ := testOptions(t, true)
	desc := describe(t, "rviz.hcl",
		[]model.ArgumentDecl{{Name: "use_rviz", Default: subst.Lit("sometimes")}},
		echo("rviz", subst.Lit("rviz2")),
	)
	desc.Actions[0].(*model.StartProcess).Condition = subst.Ref("use_rviz")

	status, err := New(desc, opts).Run(context.Background(), nil)

	require.Equal(t, ExitFailure, status)
	var ig *subst.InvalidGuardError
	require.ErrorAs(t, err, &ig)
	require.Equal(t, "sometimes", ig.Value)
}

func TestRun_InterruptDuringResolutionCleansUpOnce(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hookRuns := 0
	opts, _ := testOptions(t, false)
	opts.Runner = tools.FuncRunner(func(ctx context.Context, _ []string, name string, _ ...string) (tools.Result, error) {
		switch name {
		case "xacro":
			return tools.Result{Stdout: []byte("<sdf/>")}, nil
		case "hook":
			hookRuns++
			return tools.Result{}, nil
		case "probe":
			cancel()
			return tools.Result{ExitCode: 1}, ctx.Err()
		}
		return tools.Result{ExitCode: 127}, errors.New("unexpected command " + name)
	})
	desc := describe(t, "tb4_simulation.hcl", nil,
		setVar("world_name", subst.Lit("depot")),
		&model.EphemeralArtifact{
			Base:     named("world", nil),
			Variable: "world",
			Suffix:   subst.Lit(".sdf"),
			Command:  []subst.Expr{subst.Lit("xacro"), subst.Ref("self.path")},
		},
		&model.RegisterShutdownHook{Base: named("notify", nil), Command: []subst.Expr{subst.Lit("hook")}},
		setVar("probe", subst.Command{Argv: []subst.Expr{subst.Lit("probe")}}),
		shProcess("gazebo", "sleep 30", nil),
		shProcess("bridge", "sleep 30", nil),
		shProcess("spawner", "sleep 30", nil),
	)
	s := New(desc, opts)

	// --- Act ---
	status, err := s.Run(ctx, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	require.Len(t, s.Plan().Artifacts, 1)
	_, statErr := os.Stat(s.Plan().Artifacts[0])
	require.True(t, errors.Is(statErr, os.ErrNotExist))
	require.Equal(t, 1, hookRuns)
	require.Empty(t, s.Plan().Processes)
	require.Empty(t, s.Processes())
}

func TestRun_NodeDescription(t *testing.T) {
	// --- Arrange ---
	template := filepath.Join(t.TempDir(), "nav2_params.yaml")
	require.NoError(t, os.WriteFile(template, []byte("controller_server:\n  ros__parameters:\n    use_sim_time: false\n"), 0o644))
	logs := &testutil.SafeBuffer{}
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	desc := describe(t, "navigation.hcl",
		[]model.ArgumentDecl{
			{Name: "namespace", Default: subst.Lit("robot1")},
			{Name: "use_sim_time", Default: subst.Lit("true")},
		},
		&model.SetParameter{Base: named("use_sim_time", nil), Parameter: "use_sim_time", Value: subst.Ref("use_sim_time")},
		&model.MaterializeParameters{Base: named("configured_params", nil), Variable: "configured_params", Source: model.ParameterSource{
			Name:         "nav2",
			Template:     subst.Lit(template),
			Rewrites:     []model.Binding{{Name: "use_sim_time", Value: subst.Ref("use_sim_time")}},
			ConvertTypes: true,
		}},
		&model.StartProcess{Base: named("controller_server", nil), Process: model.ProcessTemplate{
			IsNode:       true,
			Executable:   subst.Lit("controller_server"),
			NodeName:     subst.Lit("controller_server"),
			Namespace:    subst.Ref("namespace"),
			ParamFiles:   []subst.Expr{subst.Ref("configured_params")},
			Parameters:   []model.Binding{{Name: "use_sim_time", Value: subst.Lit("false")}},
			Remaps:       []model.Remap{{From: subst.Lit("/tf"), To: subst.Lit("tf")}},
			Respawn:      subst.Lit("true"),
			RespawnDelay: subst.Lit("2.0"),
		}},
		&model.LifecycleManager{
			Base:      named("lifecycle_manager_navigation", nil),
			Package:   subst.Lit(""),
			NodeNames: []subst.Expr{subst.Lit("controller_server"), subst.Lit("planner_server")},
			Namespace: subst.Ref("namespace"),
		},
	)
	opts, _ := testOptions(t, true)
	s := New(desc, opts)

	// --- Act ---
	_, err := s.Run(ctx, nil)

	// --- Assert ---
	require.NoError(t, err)
	procs := s.Plan().Processes
	require.Len(t, procs, 2)

	controller := procs[0]
	require.Len(t, controller.ParamFiles, 1)
	require.True(t, strings.HasPrefix(controller.ParamFiles[0], opts.WorkDir))
	require.Equal(t, []string{
		"controller_server", "--ros-args",
		"-r", "__node:=controller_server",
		"-r", "__ns:=/robot1",
		"--params-file", controller.ParamFiles[0],
		"-p", "use_sim_time:=false",
		"-r", "/tf:=tf",
	}, controller.Argv())
	require.True(t, controller.Respawn)
	require.Equal(t, 2*time.Second, controller.RespawnDelay)

	require.Equal(t, []string{
		"lifecycle_manager", "--ros-args",
		"-r", "__node:=lifecycle_manager_navigation",
		"-r", "__ns:=/robot1",
		"-p", "use_sim_time:=true",
		"-p", `node_names:=["controller_server", "planner_server"]`,
		"-p", "autostart:=true",
	}, procs[1].Argv())

	require.Contains(t, logs.String(), "Managed node was not started before its lifecycle manager.")
	require.Contains(t, logs.String(), "node=planner_server")
	require.NotContains(t, logs.String(), "node=controller_server manager")
}

func TestRun_AppendEnv(t *testing.T) {
	opts, _ := testOptions(t, true)
	desc := describe(t, "sim.hcl", nil,
		&model.AppendEnv{Base: named("models", nil), Variable: "GZ_SIM_RESOURCE_PATH", Value: subst.Lit("/models")},
		&model.AppendEnv{Base: named("worlds", nil), Variable: "GZ_SIM_RESOURCE_PATH", Value: subst.Lit("/worlds")},
		echo("probe", subst.EnvVar{Name: "GZ_SIM_RESOURCE_PATH"}),
	)
	s := New(desc, opts)

	_, err := s.Run(context.Background(), nil)

	require.NoError(t, err)
	probe := s.Plan().Processes[0]
	require.Equal(t, []string{"/models:/worlds"}, probe.Args)
	require.Contains(t, probe.Env, "GZ_SIM_RESOURCE_PATH=/models:/worlds")
	require.Contains(t, probe.Env, "HOME=/home/nav")
}

func TestRun_EphemeralCommandSeesAppendedEnv(t *testing.T) {
	// --- Arrange ---
	var got []string
	opts, _ := testOptions(t, false)
	opts.Runner = tools.FuncRunner(func(_ context.Context, env []string, name string, _ ...string) (tools.Result, error) {
		if name == "xacro" {
			got = append([]string(nil), env...)
		}
		return tools.Result{Stdout: []byte("<sdf/>")}, nil
	})
	desc := describe(t, "sim.hcl", nil,
		&model.AppendEnv{Base: named("worlds", nil), Variable: "GZ_SIM_RESOURCE_PATH", Value: subst.Lit("/worlds")},
		&model.EphemeralArtifact{
			Base:     named("world", nil),
			Variable: "world",
			Suffix:   subst.Lit(".sdf"),
			Command:  []subst.Expr{subst.Lit("xacro"), subst.Ref("self.path")},
		},
	)
	s := New(desc, opts)

	// --- Act ---
	status, err := s.Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	require.Contains(t, got, "GZ_SIM_RESOURCE_PATH=/worlds")
	require.Contains(t, got, "HOME=/home/nav")
}

func TestRun_ShutdownHooksRunInReverseOrder(t *testing.T) {
	// --- Arrange ---
	var ran []string
	opts, _ := testOptions(t, false)
	opts.Runner = tools.FuncRunner(func(_ context.Context, _ []string, name string, args ...string) (tools.Result, error) {
		ran = append(ran, name+" "+strings.Join(args, " "))
		return tools.Result{}, nil
	})
	scratch := filepath.Join(t.TempDir(), "scratch.txt")
	require.NoError(t, os.WriteFile(scratch, []byte("x"), 0o644))
	desc := describe(t, "hooks.hcl", nil,
		&model.RegisterShutdownHook{Base: named("first", nil), Command: []subst.Expr{subst.Lit("notify"), subst.Lit("first")}},
		&model.RegisterShutdownHook{Base: named("scratch", nil), Remove: subst.Lit(scratch)},
		&model.RegisterShutdownHook{Base: named("second", nil), Command: []subst.Expr{subst.Lit("notify"), subst.Lit("second")}},
	)

	// --- Act ---
	status, err := New(desc, opts).Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, ExitOK, status)
	require.Equal(t, []string{"notify second", "notify first"}, ran)
	require.NoFileExists(t, scratch)
}

func TestRun_SupervisesProcesses(t *testing.T) {
	t.Run("clean exit", func(t *testing.T) {
		opts, out := testOptions(t, false)
		desc := describe(t, "talker.hcl", nil, shProcess("talker", "echo hello", nil))

		status, err := New(desc, opts).Run(context.Background(), nil)

		require.NoError(t, err)
		require.Equal(t, ExitOK, status)
		require.Contains(t, out.String(), "[talker-1] hello")
	})

	t.Run("abnormal exit", func(t *testing.T) {
		opts, _ := testOptions(t, false)
		desc := describe(t, "crash.hcl", nil, shProcess("crasher", "exit 3", nil))

		status, err := New(desc, opts).Run(context.Background(), nil)

		require.NoError(t, err)
		require.Equal(t, ExitFailure, status)
	})

	t.Run("required exit ends the session", func(t *testing.T) {
		opts, _ := testOptions(t, false)
		sim := shProcess("simulator", "sleep 0.1", nil)
		sim.Process.Required = subst.Lit("true")
		desc := describe(t, "sim.hcl", nil, shProcess("rviz", "sleep 30", nil), sim)
		s := New(desc, opts)

		start := time.Now()
		status, err := s.Run(context.Background(), nil)

		require.NoError(t, err)
		require.Equal(t, ExitOK, status)
		require.Less(t, time.Since(start), 5*time.Second)
		for _, p := range s.Processes() {
			if p.Name == "rviz" {
				require.Equal(t, "stopped", p.State)
			}
		}
	})

	t.Run("interrupt", func(t *testing.T) {
		opts, _ := testOptions(t, false)
		desc := describe(t, "sleep.hcl", nil, shProcess("sleeper", "sleep 30", nil))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		status, err := New(desc, opts).Run(ctx, nil)

		require.NoError(t, err)
		require.Equal(t, ExitOK, status)
	})
}

func TestRun_TracesEveryAction(t *testing.T) {
	// --- Arrange ---
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	opts, _ := testOptions(t, true)
	opts.Tracer = tp.Tracer("test")
	desc := describe(t, "traced.hcl", nil,
		setVar("robot", subst.Lit("tb4")),
		&model.Group{Base: named("sim", nil), Scoped: true, Actions: []model.Action{
			echo("gazebo", subst.Ref("robot")),
		}},
		shProcess("rviz", "rviz2", subst.Lit("false")),
	)

	// --- Act ---
	_, err := New(desc, opts).Run(context.Background(), nil)

	// --- Assert ---
	require.NoError(t, err)
	var names []string
	var skipped []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
		for _, kv := range s.Attributes() {
			if kv.Key == attribute.Key("launchgrid.action.skipped") && kv.Value.AsBool() {
				skipped = append(skipped, s.Name())
			}
		}
	}
	require.Equal(t, []string{"set_variable", "process", "group", "process", "session.run"}, names)
	require.Equal(t, []string{"process"}, skipped)
}
