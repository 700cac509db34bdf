package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/launchgrid/internal/model"
	"github.com/specialistvlad/launchgrid/internal/subst"
	"github.com/specialistvlad/launchgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// mapLoader serves descriptions by absolute path. Register writes an empty
// placeholder file so the include's existence check passes.
type mapLoader map[string]*model.Description

func (l mapLoader) Load(_ context.Context, path string) (*model.Description, error) {
	d, ok := l[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return d, nil
}

func (l mapLoader) register(t *testing.T, desc *model.Description) {
	t.Helper()
	require.NoError(t, os.WriteFile(desc.FilePath, nil, 0o644))
	l[desc.FilePath] = desc
}

func describe(t *testing.T, path string, args []model.ArgumentDecl, actions ...model.Action) *model.Description {
	t.Helper()
	d, err := model.NewDescription(path, args, actions)
	require.NoError(t, err)
	return d
}

func named(name string, cond subst.Expr) model.Base {
	return model.Base{Name: name, Condition: cond}
}

func setVar(name string, value subst.Expr) *model.SetVariable {
	return &model.SetVariable{Base: named(name, nil), Variable: name, Value: value}
}

func shProcess(label, script string, cond subst.Expr) *model.StartProcess {
	return &model.StartProcess{
		Base:    named(label, cond),
		Process: model.ProcessTemplate{Command: []subst.Expr{subst.Lit("/bin/sh"), subst.Lit("-c"), subst.Lit(script)}},
	}
}

func echo(label string, value subst.Expr) *model.StartProcess {
	return &model.StartProcess{
		Base:    named(label, nil),
		Process: model.ProcessTemplate{Command: []subst.Expr{subst.Lit("echo"), value}},
	}
}

func testOptions(t *testing.T, dryRun bool) (Options, *testutil.SafeBuffer) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	return Options{
		Stdout:         out,
		WorkDir:        t.TempDir(),
		LogDir:         t.TempDir(),
		Environ:        []string{"PATH=" + os.Getenv("PATH"), "HOME=/home/nav"},
		DryRun:         dryRun,
		SigintTimeout:  200 * time.Millisecond,
		SigtermTimeout: 200 * time.Millisecond,
	}, out
}

func workDirEntries(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}
