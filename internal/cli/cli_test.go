// © 2024 The moviebob authors. All rights reserved.
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE.md file.

package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"moviebob/internal/testutil"
)

type testApp struct {
	name string
	ran  bool
	args []string
	err  error
}

func (a *testApp) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.name, "name", "", "Name.")
}

func (a *testApp) Run(ctx context.Context) error {
	a.ran = true
	a.args = GetEnv(ctx).Args
	return a.err
}

func testEnv(args ...string) *Env {
	return &Env{
		Args:   args,
		Getenv: func(string) string { return "" },
		Stdin:  strings.NewReader(""),
		Stdout: new(bytes.Buffer),
		Stderr: new(bytes.Buffer),
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	app := new(testApp)
	if err := Run(context.Background(), app, testEnv("-name", "test", "rest")); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, app.ran, true)
	testutil.AssertEqual(t, app.name, "test")
	testutil.AssertEqual(t, app.args, []string{"rest"})
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	app := new(testApp)
	err := Run(context.Background(), app, testEnv("-version"))
	if !errors.Is(err, ErrExitVersion) {
		t.Fatalf("expected ErrExitVersion, got %v", err)
	}
	testutil.AssertEqual(t, app.ran, false)
}

func TestRunFlagError(t *testing.T) {
	t.Parallel()

	app := new(testApp)
	err := Run(context.Background(), app, testEnv("-no-such-flag"))
	if err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
	// Flag errors are already printed by the flag package, so they must not
	// be printed a second time.
	testutil.AssertEqual(t, isPrintableError(err), false)
}

func TestAppErrorPropagates(t *testing.T) {
	t.Parallel()

	app := &testApp{err: errors.New("boom")}
	err := Run(context.Background(), app, testEnv())
	testutil.AssertEqual(t, err.Error(), "boom")
	testutil.AssertEqual(t, isPrintableError(err), true)
}

func TestGetEnvFallsBackToOS(t *testing.T) {
	t.Parallel()

	env := GetEnv(context.Background())
	if env == nil || env.Getenv == nil {
		t.Fatal("expected an OS-backed environment")
	}
}
