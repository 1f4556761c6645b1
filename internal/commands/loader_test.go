package commands_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
)

// staticSource serves a fixed artifact list.
type staticSource struct {
	artifacts []commands.Artifact
	err       error
}

func (s *staticSource) Artifacts(string) ([]commands.Artifact, error) {
	return s.artifacts, s.err
}

func artifact(name string, cmd commands.Command) commands.Artifact {
	return commands.Artifact{Name: name, Open: func() (commands.Command, error) { return cmd, nil }}
}

func newTestLoader(t *testing.T, source commands.Source, store *commands.Store, logger *zap.Logger) *commands.Loader {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}

	return commands.NewLoader(commands.LoaderParams{
		Source: source,
		Store:  store,
		Config: &config.Config{Commands: config.CommandsConfig{Dir: "commands"}},
		Logger: logger,
	})
}

func TestLoader_PartialFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	source := &staticSource{artifacts: []commands.Artifact{
		artifact("a-ping", commands.NewPingCommand()),
		{Name: "b-broken", Open: func() (commands.Command, error) { return nil, errors.New("boom") }},
		artifact("c-echo", commands.NewEchoCommand()),
		{Name: "d-panics", Open: func() (commands.Command, error) { panic("bad constructor") }},
		artifact("e-bad-name", commands.Func(commands.NewDefinition("Bad Name", "invalid"), nil)),
		artifact("f-order", commands.Func(commands.NewDefinition("order", "bad order",
			commands.StringArg("opt", "optional").AsOptional(),
			commands.StringArg("req", "required"),
		), nil)),
		{Name: "g-nil", Open: func() (commands.Command, error) { return nil, nil }},
		artifact("h-roll", commands.NewRollCommand()),
	}}
	loader := newTestLoader(t, source, commands.NewStore(), zap.New(core))

	reg, report, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)

	assert.Equal(t, []string{"ping", "echo", "roll"}, reg.Names())
	assert.Equal(t, []string{"ping", "echo", "roll"}, report.Loaded)

	failed := make(map[string]error, len(report.Failed))
	for _, f := range report.Failed {
		failed[f.Artifact] = f
	}
	require.Len(t, failed, 5)
	assert.Contains(t, failed, "b-broken")
	assert.Contains(t, failed, "d-panics")
	assert.ErrorIs(t, failed["e-bad-name"], commands.ErrInvalidCommand)
	assert.ErrorIs(t, failed["f-order"], commands.ErrArgumentOrder)
	assert.Contains(t, failed, "g-nil")

	var loadErr *commands.LoadError
	require.ErrorAs(t, failed["b-broken"], &loadErr)
	assert.Equal(t, "b-broken", loadErr.Artifact)

	assert.Equal(t, 5, logs.FilterMessage("Failed to load command").Len())
}

func TestLoader_NonFiniteChoiceDoesNotPoisonRegistry(t *testing.T) {
	source := &staticSource{artifacts: []commands.Artifact{
		artifact("a-ping", commands.NewPingCommand()),
		artifact("b-ratio", commands.Func(commands.NewDefinition("ratio", "pick a ratio",
			commands.NumberArg("r", "ratio").WithChoices(commands.Choice{Name: "inf", Value: math.Inf(1)})), nil)),
	}}
	loader := newTestLoader(t, source, commands.NewStore(), nil)

	reg, report, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)

	assert.Equal(t, []string{"ping"}, reg.Names())
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], commands.ErrChoiceType)

	_, err = commands.CompileAll(reg)
	assert.NoError(t, err)
}

func TestLoader_DuplicateNames(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	source := &staticSource{artifacts: []commands.Artifact{
		artifact("a.yaml", commands.Func(commands.NewDefinition("ping", "first"), nil)),
		artifact("b.yaml", commands.NewEchoCommand()),
		artifact("c.yaml", commands.Func(commands.NewDefinition("ping", "second"), nil)),
	}}
	loader := newTestLoader(t, source, commands.NewStore(), zap.New(core))

	reg, report, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)

	assert.Equal(t, []string{"ping", "echo"}, reg.Names())
	cmd, _ := reg.Get("ping")
	assert.Equal(t, "second", cmd.Description())
	assert.Equal(t, []string{"ping"}, report.Duplicates)

	warnings := logs.FilterMessage("Duplicate command name, the later artifact wins").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "a.yaml", warnings[0].ContextMap()["previous"])
	assert.Equal(t, "c.yaml", warnings[0].ContextMap()["artifact"])
}

func TestLoader_EmptySource(t *testing.T) {
	loader := newTestLoader(t, &staticSource{}, commands.NewStore(), nil)

	reg, report, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
	assert.Empty(t, report.Loaded)
	assert.Empty(t, report.Failed)
}

func TestLoader_SkipsDisabled(t *testing.T) {
	source := &staticSource{artifacts: []commands.Artifact{
		artifact("ping", commands.NewPingCommand()),
		{Name: "off", Open: func() (commands.Command, error) { return nil, commands.ErrDisabled }},
	}}
	loader := newTestLoader(t, source, commands.NewStore(), nil)

	reg, report, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"off"}, report.Skipped)
	assert.Empty(t, report.Failed)
}

func TestLoader_AttemptsEveryArtifact(t *testing.T) {
	var opened atomic.Int32
	var artifacts []commands.Artifact
	for i := range 50 {
		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		artifacts = append(artifacts, commands.Artifact{Name: name, Open: func() (commands.Command, error) {
			opened.Add(1)

			return commands.Func(commands.NewDefinition("cmd-"+name, "generated"), nil), nil
		}})
	}
	loader := newTestLoader(t, &staticSource{artifacts: artifacts}, commands.NewStore(), nil)

	reg, _, err := loader.Load(context.Background(), "commands")
	require.NoError(t, err)
	assert.Equal(t, int32(50), opened.Load())
	assert.Equal(t, 50, reg.Len())
}

func TestLoader_CancelledContext(t *testing.T) {
	loader := newTestLoader(t, &staticSource{artifacts: []commands.Artifact{
		artifact("ping", commands.NewPingCommand()),
	}}, commands.NewStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := loader.Load(ctx, "commands")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_Reload(t *testing.T) {
	t.Run("Publishes", func(t *testing.T) {
		store := commands.NewStore()
		loader := newTestLoader(t, commands.NewFactorySource(builtinFactories()), store, nil)

		report, err := loader.Reload(context.Background())
		require.NoError(t, err)
		assert.Len(t, report.Loaded, 3)
		assert.Equal(t, []string{"echo", "ping", "reload"}, store.Load().Names())
	})

	t.Run("Idempotent", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"commands/ping.yaml":   "command: ping\n",
			"commands/echo.yaml":   "command: echo\n",
			"commands/reload.toml": "command = \"reload\"\n",
		})
		store := commands.NewStore()
		loader := newTestLoader(t, commands.NewManifestSource(fs, builtinFactories()), store, nil)

		_, err := loader.Reload(context.Background())
		require.NoError(t, err)
		first := store.Load()
		firstPayload, err := commands.CompileAll(first)
		require.NoError(t, err)

		_, err = loader.Reload(context.Background())
		require.NoError(t, err)
		second := store.Load()
		secondPayload, err := commands.CompileAll(second)
		require.NoError(t, err)

		assert.NotSame(t, first, second)
		assert.Equal(t, first.Names(), second.Names())
		assert.Equal(t, firstPayload, secondPayload)
	})

	t.Run("KeepsPreviousOnFailure", func(t *testing.T) {
		store := commands.NewStore()
		previous := commands.NewRegistry(commands.NewPingCommand())
		store.Swap(previous)
		loader := newTestLoader(t, &staticSource{err: errors.New("disk gone")}, store, nil)

		report, err := loader.Reload(context.Background())
		assert.Error(t, err)
		assert.Nil(t, report)
		assert.Same(t, previous, store.Load())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     commands.Command
		wantErr error
	}{
		{"Valid", commands.NewEchoCommand(), nil},
		{"UpperCaseName", commands.Func(commands.NewDefinition("Ping", "d"), nil), commands.ErrInvalidCommand},
		{"LongName", commands.Func(commands.NewDefinition("abcdefghijklmnopqrstuvwxyz0123456", "d"), nil), commands.ErrInvalidCommand},
		{"NoDescription", commands.Func(commands.NewDefinition("ping", ""), nil), commands.ErrInvalidCommand},
		{"BadArgumentName", commands.Func(commands.NewDefinition("ping", "d", commands.StringArg("Two Words", "d")), nil), commands.ErrInvalidArgument},
		{"UnknownCapability", commands.Func(commands.NewDefinition("ping", "d").
			WithPermission(&commands.Policy{Capabilities: []string{"FLY"}}), nil), commands.ErrUnknownCapability},
		{"ChoicesOnUser", commands.Func(commands.NewDefinition("ping", "d",
			commands.UserArg("who", "d").WithChoices(commands.Choice{Name: "x", Value: "1"})), nil), commands.ErrChoiceNotAllowed},
		{"InfiniteNumberChoice", commands.Func(commands.NewDefinition("ratio", "d",
			commands.NumberArg("r", "d").WithChoices(commands.Choice{Name: "inf", Value: math.Inf(1)})), nil), commands.ErrChoiceType},
		{"TooManyArguments", commands.Func(commands.NewDefinition("many", "d", manyArguments(26)...), nil), commands.ErrInvalidCommand},
		{"MaxArguments", commands.Func(commands.NewDefinition("many", "d", manyArguments(25)...), nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := commands.Validate(tt.cmd)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func manyArguments(n int) []commands.Argument {
	args := make([]commands.Argument, n)
	for i := range args {
		args[i] = commands.StringArg(fmt.Sprintf("arg%d", i), "d").AsOptional()
	}

	return args
}
