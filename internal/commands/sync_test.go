package commands_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
	"github.com/Raikerian/disbot/pkg/test"
)

var testCreds = config.Credentials{ApplicationID: 4242, BotToken: "token"}

func retries(n int) *int { return &n }

func syncConfig() *config.Config {
	return &config.Config{
		Discord: config.DiscordConfig{BotToken: "token", ApplicationID: "4242"},
		Registrar: config.RegistrarConfig{
			Timeout:       time.Second,
			MaxRetries:    retries(3),
			Concurrency:   2,
			SyncCacheSize: 8,
		},
	}
}

func newTestSyncer(t *testing.T, registrar commands.Registrar, cfg *config.Config) *commands.Syncer {
	t.Helper()

	syncer, err := commands.NewSyncer(commands.SyncerParams{
		Registrar:  registrar,
		Config:     cfg,
		Logger:     zaptest.NewLogger(t),
		NewBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	require.NoError(t, err)

	return syncer
}

func testRegistry() *commands.Registry {
	return commands.NewRegistry(commands.NewPingCommand(), commands.NewEchoCommand())
}

func TestSyncer_MissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		discord config.DiscordConfig
		key     string
	}{
		{"NoToken", config.DiscordConfig{ApplicationID: "4242"}, "discord.bot_token"},
		{"NoApplicationID", config.DiscordConfig{BotToken: "token"}, "discord.application_id"},
		{"InvalidApplicationID", config.DiscordConfig{BotToken: "token", ApplicationID: "abc"}, "discord.application_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registrar := test.NewMockRegistrar(t)
			cfg := syncConfig()
			cfg.Discord = tt.discord
			syncer := newTestSyncer(t, registrar, cfg)

			err := syncer.Sync(context.Background(), testRegistry(), 1, true)

			var cfgErr *config.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
			registrar.AssertNotCalled(t, "ReplaceCommands", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSyncer_SubmitsCompiledRegistry(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	syncer := newTestSyncer(t, registrar, syncConfig())
	reg := testRegistry()
	want, err := commands.CompileAll(reg)
	require.NoError(t, err)

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), want).Return(nil).Once()

	require.NoError(t, syncer.Sync(context.Background(), reg, 1, false))
}

func TestSyncer_SkipsUnchangedUnlessForced(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	syncer := newTestSyncer(t, registrar, syncConfig())
	reg := testRegistry()

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).Return(nil).Twice()

	require.NoError(t, syncer.Sync(context.Background(), reg, 1, false))
	require.NoError(t, syncer.Sync(context.Background(), reg, 1, false))
	require.NoError(t, syncer.Sync(context.Background(), reg, 1, true))

	registrar.AssertNumberOfCalls(t, "ReplaceCommands", 2)
}

func TestSyncer_ResubmitsChangedRegistry(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	syncer := newTestSyncer(t, registrar, syncConfig())

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1),
		mock.MatchedBy(func(cmds []api.CreateCommandData) bool { return len(cmds) == 2 })).Return(nil).Once()
	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1),
		mock.MatchedBy(func(cmds []api.CreateCommandData) bool { return len(cmds) == 1 })).Return(nil).Once()

	require.NoError(t, syncer.Sync(context.Background(), testRegistry(), 1, false))
	require.NoError(t, syncer.Sync(context.Background(), commands.NewRegistry(commands.NewPingCommand()), 1, false))
}

func TestSyncer_RetriesTransientFailures(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	syncer := newTestSyncer(t, registrar, syncConfig())

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).
		Return(errors.New("502 bad gateway")).Twice()
	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).
		Return(nil).Once()

	require.NoError(t, syncer.Sync(context.Background(), testRegistry(), 1, false))
}

func TestSyncer_GivesUpAfterMaxRetries(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	cfg := syncConfig()
	cfg.Registrar.MaxRetries = retries(2)
	syncer := newTestSyncer(t, registrar, cfg)
	cause := errors.New("401 unauthorized")

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(7), mock.Anything).
		Return(cause).Times(3)

	err := syncer.Sync(context.Background(), testRegistry(), 7, false)

	var regErr *commands.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, discord.GuildID(7), regErr.GuildID)
	assert.ErrorIs(t, err, cause)
}

func TestSyncer_TimeoutIsRetryable(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	cfg := syncConfig()
	cfg.Registrar.Timeout = 20 * time.Millisecond
	cfg.Registrar.MaxRetries = retries(1)
	syncer := newTestSyncer(t, registrar, cfg)

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded).Once()
	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).
		Return(nil).Once()

	require.NoError(t, syncer.Sync(context.Background(), testRegistry(), 1, false))
}

func TestSyncer_SyncAllIsolatesGuilds(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	cfg := syncConfig()
	cfg.Registrar.MaxRetries = retries(0)
	syncer := newTestSyncer(t, registrar, cfg)
	cause := errors.New("missing access")

	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(1), mock.Anything).Return(cause).Once()
	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(2), mock.Anything).Return(nil).Once()
	registrar.On("ReplaceCommands", mock.Anything, testCreds, discord.GuildID(3), mock.Anything).Return(nil).Once()

	results := syncer.SyncAll(context.Background(), testRegistry(), []discord.GuildID{1, 2, 0, 3, 2}, false)

	require.Len(t, results, 3)
	assert.ErrorIs(t, results[1], cause)
	assert.NoError(t, results[2])
	assert.NoError(t, results[3])
}

func TestSyncer_UncompilableRegistry(t *testing.T) {
	registrar := test.NewMockRegistrar(t)
	syncer := newTestSyncer(t, registrar, syncConfig())
	bad := commands.Func(commands.NewDefinition("ratio", "d",
		commands.NumberArg("r", "d").WithChoices(commands.Choice{Name: "nan", Value: math.NaN()})), nil)

	err := syncer.Sync(context.Background(), commands.NewRegistry(commands.NewPingCommand(), bad), 7, true)

	var regErr *commands.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, discord.GuildID(7), regErr.GuildID)
	assert.ErrorIs(t, err, commands.ErrChoiceType)
	registrar.AssertNotCalled(t, "ReplaceCommands", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewSyncer_RequiresConfig(t *testing.T) {
	_, err := commands.NewSyncer(commands.SyncerParams{Registrar: test.NewMockRegistrar(t)})
	assert.Error(t, err)
}
