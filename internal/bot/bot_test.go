package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/disbot/internal/bot"
	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
	"github.com/Raikerian/disbot/pkg/test"
)

// fakeEvents records handlers the way the session would.
type fakeEvents struct {
	mu       sync.Mutex
	handlers []any
	removed  int
}

func (f *fakeEvents) AddHandler(handler any) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.removed++
	}
}

func (f *fakeEvents) ready(e *gateway.ReadyEvent) {
	for _, h := range f.handlers {
		if fn, ok := h.(func(*gateway.ReadyEvent)); ok {
			fn(e)
		}
	}
}

func (f *fakeEvents) interaction(e *gateway.InteractionCreateEvent) {
	for _, h := range f.handlers {
		if fn, ok := h.(func(*gateway.InteractionCreateEvent)); ok {
			fn(e)
		}
	}
}

type botFixture struct {
	bot       *bot.Bot
	events    *fakeEvents
	store     *commands.Store
	registrar *test.MockRegistrar
	responder *test.MockResponder
	source    *switchableSource
}

// switchableSource serves whatever factories it currently holds.
type switchableSource struct {
	mu        sync.Mutex
	factories []commands.Factory
	err       error
}

func (s *switchableSource) set(factories []commands.Factory, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories, s.err = factories, err
}

func (s *switchableSource) Artifacts(dir string) ([]commands.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	return commands.NewFactorySource(s.factories).Artifacts(dir)
}

func newBotFixture(t *testing.T, cfg *config.Config) *botFixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	f := &botFixture{
		events:    &fakeEvents{},
		store:     commands.NewStore(),
		registrar: test.NewMockRegistrar(t),
		responder: test.NewMockResponder(t),
		source:    &switchableSource{factories: []commands.Factory{commands.NewPingFactory(), commands.NewReloadFactory()}},
	}

	loader := commands.NewLoader(commands.LoaderParams{Source: f.source, Store: f.store, Config: cfg, Logger: logger})
	syncer, err := commands.NewSyncer(commands.SyncerParams{
		Registrar:  f.registrar,
		Config:     cfg,
		Logger:     logger,
		NewBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
	require.NoError(t, err)

	f.bot, err = bot.NewBot(bot.BotParams{
		Events:     f.events,
		Responder:  f.responder,
		Principals: test.NewMockPrincipalResolver(t),
		Config:     cfg,
		Store:      f.store,
		Loader:     loader,
		Syncer:     syncer,
		Logger:     logger,
	})
	require.NoError(t, err)

	return f
}

func botConfig() *config.Config {
	enabled := true
	retries := 1

	return &config.Config{
		Discord: config.DiscordConfig{BotToken: "token", ApplicationID: "4242", GuildIDs: []string{"3", "bogus"}},
		Registrar: config.RegistrarConfig{
			Timeout:       time.Second,
			MaxRetries:    &retries,
			Concurrency:   2,
			SyncCacheSize: 8,
			SyncOnReady:   &enabled,
		},
		Dispatch: config.DispatchConfig{Timeout: time.Second},
	}
}

func readyEvent(guilds ...discord.GuildID) *gateway.ReadyEvent {
	e := &gateway.ReadyEvent{User: discord.User{Username: "disbot"}}
	for _, id := range guilds {
		e.Guilds = append(e.Guilds, gateway.GuildCreateEvent{Guild: discord.Guild{ID: id}})
	}

	return e
}

func TestNewBot_SubscribesToEvents(t *testing.T) {
	f := newBotFixture(t, botConfig())

	assert.Len(t, f.events.handlers, 2)
	require.NoError(t, f.bot.Stop(context.Background()))
	assert.Equal(t, 2, f.events.removed)
}

func TestNewBot_RequiresDependencies(t *testing.T) {
	_, err := bot.NewBot(bot.BotParams{})
	assert.Error(t, err)
}

func TestBot_ReadySyncsJoinedAndConfiguredGuilds(t *testing.T) {
	f := newBotFixture(t, botConfig())

	var mu sync.Mutex
	synced := map[discord.GuildID]int{}
	done := make(chan struct{}, 3)
	f.registrar.On("ReplaceCommands", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			synced[args.Get(2).(discord.GuildID)]++
			mu.Unlock()
			done <- struct{}{}
		}).
		Return(nil).Times(3)

	// Ready may arrive before the first load; registration waits for it.
	f.events.ready(readyEvent(1, 2))
	require.NoError(t, f.bot.Start(context.Background()))

	for range 3 {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("guilds were not synced after ready")
		}
	}
	require.NoError(t, f.bot.Stop(context.Background()))

	assert.Equal(t, map[discord.GuildID]int{1: 1, 2: 1, 3: 1}, synced)
	assert.ElementsMatch(t, []discord.GuildID{1, 2, 3}, f.bot.Guilds())
}

func TestBot_ReadyWithoutSync(t *testing.T) {
	cfg := botConfig()
	disabled := false
	cfg.Registrar.SyncOnReady = &disabled
	f := newBotFixture(t, cfg)

	require.NoError(t, f.bot.Start(context.Background()))
	f.events.ready(readyEvent(1))
	require.NoError(t, f.bot.Stop(context.Background()))

	f.registrar.AssertNotCalled(t, "ReplaceCommands", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBot_StartFailsWhenCommandsCannotBeListed(t *testing.T) {
	f := newBotFixture(t, botConfig())
	f.source.set(nil, errors.New("permission denied"))

	assert.Error(t, f.bot.Start(context.Background()))
}

func TestBot_ReloadForcesGuild(t *testing.T) {
	f := newBotFixture(t, botConfig())
	require.NoError(t, f.bot.Start(context.Background()))
	defer func() { require.NoError(t, f.bot.Stop(context.Background())) }()

	f.source.set([]commands.Factory{commands.NewPingFactory(), commands.NewEchoFactory(), commands.NewReloadFactory()}, nil)
	f.registrar.On("ReplaceCommands", mock.Anything, mock.Anything, discord.GuildID(9), mock.Anything).Return(nil).Twice()

	report, err := f.bot.Reload(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, report.Loaded, 3)
	assert.Equal(t, []string{"echo", "ping", "reload"}, f.store.Load().Names())

	// Unchanged commands are still submitted on an explicit reload.
	_, err = f.bot.Reload(context.Background(), 9)
	require.NoError(t, err)
}

func TestBot_OverlappingReloadsRegisterNewestRegistry(t *testing.T) {
	f := newBotFixture(t, botConfig())
	require.NoError(t, f.bot.Start(context.Background()))
	defer func() { require.NoError(t, f.bot.Stop(context.Background())) }()

	var (
		mu     sync.Mutex
		remote []string
		calls  int
	)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.registrar.On("ReplaceCommands", mock.Anything, mock.Anything, discord.GuildID(9), mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				close(entered)
				<-release
			}

			var names []string
			for _, c := range args.Get(3).([]api.CreateCommandData) {
				names = append(names, c.Name)
			}
			mu.Lock()
			remote = names
			mu.Unlock()
		}).
		Return(nil).Twice()

	errs := make(chan error, 2)
	go func() {
		_, err := f.bot.Reload(context.Background(), 9)
		errs <- err
	}()
	<-entered

	f.source.set([]commands.Factory{commands.NewPingFactory(), commands.NewEchoFactory(), commands.NewReloadFactory()}, nil)
	go func() {
		_, err := f.bot.Reload(context.Background(), 9)
		errs <- err
	}()

	// Give the second reload a chance to overtake the blocked submission.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for range 2 {
		require.NoError(t, <-errs)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"echo", "ping", "reload"}, f.store.Load().Names())
	assert.Equal(t, f.store.Load().Names(), remote)
}

func TestBot_ReloadReportsRegistrationFailure(t *testing.T) {
	f := newBotFixture(t, botConfig())
	require.NoError(t, f.bot.Start(context.Background()))
	defer func() { require.NoError(t, f.bot.Stop(context.Background())) }()

	cause := errors.New("missing access")
	f.registrar.On("ReplaceCommands", mock.Anything, mock.Anything, discord.GuildID(3), mock.Anything).Return(cause)

	report, err := f.bot.Reload(context.Background(), 0)
	require.NotNil(t, report)
	assert.ErrorIs(t, err, cause)
}

func TestBot_ReloadKeepsRegistryWhenLoadFails(t *testing.T) {
	f := newBotFixture(t, botConfig())
	require.NoError(t, f.bot.Start(context.Background()))
	defer func() { require.NoError(t, f.bot.Stop(context.Background())) }()
	before := f.store.Load()

	f.source.set(nil, errors.New("disk gone"))

	report, err := f.bot.Reload(context.Background(), 9)
	assert.Error(t, err)
	assert.Nil(t, report)
	assert.Same(t, before, f.store.Load())
}

func TestBot_DispatchesInteractions(t *testing.T) {
	f := newBotFixture(t, botConfig())
	require.NoError(t, f.bot.Start(context.Background()))
	defer func() { require.NoError(t, f.bot.Stop(context.Background())) }()

	f.responder.On("RespondInteraction", discord.InteractionID(1), "token", mock.Anything).Return(nil).Once()

	f.events.interaction(commandEvent("ping"))
}
