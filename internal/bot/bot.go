package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
)

// EventSource registers gateway event handlers. *session.Session satisfies it.
type EventSource interface {
	AddHandler(handler any) (rm func())
}

// Bot ties the command registry to the gateway: it loads commands, registers
// them with every served guild and dispatches interactions.
type Bot struct {
	cfg        *config.Config
	store      *commands.Store
	loader     *commands.Loader
	syncer     *commands.Syncer
	dispatcher *Dispatcher
	logger     *zap.Logger

	configured []discord.GuildID
	removers   []func()

	// loaded is closed once the first registry has been published.
	loaded     chan struct{}
	loadedOnce sync.Once

	mu     sync.Mutex
	joined map[discord.GuildID]struct{}

	// syncMu orders registry publication with registration so Discord never
	// ends up with an older registry than the one being served.
	syncMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	watcher *Watcher
}

// BotParams holds dependencies for NewBot.
type BotParams struct {
	fx.In

	Events     EventSource
	Responder  commands.Responder
	Principals commands.PrincipalResolver
	Config     *config.Config
	Store      *commands.Store
	Loader     *commands.Loader
	Syncer     *commands.Syncer
	Logger     *zap.Logger
}

// NewBot creates a new Bot and subscribes it to gateway events.
func NewBot(params BotParams) (*Bot, error) {
	if params.Events == nil {
		return nil, errors.New("event source provided to NewBot is nil")
	}
	if params.Config == nil {
		return nil, errors.New("config provided to NewBot is nil")
	}
	if params.Logger == nil {
		return nil, errors.New("logger provided to NewBot is nil")
	}

	configured, invalid := params.Config.ConfiguredGuildIDs()
	for _, raw := range invalid {
		params.Logger.Error("Ignoring invalid guild ID in config", zap.String("guildIDStr", raw))
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		cfg:        params.Config,
		store:      params.Store,
		loader:     params.Loader,
		syncer:     params.Syncer,
		logger:     params.Logger,
		configured: configured,
		loaded:     make(chan struct{}),
		joined:     make(map[discord.GuildID]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	b.dispatcher = NewDispatcher(DispatcherConfig{
		Store:      params.Store,
		Responder:  params.Responder,
		Principals: params.Principals,
		Controller: b,
		Timeout:    params.Config.Dispatch.Timeout,
		Logger:     params.Logger,
	})

	b.removers = append(b.removers,
		params.Events.AddHandler(b.onReady),
		params.Events.AddHandler(b.onInteraction),
	)

	params.Logger.Info("NewBot created successfully", zap.Int("configuredGuilds", len(configured)))

	return b, nil
}

// Start publishes the first registry and starts the directory watcher when
// enabled. Registration with Discord happens on the ready event.
func (b *Bot) Start(ctx context.Context) error {
	b.syncMu.Lock()
	report, err := b.loader.Reload(ctx)
	b.syncMu.Unlock()
	if err != nil {
		return fmt.Errorf("load commands: %w", err)
	}
	b.loadedOnce.Do(func() { close(b.loaded) })
	b.logger.Info("Commands loaded",
		zap.Int("loaded", len(report.Loaded)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped", len(report.Skipped)))

	if !b.cfg.Commands.Watch {
		return nil
	}
	if b.loader.Dir() == "" {
		b.logger.Warn("commands.watch is set but no commands directory is configured")

		return nil
	}

	w, err := NewWatcher(b.loader.Dir(), b.cfg.Commands.WatchDebounce, b.logger)
	if err != nil {
		return err
	}
	b.watcher = w
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		w.Run(b.ctx, func(ctx context.Context) {
			if _, err := b.Reload(ctx, 0); err != nil {
				b.logger.Error("Reload after directory change failed", zap.Error(err))
			}
		})
	}()

	return nil
}

// Stop unsubscribes from events and waits for background work.
func (b *Bot) Stop(ctx context.Context) error {
	b.cancel()
	for _, rm := range b.removers {
		rm()
	}

	var err error
	if b.watcher != nil {
		err = b.watcher.Close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// Reload rebuilds the registry and registers it again. A valid guildID limits
// registration to that guild, otherwise every served guild is updated. The
// report is nil when the registry could not be rebuilt.
func (b *Bot) Reload(ctx context.Context, guildID discord.GuildID) (*commands.LoadReport, error) {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	report, err := b.loader.Reload(ctx)
	if err != nil {
		return nil, err
	}

	targets := b.Guilds()
	if guildID.IsValid() {
		targets = []discord.GuildID{guildID}
	}

	var errs []error
	for _, err := range b.syncer.SyncAll(ctx, b.store.Load(), targets, true) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	return report, errors.Join(errs...)
}

// Guilds returns the guilds commands are registered with: every guild seen on
// the ready event plus the configured ones.
func (b *Bot) Guilds() []discord.GuildID {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]discord.GuildID, 0, len(b.joined)+len(b.configured))
	for id := range b.joined {
		out = append(out, id)
	}

	return append(out, b.configured...)
}

// Dispatcher returns the interaction dispatcher.
func (b *Bot) Dispatcher() *Dispatcher {
	return b.dispatcher
}

func (b *Bot) onInteraction(e *gateway.InteractionCreateEvent) {
	b.dispatcher.Dispatch(b.ctx, e)
}

func (b *Bot) onReady(e *gateway.ReadyEvent) {
	b.mu.Lock()
	for _, g := range e.Guilds {
		b.joined[g.ID] = struct{}{}
	}
	b.mu.Unlock()

	b.logger.Info("Gateway ready",
		zap.String("user", e.User.Username),
		zap.Int("guilds", len(e.Guilds)))

	if !b.cfg.SyncOnReady() {
		b.logger.Info("Skipping command registration on ready")

		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		select {
		case <-b.loaded:
		case <-b.ctx.Done():
			return
		}

		b.syncMu.Lock()
		defer b.syncMu.Unlock()
		b.syncer.SyncAll(b.ctx, b.store.Load(), b.Guilds(), false)
	}()
}
