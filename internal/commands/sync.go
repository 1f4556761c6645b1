package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/disbot/internal/config"
)

// Registrar replaces the full set of application commands of a guild.
type Registrar interface {
	ReplaceCommands(ctx context.Context, creds config.Credentials, guildID discord.GuildID, cmds []api.CreateCommandData) error
}

// SyncerParams holds dependencies for NewSyncer.
type SyncerParams struct {
	fx.In

	Registrar Registrar
	Config    *config.Config
	Logger    *zap.Logger

	// NewBackOff overrides the retry schedule between attempts.
	NewBackOff func() backoff.BackOff `optional:"true"`
}

// Syncer pushes compiled registries to Discord, one guild at a time.
type Syncer struct {
	registrar   Registrar
	cfg         *config.Config
	logger      *zap.Logger
	timeout     time.Duration
	maxRetries  int
	concurrency int
	newBackOff  func() backoff.BackOff

	// fingerprints remembers the last payload accepted per guild.
	fingerprints *lru.Cache[discord.GuildID, string]
}

// NewSyncer creates a new Syncer.
func NewSyncer(params SyncerParams) (*Syncer, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config provided to NewSyncer is nil")
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := params.Config.Registrar
	cacheSize := reg.SyncCacheSize
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[discord.GuildID, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create sync cache: %w", err)
	}
	timeout := reg.Timeout
	if timeout <= 0 {
		timeout = defaultRegistrarTimeout
	}
	newBackOff := params.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	return &Syncer{
		registrar:    params.Registrar,
		cfg:          params.Config,
		logger:       logger.Named("syncer"),
		timeout:      timeout,
		maxRetries:   reg.Retries(),
		concurrency:  max(reg.Concurrency, 1),
		newBackOff:   newBackOff,
		fingerprints: cache,
	}, nil
}

const defaultRegistrarTimeout = 10 * time.Second

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0

	return b
}

// Sync replaces the guild's commands with the compiled registry. Unless force
// is set, a payload identical to the last accepted one is not sent again.
func (s *Syncer) Sync(ctx context.Context, reg *Registry, guildID discord.GuildID, force bool) error {
	creds, err := s.cfg.RegistrarCredentials()
	if err != nil {
		s.logger.Error("Refusing to register commands", zap.Stringer("guildID", guildID), zap.Error(err))

		return err
	}

	payload, err := CompileAll(reg)
	if err != nil {
		return &RegistrationError{GuildID: guildID, Err: fmt.Errorf("compile commands: %w", err)}
	}
	fingerprint, err := fingerprintOf(payload)
	if err != nil {
		return &RegistrationError{GuildID: guildID, Err: err}
	}

	if !force {
		if last, ok := s.fingerprints.Get(guildID); ok && last == fingerprint {
			s.logger.Debug("Commands unchanged, skipping registration", zap.Stringer("guildID", guildID))

			return nil
		}
	}

	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		err := s.registrar.ReplaceCommands(callCtx, creds, guildID, payload)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Command registration failed, retrying",
			zap.Stringer("guildID", guildID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		s.fingerprints.Remove(guildID)
		regErr := &RegistrationError{GuildID: guildID, Err: err}
		s.logger.Error("Failed to register commands for guild",
			zap.Stringer("applicationID", creds.ApplicationID),
			zap.Stringer("guildID", guildID),
			zap.Int("attempts", attempt),
			zap.Error(err))

		return regErr
	}

	s.fingerprints.Add(guildID, fingerprint)
	s.logger.Info("Successfully registered slash commands for guild",
		zap.Int("count", len(payload)),
		zap.Stringer("applicationID", creds.ApplicationID),
		zap.Stringer("guildID", guildID))

	return nil
}

// SyncAll syncs every guild concurrently. A failing guild does not affect the
// others; the result holds one entry per guild, nil on success.
func (s *Syncer) SyncAll(ctx context.Context, reg *Registry, guildIDs []discord.GuildID, force bool) map[discord.GuildID]error {
	guildIDs = uniqueGuilds(guildIDs)
	results := make([]error, len(guildIDs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, guildID := range guildIDs {
		g.Go(func() error {
			results[i] = s.Sync(ctx, reg, guildID, force)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[discord.GuildID]error, len(guildIDs))
	failed := 0
	for i, guildID := range guildIDs {
		out[guildID] = results[i]
		if results[i] != nil {
			failed++
		}
	}
	s.logger.Info("Command sync finished",
		zap.Int("guilds", len(guildIDs)),
		zap.Int("failed", failed))

	return out
}

func fingerprintOf(payload []api.CreateCommandData) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode commands: %w", err)
	}
	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:]), nil
}

func uniqueGuilds(ids []discord.GuildID) []discord.GuildID {
	seen := make(map[discord.GuildID]struct{}, len(ids))
	out := make([]discord.GuildID, 0, len(ids))
	for _, id := range ids {
		if !id.IsValid() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
