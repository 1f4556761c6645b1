package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/disbot/internal/config"
)

const (
	maxDescriptionLength = 100
	defaultLoadWorkers   = 8
)

var namePattern = regexp.MustCompile(`^[-_\p{Ll}\p{N}]{1,32}$`)

// Validate checks that a command can be registered with Discord.
func Validate(cmd Command) error {
	if !namePattern.MatchString(cmd.Name()) {
		return fmt.Errorf("%w: name %q must be 1-32 lowercase letters, digits, '-' or '_'", ErrInvalidCommand, cmd.Name())
	}
	if n := utf8.RuneCountInString(cmd.Description()); n == 0 || n > maxDescriptionLength {
		return fmt.Errorf("%w: description of %q must be 1-%d characters", ErrInvalidCommand, cmd.Name(), maxDescriptionLength)
	}

	seenOptional := false
	for _, arg := range cmd.Arguments() {
		if !namePattern.MatchString(arg.Name) {
			return fmt.Errorf("%w: argument name %q", ErrInvalidArgument, arg.Name)
		}
		if utf8.RuneCountInString(arg.Description) > maxDescriptionLength {
			return fmt.Errorf("%w: description of argument %q is too long", ErrInvalidArgument, arg.Name)
		}
		if arg.Optional {
			seenOptional = true
		} else if seenOptional {
			return fmt.Errorf("%w: %q", ErrArgumentOrder, arg.Name)
		}
	}

	if err := cmd.Permission().Validate(); err != nil {
		return err
	}

	_, err := Compile(cmd)

	return err
}

// LoadReport summarizes one load cycle.
type LoadReport struct {
	Loaded     []string
	Skipped    []string
	Duplicates []string
	Failed     []*LoadError
}

// LoaderParams holds dependencies for NewLoader.
type LoaderParams struct {
	fx.In

	Source Source
	Store  *Store
	Config *config.Config
	Logger *zap.Logger
}

// Loader builds registries from a Source and publishes them to the Store.
type Loader struct {
	source  Source
	store   *Store
	dir     string
	workers int
	logger  *zap.Logger

	mu sync.Mutex
}

// NewLoader creates a new Loader.
func NewLoader(params LoaderParams) *Loader {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var dir string
	if params.Config != nil {
		dir = params.Config.Commands.Dir
	}

	return &Loader{
		source:  params.Source,
		store:   params.Store,
		dir:     dir,
		workers: defaultLoadWorkers,
		logger:  logger.Named("loader"),
	}
}

// Dir returns the directory the loader reads on Reload.
func (l *Loader) Dir() string {
	return l.dir
}

// Load attempts every artifact in dir and returns the resulting registry
// without publishing it. Broken artifacts are logged and left out; only a
// failure to enumerate dir or a cancelled context is returned as an error.
func (l *Loader) Load(ctx context.Context, dir string) (*Registry, *LoadReport, error) {
	artifacts, err := l.source.Artifacts(dir)
	if err != nil {
		return nil, nil, err
	}

	type result struct {
		cmd Command
		err error
	}
	results := make([]result, len(artifacts))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, art := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			results[i].cmd, results[i].err = openArtifact(art)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("load commands: %w", err)
	}

	report := &LoadReport{}
	origin := make(map[string]string, len(artifacts))
	cmds := make([]Command, 0, len(artifacts))
	for i, res := range results {
		art := artifacts[i].Name
		switch {
		case errors.Is(res.err, ErrDisabled):
			l.logger.Info("Skipping disabled command", zap.String("artifact", art))
			report.Skipped = append(report.Skipped, art)

			continue
		case res.err != nil:
			loadErr := &LoadError{Artifact: art, Err: res.err}
			l.logger.Error("Failed to load command", zap.String("artifact", art), zap.Error(res.err))
			report.Failed = append(report.Failed, loadErr)

			continue
		}

		name := res.cmd.Name()
		if prev, dup := origin[name]; dup {
			l.logger.Warn("Duplicate command name, the later artifact wins",
				zap.String("commandName", name),
				zap.String("previous", prev),
				zap.String("artifact", art))
			report.Duplicates = append(report.Duplicates, name)
		} else {
			report.Loaded = append(report.Loaded, name)
		}
		origin[name] = art
		cmds = append(cmds, res.cmd)
		l.logger.Info("Loaded command", zap.String("commandName", name), zap.String("artifact", art))
	}

	reg := NewRegistry(cmds...)
	if reg.Len() == 0 {
		l.logger.Warn("No commands loaded", zap.String("dir", dir))
	}

	return reg, report, nil
}

// Reload loads the configured directory and publishes the result. The
// previous registry stays in place when loading fails as a whole.
func (l *Loader) Reload(ctx context.Context) (*LoadReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	reg, report, err := l.Load(ctx, l.dir)
	if err != nil {
		l.logger.Error("Reload failed, keeping previous commands", zap.Error(err))

		return nil, err
	}

	l.store.Swap(reg)
	l.logger.Info("Command registry published",
		zap.Int("count", reg.Len()),
		zap.Int("failed", len(report.Failed)),
		zap.Strings("commands", reg.Names()))

	return report, nil
}

func openArtifact(art Artifact) (cmd Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			cmd, err = nil, fmt.Errorf("panic while instantiating command: %v", r)
		}
	}()

	if art.Open == nil {
		return nil, errors.New("artifact has no constructor")
	}
	cmd, err = art.Open()
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, errors.New("constructor returned no command")
	}
	if err := Validate(cmd); err != nil {
		return nil, err
	}

	return cmd, nil
}
