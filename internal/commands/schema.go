package commands

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
)

// Discord limits per command and per option.
const (
	maxOptions          = 25
	maxChoices          = 25
	maxChoiceNameLength = 100
)

// Compile converts a command into the payload Discord expects when
// registering application commands. It performs no I/O and always yields the
// same result for the same command.
func Compile(cmd Command) (api.CreateCommandData, error) {
	if cmd.Name() == "" || cmd.Description() == "" {
		return api.CreateCommandData{}, fmt.Errorf("%w: name and description are required", ErrInvalidCommand)
	}

	args := cmd.Arguments()
	if len(args) > maxOptions {
		return api.CreateCommandData{}, fmt.Errorf("%w: %q declares %d arguments, at most %d are allowed",
			ErrInvalidCommand, cmd.Name(), len(args), maxOptions)
	}
	options := make([]discord.CommandOption, 0, len(args))
	for _, arg := range args {
		opt, err := CompileArgument(arg)
		if err != nil {
			return api.CreateCommandData{}, fmt.Errorf("command %q: %w", cmd.Name(), err)
		}
		options = append(options, opt)
	}

	return api.CreateCommandData{
		Name:        cmd.Name(),
		Description: cmd.Description(),
		Options:     options,
	}, nil
}

// CompileAll compiles every command of the registry, in registry order.
func CompileAll(reg *Registry) ([]api.CreateCommandData, error) {
	cmds := reg.Commands()
	out := make([]api.CreateCommandData, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := Compile(cmd)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}

	return out, nil
}

// CompileArgument maps one argument onto its Discord option type.
// Choices on types that do not accept them are rejected rather than dropped.
func CompileArgument(arg Argument) (discord.CommandOption, error) {
	if arg.Name == "" || arg.Description == "" {
		return nil, fmt.Errorf("%w: argument %q needs a name and a description", ErrInvalidArgument, arg.Name)
	}
	if len(arg.Choices) > 0 && !arg.Type.AcceptsChoices() {
		return nil, fmt.Errorf("%w %s (argument %q)", ErrChoiceNotAllowed, arg.Type, arg.Name)
	}
	if len(arg.Choices) > maxChoices {
		return nil, fmt.Errorf("%w: argument %q has %d choices, at most %d are allowed",
			ErrInvalidArgument, arg.Name, len(arg.Choices), maxChoices)
	}
	for _, c := range arg.Choices {
		if n := utf8.RuneCountInString(c.Name); n == 0 || n > maxChoiceNameLength {
			return nil, fmt.Errorf("%w: choice names of argument %q must be 1-%d characters",
				ErrInvalidArgument, arg.Name, maxChoiceNameLength)
		}
	}

	required := !arg.Optional

	switch arg.Type {
	case ArgString:
		choices, err := stringChoices(arg)
		if err != nil {
			return nil, err
		}

		return &discord.StringOption{
			OptionName:  arg.Name,
			Description: arg.Description,
			Required:    required,
			Choices:     choices,
		}, nil
	case ArgInteger:
		choices, err := integerChoices(arg)
		if err != nil {
			return nil, err
		}

		return &discord.IntegerOption{
			OptionName:  arg.Name,
			Description: arg.Description,
			Required:    required,
			Choices:     choices,
		}, nil
	case ArgNumber:
		choices, err := numberChoices(arg)
		if err != nil {
			return nil, err
		}

		return &discord.NumberOption{
			OptionName:  arg.Name,
			Description: arg.Description,
			Required:    required,
			Choices:     choices,
		}, nil
	case ArgBoolean:
		return &discord.BooleanOption{OptionName: arg.Name, Description: arg.Description, Required: required}, nil
	case ArgUser:
		return &discord.UserOption{OptionName: arg.Name, Description: arg.Description, Required: required}, nil
	case ArgChannel:
		return &discord.ChannelOption{OptionName: arg.Name, Description: arg.Description, Required: required}, nil
	case ArgRole:
		return &discord.RoleOption{OptionName: arg.Name, Description: arg.Description, Required: required}, nil
	case ArgMentionable:
		return &discord.MentionableOption{OptionName: arg.Name, Description: arg.Description, Required: required}, nil
	default:
		return nil, fmt.Errorf("%w: argument %q has unknown type %s", ErrInvalidArgument, arg.Name, arg.Type)
	}
}

// stringChoices accepts string values, and integer values rendered in
// decimal since Discord transmits string choices as text.
func stringChoices(arg Argument) ([]discord.StringChoice, error) {
	if len(arg.Choices) == 0 {
		return nil, nil
	}

	out := make([]discord.StringChoice, 0, len(arg.Choices))
	for _, c := range arg.Choices {
		var value string
		switch v := c.Value.(type) {
		case string:
			value = v
		default:
			n, ok := asInt(c.Value)
			if !ok {
				return nil, choiceTypeError(arg, c)
			}
			value = strconv.Itoa(n)
		}
		out = append(out, discord.StringChoice{Name: c.Name, Value: value})
	}

	return out, nil
}

func integerChoices(arg Argument) ([]discord.IntegerChoice, error) {
	if len(arg.Choices) == 0 {
		return nil, nil
	}

	out := make([]discord.IntegerChoice, 0, len(arg.Choices))
	for _, c := range arg.Choices {
		n, ok := asInt(c.Value)
		if !ok {
			return nil, choiceTypeError(arg, c)
		}
		out = append(out, discord.IntegerChoice{Name: c.Name, Value: n})
	}

	return out, nil
}

func numberChoices(arg Argument) ([]discord.NumberChoice, error) {
	if len(arg.Choices) == 0 {
		return nil, nil
	}

	out := make([]discord.NumberChoice, 0, len(arg.Choices))
	for _, c := range arg.Choices {
		var f float64
		switch v := c.Value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		default:
			n, ok := asInt(c.Value)
			if !ok {
				return nil, choiceTypeError(arg, c)
			}
			f = float64(n)
		}
		// NaN and infinities cannot be encoded as JSON.
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s argument %q, choice %q is not a finite number",
				ErrChoiceType, arg.Type, arg.Name, c.Name)
		}
		out = append(out, discord.NumberChoice{Name: c.Name, Value: f})
	}

	return out, nil
}

func choiceTypeError(arg Argument, c Choice) error {
	return fmt.Errorf("%w: %s argument %q, choice %q has value of type %T",
		ErrChoiceType, arg.Type, arg.Name, c.Name, c.Value)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, false
		}

		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}

		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}

		return int(n), true
	default:
		return 0, false
	}
}
