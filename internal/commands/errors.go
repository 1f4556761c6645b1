package commands

import (
	"errors"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
)

var (
	// ErrInvalidCommand is returned for a command whose name or description
	// cannot be registered with Discord.
	ErrInvalidCommand = errors.New("invalid command definition")
	// ErrInvalidArgument is returned for an argument with a missing name,
	// description or an unknown type.
	ErrInvalidArgument = errors.New("invalid argument definition")
	// ErrChoiceNotAllowed is returned when choices are attached to an argument
	// type other than string, integer or number.
	ErrChoiceNotAllowed = errors.New("choices are not allowed for argument type")
	// ErrChoiceType is returned when a choice value does not match the
	// argument type.
	ErrChoiceType = errors.New("choice value does not match argument type")
	// ErrArgumentOrder is returned when a required argument follows an optional one.
	ErrArgumentOrder = errors.New("required argument declared after an optional one")
	// ErrUnknownCapability is returned for a permission name Discord does not define.
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrNotImplemented is returned by commands built without a handler.
	ErrNotImplemented = errors.New("command is not implemented")
	// ErrUnknownFactory is returned when a manifest names a factory that was
	// never registered.
	ErrUnknownFactory = errors.New("unknown command factory")
	// ErrDisabled marks an artifact that was deliberately switched off.
	ErrDisabled = errors.New("command disabled")
	// ErrUnknownCommand is returned when an interaction names a command that
	// is not in the registry.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUnauthorized is returned when the invoking member fails the policy.
	ErrUnauthorized = errors.New("not allowed to use this command")
)

// LoadError reports a command artifact that could not be turned into a command.
type LoadError struct {
	Artifact string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// RegistrationError reports a failed command submission for one guild.
type RegistrationError struct {
	GuildID discord.GuildID
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register commands for guild %s: %v", e.GuildID, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ExecutionFault reports a command that returned an error or panicked.
type ExecutionFault struct {
	Command string
	Err     error
	Panic   any
}

func (e *ExecutionFault) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("command %s panicked: %v", e.Command, e.Panic)
	}

	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *ExecutionFault) Unwrap() error {
	return e.Err
}
