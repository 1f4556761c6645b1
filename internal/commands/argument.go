package commands

import "fmt"

// ArgumentType is the declared type of a command argument.
type ArgumentType int

// Argument types, in the order Discord documents them for slash command options.
const (
	ArgString ArgumentType = iota
	ArgInteger
	ArgNumber
	ArgBoolean
	ArgUser
	ArgChannel
	ArgRole
	ArgMentionable
)

var argumentTypeNames = [...]string{
	ArgString:      "STRING",
	ArgInteger:     "INTEGER",
	ArgNumber:      "NUMBER",
	ArgBoolean:     "BOOLEAN",
	ArgUser:        "USER",
	ArgChannel:     "CHANNEL",
	ArgRole:        "ROLE",
	ArgMentionable: "MENTIONABLE",
}

func (t ArgumentType) String() string {
	if t < 0 || int(t) >= len(argumentTypeNames) {
		return fmt.Sprintf("ArgumentType(%d)", int(t))
	}

	return argumentTypeNames[t]
}

// AcceptsChoices reports whether Discord allows a fixed choice list for the type.
func (t ArgumentType) AcceptsChoices() bool {
	return t == ArgString || t == ArgInteger || t == ArgNumber
}

// Choice is one predefined value offered for an argument.
// Value must be a string for ArgString, an integer for ArgInteger and
// any integer or float for ArgNumber.
type Choice struct {
	Name  string
	Value any
}

// Argument describes a single typed parameter of a command.
// Arguments are required unless Optional is set.
type Argument struct {
	Type        ArgumentType
	Name        string
	Description string
	Optional    bool
	Choices     []Choice
}

// NewArgument creates a required argument of the given type.
func NewArgument(t ArgumentType, name, description string) Argument {
	return Argument{Type: t, Name: name, Description: description}
}

// StringArg creates a required string argument.
func StringArg(name, description string) Argument {
	return NewArgument(ArgString, name, description)
}

// IntegerArg creates a required integer argument.
func IntegerArg(name, description string) Argument {
	return NewArgument(ArgInteger, name, description)
}

// NumberArg creates a required number argument.
func NumberArg(name, description string) Argument {
	return NewArgument(ArgNumber, name, description)
}

// BooleanArg creates a required boolean argument.
func BooleanArg(name, description string) Argument {
	return NewArgument(ArgBoolean, name, description)
}

// UserArg creates a required user argument.
func UserArg(name, description string) Argument {
	return NewArgument(ArgUser, name, description)
}

// ChannelArg creates a required channel argument.
func ChannelArg(name, description string) Argument {
	return NewArgument(ArgChannel, name, description)
}

// RoleArg creates a required role argument.
func RoleArg(name, description string) Argument {
	return NewArgument(ArgRole, name, description)
}

// MentionableArg creates a required mentionable argument.
func MentionableArg(name, description string) Argument {
	return NewArgument(ArgMentionable, name, description)
}

// AsOptional returns a copy of the argument that the user may omit.
func (a Argument) AsOptional() Argument {
	a.Optional = true

	return a
}

// WithChoices returns a copy of the argument restricted to the given choices.
func (a Argument) WithChoices(choices ...Choice) Argument {
	a.Choices = append([]Choice(nil), choices...)

	return a
}
