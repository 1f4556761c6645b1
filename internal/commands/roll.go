package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

const (
	defaultDieSides = 6
	maxDice         = 10
)

// RollCommand rolls dice.
type RollCommand struct {
	Definition
	intn func(n int) int
}

// NewRollCommand creates a new RollCommand instance.
func NewRollCommand() Command {
	return &RollCommand{
		Definition: NewDefinition("roll", "Rolls one or more dice.",
			IntegerArg("sides", "Kind of die").AsOptional().WithChoices(
				Choice{Name: "d4", Value: 4},
				Choice{Name: "d6", Value: 6},
				Choice{Name: "d8", Value: 8},
				Choice{Name: "d10", Value: 10},
				Choice{Name: "d12", Value: 12},
				Choice{Name: "d20", Value: 20},
			),
			IntegerArg("count", fmt.Sprintf("Number of dice, 1 to %d", maxDice)).AsOptional(),
		),
		intn: rand.IntN,
	}
}

// Execute runs the command.
func (c *RollCommand) Execute(ctx context.Context, inv *Invocation) error {
	sides, count := defaultDieSides, 1
	if opt, ok := inv.Option("sides"); ok {
		if v, err := opt.IntValue(); err == nil && v > 1 {
			sides = int(v)
		}
	}
	if opt, ok := inv.Option("count"); ok {
		v, err := opt.IntValue()
		if err != nil || v < 1 || v > maxDice {
			return inv.ReplyEphemeral(fmt.Sprintf("Count must be between 1 and %d.", maxDice))
		}
		count = int(v)
	}

	rolls := make([]string, count)
	total := 0
	for i := range rolls {
		n := c.intn(sides) + 1
		total += n
		rolls[i] = strconv.Itoa(n)
	}

	if count == 1 {
		return inv.Reply(fmt.Sprintf("🎲 d%d: **%d**", sides, total))
	}

	return inv.Reply(fmt.Sprintf("🎲 %dd%d: %s = **%d**", count, sides, strings.Join(rolls, " + "), total))
}

// NewRollFactory registers the roll command.
func NewRollFactory() Factory {
	return Factory{ID: "roll", New: func() (Command, error) { return NewRollCommand(), nil }}
}
