package commands

// NewRollCommandWith creates a roll command drawing from intn.
func NewRollCommandWith(intn func(n int) int) Command {
	cmd := NewRollCommand().(*RollCommand)
	cmd.intn = intn

	return cmd
}
