// Package test provides testify mocks for the command interfaces.
package test

import (
	"context"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/mock"

	"github.com/Raikerian/disbot/internal/commands"
	"github.com/Raikerian/disbot/internal/config"
)

// T is what the constructors need from *testing.T.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockCommand is a mock implementation of commands.Command.
type MockCommand struct {
	mock.Mock
}

// NewMockCommand creates a MockCommand whose expectations are asserted on cleanup.
func NewMockCommand(t T) *MockCommand {
	m := &MockCommand{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCommand) Name() string {
	return m.Called().String(0)
}

func (m *MockCommand) Description() string {
	return m.Called().String(0)
}

func (m *MockCommand) Arguments() []commands.Argument {
	ret := m.Called()
	args, _ := ret.Get(0).([]commands.Argument)

	return args
}

func (m *MockCommand) Permission() *commands.Policy {
	ret := m.Called()
	p, _ := ret.Get(0).(*commands.Policy)

	return p
}

func (m *MockCommand) Execute(ctx context.Context, inv *commands.Invocation) error {
	return m.Called(ctx, inv).Error(0)
}

// MockResponder is a mock implementation of commands.Responder.
type MockResponder struct {
	mock.Mock
}

// NewMockResponder creates a MockResponder whose expectations are asserted on cleanup.
func NewMockResponder(t T) *MockResponder {
	m := &MockResponder{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockResponder) RespondInteraction(id discord.InteractionID, token string, resp api.InteractionResponse) error {
	return m.Called(id, token, resp).Error(0)
}

// MockRegistrar is a mock implementation of commands.Registrar.
type MockRegistrar struct {
	mock.Mock
}

// NewMockRegistrar creates a MockRegistrar whose expectations are asserted on cleanup.
func NewMockRegistrar(t T) *MockRegistrar {
	m := &MockRegistrar{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRegistrar) ReplaceCommands(ctx context.Context, creds config.Credentials, guildID discord.GuildID, cmds []api.CreateCommandData) error {
	return m.Called(ctx, creds, guildID, cmds).Error(0)
}

// MockController is a mock implementation of commands.Controller.
type MockController struct {
	mock.Mock
}

// NewMockController creates a MockController whose expectations are asserted on cleanup.
func NewMockController(t T) *MockController {
	m := &MockController{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockController) Reload(ctx context.Context, guildID discord.GuildID) (*commands.LoadReport, error) {
	ret := m.Called(ctx, guildID)
	report, _ := ret.Get(0).(*commands.LoadReport)

	return report, ret.Error(1)
}

// MockPrincipalResolver is a mock implementation of commands.PrincipalResolver.
type MockPrincipalResolver struct {
	mock.Mock
}

// NewMockPrincipalResolver creates a MockPrincipalResolver whose expectations are asserted on cleanup.
func NewMockPrincipalResolver(t T) *MockPrincipalResolver {
	m := &MockPrincipalResolver{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockPrincipalResolver) Principal(e *discord.InteractionEvent) (commands.Principal, error) {
	ret := m.Called(e)
	who, _ := ret.Get(0).(commands.Principal)

	return who, ret.Error(1)
}
