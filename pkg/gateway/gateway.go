// Package gateway is the narrow surface this framework consumes from a chat
// gateway client: parsed messages and events carrying enough location and
// actor data to gate dispatch, plus an opaque send capability. Connection
// management, event delivery and command-token parsing live behind the Relay
// implementation.
package gateway

// An Actor is the user (or bot) a message or event originates from.
type Actor struct {
	ID    string
	Nick  string
	Bot   bool
	Roles []string
	// Level is the actor's numeric permission level, when the gateway
	// provides one.
	Level *int
}

// Source locates a message or event. Zero fields mean the gateway could not
// attribute that part, e.g. GuildID is empty for direct messages.
type Source struct {
	Actor      Actor
	GuildID    string
	ChannelID  string
	CategoryID string
	Thread     *bool
}

// A Message is either an *EventMessage or a *CommandMessage.
type Message interface {
	From() Source
}

// An EventMessage is a raw gateway event, keyed by event name.
type EventMessage struct {
	Name   string
	Source Source
}

func (m *EventMessage) From() Source {
	return m.Source
}

// A CommandMessage is a parsed command invocation: the resolved command id
// and its typed arguments, already split by the gateway's parser.
type CommandMessage struct {
	Command string
	Args    []string
	Source  Source
}

func (m *CommandMessage) From() Source {
	return m.Source
}

// Event names the framework reacts to itself; everything else is routed to
// plugin listeners untouched.
const (
	EventMemberJoin  = "memberJoin"
	EventMemberLeave = "memberLeave"
)

// A Reply is the opaque outbound payload handed back to the gateway.
type Reply struct {
	Text      string
	ChannelID string
	Recipient Actor
	Private   bool
}

// Confirmation is the gateway's answer to Connect.
type Confirmation struct {
	Self    Actor
	Trigger string
	Online  []Actor
}

// Relay is the connection to the chat gateway.
type Relay interface {
	Connect() (*Confirmation, error)
	// Recv blocks until the next inbound message.
	Recv() (Message, error)
	Send(reply *Reply) error
}
