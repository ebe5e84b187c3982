package ports

import (
	"context"
	"time"
)

type TargetMode int

const (
	TargetClient  TargetMode = 1
	TargetChannel TargetMode = 2
	TargetServer  TargetMode = 3
)

// ServerTargetID is the target sent with server-wide messages; the server ignores it
// but the command requires one.
const ServerTargetID = "0"

// InboundMessage is a text message as received from the server. It is built once at
// ingress and never modified afterwards.
type InboundMessage struct {
	Text             string
	InvokerID        string
	InvokerName      string
	InvokerUID       string
	InvokerChannelID string
	TargetMode       TargetMode
	Target           string
	ChannelID        string
	ReceivedAt       time.Time
}

type ReplyTarget struct {
	Mode TargetMode
	ID   string
}

func (t ReplyTarget) Valid() bool {
	return t.ID != ""
}

func ServerTarget() ReplyTarget {
	return ReplyTarget{Mode: TargetServer, ID: ServerTargetID}
}

func ChannelTarget(channelID string) ReplyTarget {
	return ReplyTarget{Mode: TargetChannel, ID: channelID}
}

// ResolveReplyTarget picks where a reply to msg should go. An empty ID in the result
// means no target could be derived.
func ResolveReplyTarget(msg InboundMessage) ReplyTarget {
	switch msg.TargetMode {
	case TargetClient:
		return ReplyTarget{Mode: TargetClient, ID: firstNonEmpty(msg.InvokerID, msg.Target)}
	case TargetChannel:
		return ReplyTarget{Mode: TargetChannel, ID: firstNonEmpty(msg.ChannelID, msg.InvokerChannelID, msg.Target, msg.InvokerID)}
	case TargetServer:
		return ServerTarget()
	default:
		return ReplyTarget{Mode: msg.TargetMode, ID: firstNonEmpty(msg.Target, msg.InvokerID, ServerTargetID)}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type MessageSender interface {
	Respond(ctx context.Context, target ReplyTarget, message string) error

	SendToChannel(ctx context.Context, channelID, message string) error
}

type Session interface {
	MessageSender

	Connect(ctx context.Context)

	Close() error

	OnTextMessage(handler func(InboundMessage))

	IsConnected() bool

	ReconnectCount() int
}
