package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// DefaultDeviceName is the display name of the device created at login.
const DefaultDeviceName = "llama-bot"

// Config holds what is needed to log into a homeserver.
type Config struct {
	Homeserver string
	Username   string
	Password   string
	DeviceName string
}

// Sender publishes a plain-text message to a room. *mautrix.Client satisfies it.
type Sender interface {
	SendText(ctx context.Context, roomID id.RoomID, text string) (*mautrix.RespSendEvent, error)
}

// Bot owns the Matrix session: login, the sync loop, and one goroutine per
// eligible room message.
type Bot struct {
	cfg    Config
	router *Router
	client *mautrix.Client
	sender Sender
	log    zerolog.Logger
	pub    EventPublisher

	userID atomic.Value // id.UserID
	ready  atomic.Bool
	wg     sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the structured logger. The Matrix client gets a sub-logger.
func WithLogger(l zerolog.Logger) Option { return func(b *Bot) { b.log = l } }

// WithPublisher installs an event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(b *Bot) {
		if p != nil {
			b.pub = p
		}
	}
}

// WithSender replaces the client used to publish replies.
func WithSender(s Sender) Option {
	return func(b *Bot) {
		if s != nil {
			b.sender = s
		}
	}
}

// New creates a Bot. No network traffic happens until Login.
func New(cfg Config, router *Router, opts ...Option) (*Bot, error) {
	if router == nil {
		return nil, errors.New("bot: nil router")
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = DefaultDeviceName
	}
	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("matrix client: %w", err)
	}
	b := &Bot{cfg: cfg, router: router, client: client, sender: client, log: zerolog.Nop(), pub: noopPublisher{}}
	for _, o := range opts {
		o(b)
	}
	client.Log = b.log.With().Str("component", "matrix").Logger()
	b.userID.Store(id.UserID(""))
	return b, nil
}

// UserID is the logged-in user, empty before Login.
func (b *Bot) UserID() id.UserID { return b.userID.Load().(id.UserID) }

// Homeserver is the configured homeserver URL.
func (b *Bot) Homeserver() string { return b.cfg.Homeserver }

// Ready reports whether the first sync completed.
func (b *Bot) Ready() bool { return b.ready.Load() }

// Login authenticates with username and password.
func (b *Bot) Login(ctx context.Context) error {
	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type:                     mautrix.AuthTypePassword,
		Identifier:               mautrix.UserIdentifier{Type: mautrix.IdentifierTypeUser, User: b.cfg.Username},
		Password:                 b.cfg.Password,
		InitialDeviceDisplayName: b.cfg.DeviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("login %s: %w", b.cfg.Username, err)
	}
	b.userID.Store(resp.UserID)
	b.log.Info().Str("user_id", string(resp.UserID)).Str("device_id", string(resp.DeviceID)).Msg("bot logged in")
	return nil
}

// Run syncs until ctx is canceled or the sync fails, then waits for in-flight
// handlers. Messages that arrived before the first sync are not answered.
func (b *Bot) Run(ctx context.Context) error {
	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("bot: unexpected syncer type")
	}
	syncer.OnSync(func(ctx context.Context, resp *mautrix.RespSync, since string) bool {
		if !b.ready.Swap(true) {
			b.log.Info().Msg("initial sync done")
		}
		return true
	})
	syncer.OnSync(b.client.DontProcessOldEvents)
	syncer.OnEventType(event.EventMessage, b.onMessage)

	err := b.client.SyncWithContext(ctx)
	b.ready.Store(false)
	b.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Wait blocks until every dispatched handler returned.
func (b *Bot) Wait() { b.wg.Wait() }

// onMessage filters room messages and dispatches eligible ones.
func (b *Bot) onMessage(ctx context.Context, evt *event.Event) {
	if evt.Mautrix.EventSource&event.SourceJoin == 0 {
		roomEventsTotal.WithLabelValues("not_joined").Inc()
		return
	}
	if uid := b.UserID(); uid != "" && evt.Sender == uid {
		roomEventsTotal.WithLabelValues("own").Inc()
		return
	}
	msg := evt.Content.AsMessage()
	if msg == nil || msg.MsgType != event.MsgText {
		roomEventsTotal.WithLabelValues("not_text").Inc()
		return
	}
	if !b.router.Matches(msg.Body) {
		roomEventsTotal.WithLabelValues("no_trigger").Inc()
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handle(ctx, evt.RoomID, evt.ID, evt.Sender, msg.Body)
	}()
}

func (b *Bot) handle(ctx context.Context, roomID id.RoomID, eventID id.EventID, sender id.UserID, body string) {
	start := time.Now()
	log := b.log.With().Str("room_id", string(roomID)).Str("event_id", string(eventID)).Str("sender", string(sender)).Logger()
	b.pub.Publish(Event{Name: EventCommandReceived, RoomID: string(roomID), EventID: string(eventID)})

	reply, ok, err := b.router.Handle(ctx, body)
	if err != nil {
		roomEventsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Dur("dur", time.Since(start)).Msg("command failed")
		b.pub.Publish(Event{Name: EventHandleError, RoomID: string(roomID), EventID: string(eventID), Fields: map[string]any{"error": err.Error()}})
		return
	}
	if !ok {
		return
	}
	if _, err := b.sender.SendText(ctx, roomID, reply); err != nil {
		roomEventsTotal.WithLabelValues("send_error").Inc()
		log.Error().Err(err).Msg("send reply failed")
		b.pub.Publish(Event{Name: EventHandleError, RoomID: string(roomID), EventID: string(eventID), Fields: map[string]any{"error": err.Error()}})
		return
	}
	roomEventsTotal.WithLabelValues("replied").Inc()
	log.Info().Dur("dur", time.Since(start)).Int("reply_len", len(reply)).Msg("reply sent")
	b.pub.Publish(Event{Name: EventReplySent, RoomID: string(roomID), EventID: string(eventID), Fields: map[string]any{"reply": reply}})
}
