package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/store"
)

const (
	DefaultJoinHistory = 50
	DefaultIdleGrace   = 5 * time.Minute
)

// Options tunes a Handler. Zero values select defaults.
type Options struct {
	// JoinHistory is how many chat messages ROOM_JOINED carries.
	JoinHistory int

	// IdleGrace is how long a private room may stay empty before the
	// reaper deletes it.
	IdleGrace time.Duration

	CardWidth  float64
	CardHeight float64

	// Placement positions cards added without coordinates.
	Placement room.Placer

	// NewCardID overrides card id generation.
	NewCardID func() string

	Recorder Recorder
	Logger   *slog.Logger
}

// Stats is a point-in-time count of rooms and connections.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Seated      int `json:"seated"`
}

// CreateRoomRequest describes a room created outside a socket session.
type CreateRoomRequest struct {
	Name     string `json:"name"`
	IsPublic *bool  `json:"isPublic,omitempty"`
	Password string `json:"password,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// Handler dispatches commands from every connection. One mutex serializes
// all of its public methods, so at most one command is in flight.
type Handler struct {
	store     *store.Store
	registry  *Registry
	fanout    *Fanout
	opts      Options
	placement room.Placer
	newCardID func() string
	recorder  Recorder
	log       *slog.Logger
	mu        sync.Mutex
}

// NewHandler creates a handler over st.
func NewHandler(st *store.Store, opts Options) *Handler {
	if opts.JoinHistory <= 0 {
		opts.JoinHistory = DefaultJoinHistory
	}
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = DefaultIdleGrace
	}
	if opts.CardWidth <= 0 {
		opts.CardWidth = room.DefaultCardWidth
	}
	if opts.CardHeight <= 0 {
		opts.CardHeight = room.DefaultCardHeight
	}

	h := &Handler{
		store:     st,
		registry:  NewRegistry(),
		opts:      opts,
		placement: opts.Placement,
		newCardID: opts.NewCardID,
		recorder:  opts.Recorder,
		log:       opts.Logger,
	}
	if h.placement == nil {
		h.placement = room.DefaultPlacement()
	}
	if h.newCardID == nil {
		h.newCardID = uuid.NewString
	}
	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.fanout = NewFanout(h.registry, h.recorder, h.log)
	return h
}

// Connect registers a new connection. It starts unjoined and receives no
// broadcasts until its first successful join.
func (h *Handler) Connect(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.registry.Add(conn)
	h.recorder.ConnectionOpened()
	h.log.Info("conn.opened", "conn", conn.ID(), "connections", h.registry.Len())
}

// Disconnect removes a connection and unseats it. Repeated calls for the
// same id are no-ops.
func (h *Handler) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.registry.Remove(connID)
	if !ok {
		return
	}
	h.recorder.ConnectionClosed()
	h.log.Info("conn.closed", "conn", connID, "user", e.Identity, "room", e.RoomID)

	if !e.Seated {
		return
	}
	r, err := h.store.Get(e.RoomID)
	if err != nil {
		return
	}
	r.RemoveMember(e.Identity, h.store.Now())
	h.fanout.BroadcastToRoom(r.ID, Presence{Type: TypeUserLeft, User: e.Identity, RoomID: r.ID}, "")
	h.fanout.BroadcastRoomState(r)
}

// HandleMessage decodes and applies one inbound frame from connID.
func (h *Handler) HandleMessage(connID string, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.registry.Get(connID)
	if !ok {
		h.log.Debug("command.unknown_conn", "conn", connID)
		return
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		h.recorder.CommandProcessed(commandLabel(""), OutcomeInvalid)
		h.log.Debug("command.invalid", "conn", connID, "error", err)
		h.reply(e, newError(MsgInvalidFormat, ""))
		return
	}

	defer func() {
		if p := recover(); p != nil {
			h.recorder.CommandProcessed(commandLabel(head.Type), OutcomeError)
			h.log.Error("command.panic", "conn", connID, "type", head.Type, "panic", p)
			h.reply(e, newError(MsgInternal, ""))
		}
	}()

	outcome := h.dispatch(e, head.Type, raw)
	h.recorder.CommandProcessed(commandLabel(head.Type), outcome)
	h.log.Debug("command.handled", "conn", connID, "type", head.Type, "user", e.Identity, "room", e.RoomID, "outcome", outcome)
}

// ReapIdleRooms deletes private rooms that stayed empty past the grace
// window. Observers attached to a reaped room return to the unjoined state.
func (h *Handler) ReapIdleRooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := h.store.ReapIdle(h.opts.IdleGrace)
	for _, id := range removed {
		h.registry.Detach(id)
	}
	if len(removed) > 0 {
		h.recorder.RoomsReaped(len(removed))
	}
	return removed
}

// ListRooms returns the public room summaries.
func (h *Handler) ListRooms() []room.Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store.ListPublic()
}

// Room returns a snapshot of one room.
func (h *Handler) Room(id string) (room.View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.store.Get(id)
	if err != nil {
		return room.View{}, err
	}
	return r.Snapshot(), nil
}

// ChatHistory returns the last limit messages of a room. A non-positive
// limit selects the join history size.
func (h *Handler) ChatHistory(id string, limit int) ([]room.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.store.Get(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = h.opts.JoinHistory
	}
	if limit > r.ChatLimit() {
		limit = r.ChatLimit()
	}
	return r.ChatHistory(limit), nil
}

// CreateRoom creates a room without seating anyone in it.
func (h *Handler) CreateRoom(req CreateRoomRequest) (room.View, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := h.createRoom(req.Name, req.IsPublic, req.Password, firstNonEmpty(req.Owner, AnonymousOwner))
	if err != nil {
		return room.View{}, err
	}
	return r.Snapshot(), nil
}

// Stats counts rooms, connections and seated connections.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Stats{
		Rooms:       h.store.Count(),
		Connections: h.registry.Len(),
		Seated:      h.registry.SeatedCount(),
	}
}

// Connection returns a copy of the registry entry for connID.
func (h *Handler) Connection(connID string) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.registry.Get(connID)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (h *Handler) dispatch(e *Entry, kind string, raw []byte) string {
	silent, known := commands[kind]
	if !known {
		h.reply(e, newError("Unknown message type: "+kind, ""))
		return OutcomeInvalid
	}

	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		if !silent {
			h.reply(e, newError(MsgInvalidFormat, ""))
		}
		return OutcomeInvalid
	}

	switch kind {
	case TypeJoin:
		return h.join(e, cmd)
	case TypeJoinRoom:
		return h.joinRoom(e, cmd.RoomID, cmd.Password, cmd.User, true)
	case TypeCreateRoom:
		return h.handleCreateRoom(e, cmd)
	case TypeLeaveRoom:
		return h.leaveRoom(e)
	case TypeListRooms:
		h.reply(e, RoomList{Type: TypeRoomList, Rooms: h.store.ListPublic()})
		return OutcomeOK
	case TypeAddCard:
		return h.addCard(e, cmd)
	case TypeMoveCard:
		return h.moveCard(e, cmd)
	case TypeResizeCard:
		return h.resizeCard(e, cmd)
	case TypeDeleteCard:
		return h.deleteCard(e, cmd)
	case TypeCursor:
		return h.cursor(e, cmd)
	case TypeChat:
		return h.chat(e, cmd)
	case TypeClick:
		return h.click(e, cmd)
	}
	return OutcomeIgnored
}

// commands maps every known type to whether a malformed payload is dropped
// without a reply.
var commands = map[string]bool{
	TypeJoin:       false,
	TypeJoinRoom:   false,
	TypeCreateRoom: false,
	TypeLeaveRoom:  false,
	TypeListRooms:  false,
	TypeAddCard:    true,
	TypeMoveCard:   true,
	TypeResizeCard: true,
	TypeDeleteCard: true,
	TypeCursor:     true,
	TypeChat:       true,
	TypeClick:      true,
}

func commandLabel(kind string) string {
	if _, ok := commands[kind]; ok {
		return kind
	}
	return "unknown"
}

func (h *Handler) join(e *Entry, cmd Command) string {
	if e.Seated {
		return OutcomeIgnored
	}

	roomID := e.RoomID
	if roomID == "" {
		roomID = room.PublicID
	}
	r, err := h.store.Get(roomID)
	if err != nil {
		h.reply(e, joinError(err))
		return OutcomeError
	}

	identity, err := r.AddMember(cmd.User)
	if err != nil {
		h.reply(e, joinError(err))
		return OutcomeError
	}

	e.Identity, e.RoomID, e.Seated = identity, r.ID, true
	h.log.Info("room.joined", "conn", e.Conn.ID(), "user", identity, "room", r.ID)
	h.announceJoin(e, r)
	return OutcomeOK
}

// joinRoom moves e into roomID. The new seat is taken before the old one
// is released so a failure leaves the connection where it was.
func (h *Handler) joinRoom(e *Entry, roomID, password, user string, checkPassword bool) string {
	if roomID == "" {
		roomID = room.PublicID
	}
	r, err := h.store.Get(roomID)
	if err != nil {
		h.reply(e, joinError(err))
		return OutcomeError
	}
	if checkPassword {
		if err := h.store.CheckAccess(r, password); err != nil {
			h.reply(e, joinError(err))
			return OutcomeError
		}
	}

	if e.RoomID == r.ID && (e.Seated || (e.Identity == "" && user == "")) {
		h.reply(e, h.joinedPayload(e, r))
		return OutcomeOK
	}

	identity := e.Identity
	if identity == "" {
		identity = user
	}

	seated := ""
	if identity != "" {
		if seated, err = r.AddMember(identity); err != nil {
			h.reply(e, joinError(err))
			return OutcomeError
		}
	}

	h.leaveCurrent(e)
	e.RoomID = r.ID
	if seated != "" {
		e.Identity, e.Seated = seated, true
	}

	h.log.Info("room.joined", "conn", e.Conn.ID(), "user", e.Identity, "room", r.ID, "observer", !e.Seated)
	h.announceJoin(e, r)
	return OutcomeOK
}

func (h *Handler) handleCreateRoom(e *Entry, cmd Command) string {
	owner := firstNonEmpty(cmd.User, e.Identity, AnonymousOwner)
	r, err := h.createRoom(cmd.Name, cmd.IsPublic, cmd.Password, owner)
	if err != nil {
		h.log.Error("room.create_failed", "conn", e.Conn.ID(), "error", err)
		h.reply(e, newError(MsgCreateFailed, SourceCreate))
		return OutcomeError
	}

	h.reply(e, RoomCreated{Type: TypeRoomCreated, Room: r.Snapshot()})
	return h.joinRoom(e, r.ID, "", cmd.User, false)
}

func (h *Handler) leaveRoom(e *Entry) string {
	if !e.Seated {
		return OutcomeIgnored
	}
	h.leaveCurrent(e)
	e.RoomID = ""
	return h.joinRoom(e, room.PublicID, "", "", false)
}

// leaveCurrent unseats e from its room and tells the rest of the room. The
// connection stays attached until the caller moves it.
func (h *Handler) leaveCurrent(e *Entry) {
	if !e.Seated {
		return
	}
	e.Seated = false

	r, err := h.store.Get(e.RoomID)
	if err != nil {
		return
	}
	r.RemoveMember(e.Identity, h.store.Now())
	h.log.Info("room.left", "conn", e.Conn.ID(), "user", e.Identity, "room", r.ID)

	exclude := e.Conn.ID()
	h.fanout.BroadcastToRoom(r.ID, Presence{Type: TypeUserLeft, User: e.Identity, RoomID: r.ID}, exclude)
	h.fanout.BroadcastToRoom(r.ID, newRoomState(r.Snapshot()), exclude)
}

func (h *Handler) announceJoin(e *Entry, r *room.Room) {
	h.reply(e, h.joinedPayload(e, r))
	if !e.Seated {
		return
	}
	h.fanout.BroadcastToRoom(r.ID, Presence{Type: TypeUserJoined, User: e.Identity, RoomID: r.ID}, e.Conn.ID())
	h.fanout.BroadcastRoomState(r)
}

func (h *Handler) joinedPayload(e *Entry, r *room.Room) RoomJoined {
	user := ""
	if e.Seated {
		user = e.Identity
	}
	return RoomJoined{
		Type:        TypeRoomJoined,
		Room:        r.Snapshot(),
		ChatHistory: r.ChatHistory(h.opts.JoinHistory),
		User:        user,
	}
}

func (h *Handler) createRoom(name string, isPublic *bool, password, owner string) (*room.Room, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultRoomName
	}
	public := isPublic == nil || *isPublic
	return h.store.Create(name, public, owner, password)
}

func (h *Handler) addCard(e *Entry, cmd Command) string {
	r, ok := h.seatedRoom(e)
	if !ok || cmd.Card == nil {
		return OutcomeIgnored
	}
	in := cmd.Card

	c := room.Card{
		ID:      h.newCardID(),
		User:    firstNonEmpty(in.User, e.Identity),
		Kind:    in.Kind,
		Content: in.Content,
		W:       h.opts.CardWidth,
		H:       h.opts.CardHeight,
	}
	if in.X == nil || in.Y == nil {
		c.X, c.Y = h.placement.Place()
	}
	if in.X != nil {
		c.X = *in.X
	}
	if in.Y != nil {
		c.Y = *in.Y
	}
	if in.W != nil {
		c.W = *in.W
	}
	if in.H != nil {
		c.H = *in.H
	}

	r.AddCard(c)
	h.fanout.BroadcastRoomState(r)
	return OutcomeOK
}

func (h *Handler) moveCard(e *Entry, cmd Command) string {
	r, ok := h.attachedRoom(e)
	if !ok || cmd.X == nil || cmd.Y == nil {
		return OutcomeIgnored
	}
	if !r.MoveCard(cmd.ID, *cmd.X, *cmd.Y) {
		return OutcomeIgnored
	}
	h.fanout.BroadcastRoomState(r)
	return OutcomeOK
}

func (h *Handler) resizeCard(e *Entry, cmd Command) string {
	r, ok := h.attachedRoom(e)
	if !ok || cmd.W == nil || cmd.H == nil {
		return OutcomeIgnored
	}
	if !r.ResizeCard(cmd.ID, *cmd.W, *cmd.H) {
		return OutcomeIgnored
	}
	h.fanout.BroadcastRoomState(r)
	return OutcomeOK
}

func (h *Handler) deleteCard(e *Entry, cmd Command) string {
	r, ok := h.attachedRoom(e)
	if !ok {
		return OutcomeIgnored
	}
	if !r.DeleteCard(cmd.ID, firstNonEmpty(cmd.User, e.Identity)) {
		return OutcomeIgnored
	}
	h.fanout.BroadcastRoomState(r)
	return OutcomeOK
}

func (h *Handler) cursor(e *Entry, cmd Command) string {
	r, ok := h.seatedRoom(e)
	if !ok || cmd.User == "" || cmd.X == nil || cmd.Y == nil {
		return OutcomeIgnored
	}
	if !r.SetCursor(cmd.User, *cmd.X, *cmd.Y) {
		return OutcomeIgnored
	}
	h.fanout.BroadcastRoomState(r)
	return OutcomeOK
}

func (h *Handler) chat(e *Entry, cmd Command) string {
	r, ok := h.seatedRoom(e)
	if !ok || cmd.Text == nil || *cmd.Text == "" {
		return OutcomeIgnored
	}

	msg := room.ChatMessage{
		User:   firstNonEmpty(cmd.User, e.Identity),
		Text:   *cmd.Text,
		RoomID: r.ID,
	}
	if cmd.Time != nil && *cmd.Time != 0 {
		msg.Time = *cmd.Time
	} else {
		msg.Time = h.store.Now().UnixMilli()
	}

	r.AppendChat(msg)
	h.fanout.BroadcastToRoom(r.ID, Chat{Type: TypeChat, ChatMessage: msg}, e.Conn.ID())
	return OutcomeOK
}

func (h *Handler) click(e *Entry, cmd Command) string {
	r, ok := h.seatedRoom(e)
	if !ok || cmd.X == nil || cmd.Y == nil {
		return OutcomeIgnored
	}
	h.fanout.BroadcastToRoom(r.ID, Click{
		Type: TypeClick,
		User: firstNonEmpty(cmd.User, e.Identity),
		X:    *cmd.X,
		Y:    *cmd.Y,
	}, e.Conn.ID())
	return OutcomeOK
}

func (h *Handler) seatedRoom(e *Entry) (*room.Room, bool) {
	if !e.Seated {
		return nil, false
	}
	return h.attachedRoom(e)
}

func (h *Handler) attachedRoom(e *Entry) (*room.Room, bool) {
	if e.RoomID == "" {
		return nil, false
	}
	r, err := h.store.Get(e.RoomID)
	if err != nil {
		return nil, false
	}
	return r, true
}

func (h *Handler) reply(e *Entry, payload any) {
	h.fanout.SendTo(e.Conn, payload)
}

func joinError(err error) Error {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		return newError(MsgRoomNotFound, SourceJoin)
	case errors.Is(err, store.ErrIncorrectPassword):
		return newError(MsgBadPassword, SourceJoin)
	case errors.Is(err, room.ErrRoomFull):
		return newError(MsgRoomFull, SourceJoin)
	case errors.Is(err, room.ErrDuplicateIdentity):
		return newError(MsgNoUniqueName, SourceJoin)
	case errors.Is(err, room.ErrEmptyIdentity):
		return newError(MsgNameRequired, SourceJoin)
	default:
		return newError(MsgInternal, SourceJoin)
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
