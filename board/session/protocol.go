package session

import "github.com/wricardo/collab-board/board/room"

// Inbound command types.
const (
	TypeJoin       = "JOIN"
	TypeJoinRoom   = "JOIN_ROOM"
	TypeCreateRoom = "CREATE_ROOM"
	TypeLeaveRoom  = "LEAVE_ROOM"
	TypeListRooms  = "LIST_ROOMS"
	TypeAddCard    = "ADD_CARD"
	TypeMoveCard   = "MOVE_CARD"
	TypeResizeCard = "RESIZE_CARD"
	TypeDeleteCard = "DELETE_CARD"
	TypeCursor     = "CURSOR"
	TypeChat       = "CHAT"
	TypeClick      = "CLICK"
)

// Outbound envelope types. CHAT and CLICK are relayed under their inbound
// names.
const (
	TypeRoomJoined  = "ROOM_JOINED"
	TypeRoomCreated = "ROOM_CREATED"
	TypeRoomList    = "ROOM_LIST"
	TypeRoomState   = "ROOM_STATE"
	TypeUserJoined  = "USER_JOINED"
	TypeUserLeft    = "USER_LEFT"
	TypeError       = "ERROR"
)

// Error sources attached to precondition failures.
const (
	SourceJoin   = "join"
	SourceCreate = "create"
)

// Protocol error messages.
const (
	MsgInvalidFormat = "Invalid message format"
	MsgInternal      = "Internal error"
	MsgRoomNotFound  = "Room not found"
	MsgBadPassword   = "Incorrect password"
	MsgRoomFull      = "Room is full"
	MsgNoUniqueName  = "Could not find unique username"
	MsgNameRequired  = "Username is required"
	MsgCreateFailed  = "Could not create room"
)

// DefaultRoomName names rooms created without a name.
const DefaultRoomName = "New Room"

// AnonymousOwner owns rooms created by a connection with no identity.
const AnonymousOwner = "Anonymous"

// Command is the union of every inbound payload. Numeric fields are
// pointers so that an omitted value can be told apart from zero.
type Command struct {
	Type string `json:"type"`

	User     string `json:"user,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Password string `json:"password,omitempty"`

	Name     string `json:"name,omitempty"`
	IsPublic *bool  `json:"isPublic,omitempty"`

	ID   string     `json:"id,omitempty"`
	Card *CardInput `json:"card,omitempty"`

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	W *float64 `json:"w,omitempty"`
	H *float64 `json:"h,omitempty"`

	Text *string `json:"text,omitempty"`
	Time *int64  `json:"time,omitempty"`
}

// CardInput is the client's description of a new card.
type CardInput struct {
	User    string   `json:"user,omitempty"`
	Kind    string   `json:"type,omitempty"`
	Content string   `json:"content,omitempty"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	W       *float64 `json:"w,omitempty"`
	H       *float64 `json:"h,omitempty"`
}

// RoomJoined is sent only to the joining connection.
type RoomJoined struct {
	Type        string             `json:"type"`
	Room        room.View          `json:"room"`
	ChatHistory []room.ChatMessage `json:"chatHistory"`
	User        string             `json:"user"`
}

// RoomCreated confirms CREATE_ROOM to its sender.
type RoomCreated struct {
	Type string    `json:"type"`
	Room room.View `json:"room"`
}

// RoomList answers LIST_ROOMS.
type RoomList struct {
	Type  string         `json:"type"`
	Rooms []room.Summary `json:"rooms"`
}

// RoomState carries a full snapshot with the view fields at the top level.
type RoomState struct {
	Type string `json:"type"`
	room.View
}

// Presence announces USER_JOINED and USER_LEFT.
type Presence struct {
	Type   string `json:"type"`
	User   string `json:"user"`
	RoomID string `json:"roomId"`
}

// Chat relays one chat message.
type Chat struct {
	Type string `json:"type"`
	room.ChatMessage
}

// Click relays a pointer click to the rest of the room.
type Click struct {
	Type string  `json:"type"`
	User string  `json:"user"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Error reports a protocol error or a failed precondition.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

func newError(message, source string) Error {
	return Error{Type: TypeError, Message: message, Source: source}
}

func newRoomState(v room.View) RoomState {
	return RoomState{Type: TypeRoomState, View: v}
}
