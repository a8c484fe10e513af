// Command boardctl is a small terminal client for a running board server.
// It lists public rooms over REST, posts chat messages, and tails a room's
// live event stream over the WebSocket endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/collab-board/board/room"
	"github.com/wricardo/collab-board/board/session"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "boardctl: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	roomFlag := &cli.StringFlag{
		Name:  "room",
		Value: "public",
		Usage: "Room ID",
	}
	userFlag := &cli.StringFlag{
		Name:     "user",
		Usage:    "Display name",
		Required: true,
		Sources:  cli.EnvVars("BOARD_USER"),
	}
	passwordFlag := &cli.StringFlag{
		Name:    "password",
		Usage:   "Room password",
		Sources: cli.EnvVars("BOARD_PASSWORD"),
	}

	return &cli.Command{
		Name:  "boardctl",
		Usage: "talk to a collaborative board server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "Board server base URL",
				Sources: cli.EnvVars("BOARD_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "rooms",
				Usage: "List public rooms",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rooms, err := newBoardClient(cmd.String("server")).listRooms(ctx)
					if err != nil {
						return err
					}
					printRooms(out, rooms)
					return nil
				},
			},
			{
				Name:  "chat",
				Usage: "Join a room and post one chat message",
				Flags: []cli.Flag{
					roomFlag,
					userFlag,
					passwordFlag,
					&cli.StringFlag{Name: "text", Usage: "Message text", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c := newBoardClient(cmd.String("server"))
					conn, joined, err := c.join(ctx, cmd.String("room"), cmd.String("password"), cmd.String("user"))
					if err != nil {
						return err
					}
					defer closeConn(conn)

					if err := sendChat(conn, cmd.String("text")); err != nil {
						return err
					}
					fmt.Fprintf(out, "%s posted to %s\n", joined.User, joined.Room.ID)
					return nil
				},
			},
			{
				Name:  "tail",
				Usage: "Join a room and print every event until interrupted",
				Flags: []cli.Flag{roomFlag, userFlag, passwordFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c := newBoardClient(cmd.String("server"))
					conn, joined, err := c.join(ctx, cmd.String("room"), cmd.String("password"), cmd.String("user"))
					if err != nil {
						return err
					}
					defer closeConn(conn)

					fmt.Fprintf(out, "joined %s (%s) as %s\n", joined.Room.Name, joined.Room.ID, joined.User)
					for _, m := range joined.ChatHistory {
						fmt.Fprintln(out, formatChat(m))
					}
					return tail(ctx, conn, out)
				},
			},
		},
	}
}

// boardClient talks to one board server.
type boardClient struct {
	baseURL    string
	httpClient *http.Client
}

func newBoardClient(baseURL string) *boardClient {
	return &boardClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *boardClient) listRooms(ctx context.Context) ([]room.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/rooms", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var result struct {
		Rooms []room.Summary `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return result.Rooms, nil
}

// wsURL maps the server base URL onto its /ws endpoint.
func (c *boardClient) wsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// join dials the server and seats user in roomID. It returns once the
// server confirms with ROOM_JOINED or refuses with ERROR.
func (c *boardClient) join(ctx context.Context, roomID, password, user string) (*websocket.Conn, session.RoomJoined, error) {
	var joined session.RoomJoined

	wsURL, err := c.wsURL()
	if err != nil {
		return nil, joined, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, joined, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	cmd := session.Command{
		Type:     session.TypeJoinRoom,
		RoomID:   roomID,
		Password: password,
		User:     user,
	}
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, joined, fmt.Errorf("failed to send join: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, joined, fmt.Errorf("failed waiting for join: %w", err)
		}

		switch envelopeType(data) {
		case session.TypeRoomJoined:
			if err := json.Unmarshal(data, &joined); err != nil {
				conn.Close()
				return nil, joined, fmt.Errorf("failed to decode ROOM_JOINED: %w", err)
			}
			return conn, joined, nil
		case session.TypeError:
			var e session.Error
			json.Unmarshal(data, &e)
			conn.Close()
			return nil, joined, errors.New(e.Message)
		}
	}
}

func sendChat(conn *websocket.Conn, text string) error {
	cmd := session.Command{Type: session.TypeChat, Text: &text}
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to send chat: %w", err)
	}
	return nil
}

// tail prints each envelope until ctx is done or the server closes.
func tail(ctx context.Context, conn *websocket.Conn, out io.Writer) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, formatEnvelope(data))
	}
}

func closeConn(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
}

func envelopeType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	json.Unmarshal(data, &head)
	return head.Type
}

// formatEnvelope renders one server envelope as a single line.
func formatEnvelope(data []byte) string {
	switch envelopeType(data) {
	case session.TypeChat:
		var m room.ChatMessage
		if json.Unmarshal(data, &m) == nil {
			return formatChat(m)
		}
	case session.TypeUserJoined, session.TypeUserLeft:
		var p session.Presence
		if json.Unmarshal(data, &p) == nil {
			verb := "joined"
			if p.Type == session.TypeUserLeft {
				verb = "left"
			}
			return fmt.Sprintf("* %s %s %s", p.User, verb, p.RoomID)
		}
	case session.TypeRoomState:
		var v room.View
		if json.Unmarshal(data, &v) == nil {
			return fmt.Sprintf("~ %s: %d members, %d cards", v.ID, v.MemberCount, len(v.Cards))
		}
	case session.TypeError:
		var e session.Error
		if json.Unmarshal(data, &e) == nil {
			return "! " + e.Message
		}
	}
	return string(data)
}

func formatChat(m room.ChatMessage) string {
	ts := time.UnixMilli(m.Time).Format("15:04:05")
	return fmt.Sprintf("[%s] %s: %s", ts, m.User, m.Text)
}

func printRooms(out io.Writer, rooms []room.Summary) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tOWNER")
	for _, r := range rooms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Name, r.MemberCount, r.Owner)
	}
	w.Flush()
}
