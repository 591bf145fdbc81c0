package websockets

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"questlog/internal/database"
	"questlog/internal/events"
	"questlog/internal/repositories"
	"questlog/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 45 * time.Second
	sendChannelSize = 64
)

// client is one websocket connection bound to an owner. All writes to the
// connection go through the send channel and are drained by a single
// writeLoop; nothing else may call WriteMessage.
type client struct {
	ownerID uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
}

// Manager pushes an owner's game lifecycle events to their connected
// clients. Connections are grouped by owner so events never cross users.
type Manager struct {
	db       database.DB
	supabase *services.SupabaseService
	userRepo repositories.UserRepository
	eventBus *events.EventBus
	log      logger.Logger

	mu    sync.RWMutex
	conns map[uuid.UUID]map[*client]bool
}

func New(
	db database.DB,
	eventBus *events.EventBus,
	supabase *services.SupabaseService,
	userRepo repositories.UserRepository,
) (*Manager, error) {
	manager := &Manager{
		db:       db,
		supabase: supabase,
		userRepo: userRepo,
		eventBus: eventBus,
		log:      logger.New("websockets"),
		conns:    make(map[uuid.UUID]map[*client]bool),
	}

	eventBus.Subscribe(events.GAME_CHANNEL, manager.handleGameEvent)

	return manager, nil
}

// HandleWebSocket authenticates the connection from its token query
// parameter, registers it for the resolved owner, and blocks on the write
// loop until the client goes away.
func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	token := c.Query("token")
	if token == "" {
		log.Info("websocket connection missing token")
		_ = c.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token required"),
			time.Now().Add(writeWait),
		)
		_ = c.Close()
		return
	}

	ctx := logger.ContextWithTraceID(context.Background(), uuid.New().String())
	tokenInfo, err := m.supabase.ValidateToken(ctx, token)
	if err != nil {
		log.Info("websocket token validation failed", "error", err.Error())
		_ = c.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(writeWait),
		)
		_ = c.Close()
		return
	}

	user, err := m.userRepo.FindOrCreateBySupabaseID(ctx, m.db.SQL, tokenInfo)
	if err != nil {
		log.Info("websocket user resolution failed", "error", err.Error())
		_ = c.Close()
		return
	}

	cl := &client{
		ownerID: user.ID,
		conn:    c,
		send:    make(chan []byte, sendChannelSize),
	}

	m.register(cl)
	defer func() {
		m.unregister(cl)
		_ = c.Close()
	}()

	log.Info("websocket connected", "userID", user.ID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cl.readLoop()
	}()

	cl.writeLoop(done)
}

func (m *Manager) register(cl *client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conns[cl.ownerID] == nil {
		m.conns[cl.ownerID] = make(map[*client]bool)
	}
	m.conns[cl.ownerID][cl] = true
}

func (m *Manager) unregister(cl *client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns[cl.ownerID], cl)
	if len(m.conns[cl.ownerID]) == 0 {
		delete(m.conns, cl.ownerID)
	}
}

func (c *client) readLoop() {
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the connection's only writer; event payloads and pings both
// go out from here so concurrent fanout never races on the connection.
func (c *client) writeLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(writeWait),
			); err != nil {
				return
			}
		}
	}
}

// handleGameEvent forwards a published event to the owning user's
// connections only. Delivery is a non-blocking channel send; a client that
// cannot keep up loses the event rather than stalling the bus.
func (m *Manager) handleGameEvent(event events.Event) error {
	log := m.log.Function("handleGameEvent")

	if event.OwnerID == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	m.mu.RLock()
	clients := make([]*client, 0, len(m.conns[*event.OwnerID]))
	for cl := range m.conns[*event.OwnerID] {
		clients = append(clients, cl)
	}
	m.mu.RUnlock()

	for _, cl := range clients {
		select {
		case cl.send <- payload:
		default:
			log.Warn(
				"client send channel full, dropping event",
				"ownerID", event.OwnerID,
				"eventID", event.ID,
			)
		}
	}

	return nil
}

// Close drops every open connection.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ownerID, clients := range m.conns {
		for cl := range clients {
			_ = cl.conn.Close()
		}
		delete(m.conns, ownerID)
	}
}
