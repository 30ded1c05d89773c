package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// GameKind identifies a supported server software profile.
type GameKind string

const (
	GameMinecraft GameKind = "minecraft"
	GameCS2       GameKind = "cs2"
	GameGTA5      GameKind = "gta5"
	GameRust      GameKind = "rust"
	GameARK       GameKind = "ark"
	GameTF2       GameKind = "tf2"
)

// GameInfo is the display metadata and default network port of a game kind.
type GameInfo struct {
	ID          GameKind `json:"id"`
	Name        string   `json:"name"`
	DefaultPort int      `json:"defaultPort"`
	Icon        string   `json:"icon"`
}

var games = map[GameKind]GameInfo{
	GameMinecraft: {ID: GameMinecraft, Name: "Minecraft", DefaultPort: 25565, Icon: "fas fa-cube"},
	GameCS2:       {ID: GameCS2, Name: "Counter-Strike 2", DefaultPort: 27015, Icon: "fas fa-crosshairs"},
	GameGTA5:      {ID: GameGTA5, Name: "GTA V", DefaultPort: 30120, Icon: "fas fa-car"},
	GameRust:      {ID: GameRust, Name: "Rust", DefaultPort: 28015, Icon: "fas fa-hammer"},
	GameARK:       {ID: GameARK, Name: "ARK", DefaultPort: 7777, Icon: "fas fa-dinosaur"},
	GameTF2:       {ID: GameTF2, Name: "Team Fortress 2", DefaultPort: 27015, Icon: "fas fa-hat-cowboy"},
}

// LookupGame returns the metadata for a game kind.
func LookupGame(kind string) (GameInfo, bool) {
	info, ok := games[GameKind(kind)]
	return info, ok
}

// GameInfoFor returns metadata for kind, falling back to a generic entry for
// rows written before a kind was retired.
func GameInfoFor(kind GameKind) GameInfo {
	if info, ok := games[kind]; ok {
		return info
	}
	return GameInfo{ID: kind, Name: string(kind), Icon: "fas fa-server"}
}

// SupportedGames returns the game catalog sorted by id.
func SupportedGames() []GameInfo {
	out := make([]GameInfo, 0, len(games))
	for _, g := range games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ServerStatus is the lifecycle state of a server row.
type ServerStatus string

const (
	ServerInstalling ServerStatus = "installing"
	ServerActive     ServerStatus = "active"
	ServerRestarting ServerStatus = "restarting"
	ServerStopped    ServerStatus = "stopped"
)

// Valid reports whether s is a known server status.
func (s ServerStatus) Valid() bool {
	switch s {
	case ServerInstalling, ServerActive, ServerRestarting, ServerStopped:
		return true
	}
	return false
}

// Server represents a servidores row.
type Server struct {
	ID         uuid.UUID    `json:"id"`
	OwnerID    uuid.UUID    `json:"usuario_id"`
	PlanID     int64        `json:"plan_id"`
	Name       string       `json:"nombre"`
	Game       GameKind     `json:"juego"`
	IP         string       `json:"ip"`
	Port       int          `json:"puerto"`
	Status     ServerStatus `json:"estado"`
	MaxPlayers int          `json:"max_players"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ServerDetail is a server joined with its plan and owner.
type ServerDetail struct {
	Server
	PlanName      string   `json:"plan_nombre"`
	PlanRAMMB     int      `json:"plan_ram"`
	OwnerUsername string   `json:"username,omitempty"`
	OwnerEmail    string   `json:"email,omitempty"`
	GameInfo      GameInfo `json:"juego_info"`
}

// ServerFilter scopes server listings.
type ServerFilter struct {
	OwnerID uuid.UUID // uuid.Nil = all owners
	Status  ServerStatus
	Page
}

// ActionKind is a requested server operation.
type ActionKind string

const (
	ActionStart   ActionKind = "start"
	ActionStop    ActionKind = "stop"
	ActionRestart ActionKind = "restart"
	ActionBackup  ActionKind = "backup"
	ActionUpdate  ActionKind = "update"
)

// ActionLogStatus is the state of an action-log entry.
type ActionLogStatus string

const (
	ActionPending   ActionLogStatus = "pending"
	ActionCompleted ActionLogStatus = "completed"
)

// ServerAction is a server_actions row: one entry in the append-only audit log.
type ServerAction struct {
	ID        uuid.UUID       `json:"id"`
	ServerID  uuid.UUID       `json:"servidor_id"`
	Action    ActionKind      `json:"accion"`
	Status    ActionLogStatus `json:"estado"`
	Result    string          `json:"resultado"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActionPlan is the outcome of validating an action against a server's status.
type ActionPlan struct {
	Action ActionKind
	From   ServerStatus
	To     ServerStatus
	Result string
	// SettleTo is set when the new status is transient and a provisioning job
	// must later move the server on (restarting -> active).
	SettleTo ServerStatus
}

// ChangesStatus reports whether the plan writes a new status.
func (p ActionPlan) ChangesStatus() bool {
	return p.From != p.To
}

// PlanServerAction validates action against the current status and returns the
// transition to apply. Unknown actions and invalid source states fail with
// INVALID_ACTION.
func PlanServerAction(current ServerStatus, action string) (ActionPlan, error) {
	kind := ActionKind(action)
	p := ActionPlan{Action: kind, From: current, To: current}

	switch kind {
	case ActionStart:
		if current != ServerStopped {
			return ActionPlan{}, invalidTransition(kind, current)
		}
		p.To = ServerActive
		p.Result = "server started"
	case ActionStop:
		if current != ServerActive {
			return ActionPlan{}, invalidTransition(kind, current)
		}
		p.To = ServerStopped
		p.Result = "server stopped"
	case ActionRestart:
		if current != ServerActive {
			return ActionPlan{}, invalidTransition(kind, current)
		}
		p.To = ServerRestarting
		p.SettleTo = ServerActive
		p.Result = "server restarting"
	case ActionBackup:
		p.Result = "backup started"
	case ActionUpdate:
		p.Result = "update started"
	default:
		return ActionPlan{}, ErrInvalidAction(fmt.Sprintf("unknown action %q", action))
	}
	return p, nil
}

func invalidTransition(action ActionKind, current ServerStatus) *AppError {
	return ErrInvalidAction(fmt.Sprintf("cannot %s a server that is %s", action, current))
}

// ServerStats is the admin aggregate for servers.
type ServerStats struct {
	ByStatus    []StatusCount `json:"porEstado"`
	Total       int           `json:"total"`
	ActiveRAMMB int64         `json:"totalRAM"`
}

// StatusCount is one GROUP BY estado row.
type StatusCount struct {
	Status string `json:"estado"`
	Count  int    `json:"count"`
}
