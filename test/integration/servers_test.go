//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/celerhost/panel/internal/domain"
	"github.com/celerhost/panel/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settleTimeout = 5 * time.Second

func TestServers_ProvisioningCompletes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")

	id := env.CreateServer(token, "survival", "minecraft")
	assert.Equal(t, "installing", testutil.ServerStatus(t, env, id))

	testutil.WaitForServerStatus(t, env, id, "active", settleTimeout)

	resp := env.AuthGET("/servers/"+id.String(), token)
	var view struct {
		Port     int    `json:"puerto"`
		IP       string `json:"ip"`
		PlanName string `json:"plan_nombre"`
		Actions  []struct {
			Action string `json:"accion"`
			Status string `json:"estado"`
		} `json:"acciones"`
	}
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &view)
	assert.Equal(t, 25565, view.Port)
	assert.NotEmpty(t, view.IP)
	assert.NotEmpty(t, view.PlanName)
}

func TestServers_UnknownGameRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")

	resp := env.POST("/servers", map[string]interface{}{"nombre": "x", "juego": "tetris", "plan_id": 1}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServers_ActionStateMachine(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")
	id := env.CreateServer(token, "arena", "cs2")
	path := "/servers/" + id.String() + "/actions"

	// still installing
	resp := env.POST(path, map[string]string{"accion": "stop"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, domain.CodeInvalidAction)

	testutil.WaitForServerStatus(t, env, id, "active", settleTimeout)

	resp = env.POST(path, map[string]string{"accion": "stop"}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "stopped", testutil.ServerStatus(t, env, id))

	resp = env.POST(path, map[string]string{"accion": "stop"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST(path, map[string]string{"accion": "backup"}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "stopped", testutil.ServerStatus(t, env, id))

	resp = env.POST(path, map[string]string{"accion": "start"}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST(path, map[string]string{"accion": "restart"}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "restarting", testutil.ServerStatus(t, env, id))
	testutil.WaitForServerStatus(t, env, id, "active", settleTimeout)

	var logged int
	require.NoError(t, env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM server_actions WHERE servidor_id = $1", id).Scan(&logged))
	assert.Equal(t, 4, logged, "stop, backup, start, restart")
}

func TestServers_NonOwnerSeesNotFound(t *testing.T) {
	env := testutil.NewTestEnv(t)
	owner, _ := env.RegisterUser("alice", "alice@test.com")
	other, _ := env.RegisterUser("mallory", "mallory@test.com")
	id := env.CreateServer(owner, "private", "rust")

	resp := env.AuthGET("/servers/"+id.String(), other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST("/servers/"+id.String()+"/actions", map[string]string{"accion": "backup"}, other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.AuthDELETE("/servers/"+id.String(), other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// a random id answers the same way
	resp = env.AuthGET("/servers/"+uuid.NewString(), other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServers_AdminSeesAll(t *testing.T) {
	env := testutil.NewTestEnv(t)
	alice, _ := env.RegisterUser("alice", "alice@test.com")
	bob, _ := env.RegisterUser("bob", "bob@test.com")
	admin, _ := env.RegisterAdmin("root")
	env.CreateServer(alice, "a", "tf2")
	env.CreateServer(bob, "b", "ark")

	var list struct {
		Servers []struct {
			Username string `json:"username"`
		} `json:"servers"`
		Total int `json:"total"`
	}
	resp := env.AuthGET("/servers", admin)
	testutil.DecodeJSON(t, resp, &list)
	assert.Equal(t, 2, list.Total)
	for _, s := range list.Servers {
		assert.NotEmpty(t, s.Username, "admin listings carry the owner")
	}

	resp = env.AuthGET("/servers", alice)
	testutil.DecodeJSON(t, resp, &list)
	assert.Equal(t, 1, list.Total)
}

func TestServers_PaginationAndFilter(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")
	for _, name := range []string{"s1", "s2", "s3"} {
		env.CreateServer(token, name, "gta5")
	}

	var list struct {
		Servers    []map[string]interface{} `json:"servers"`
		Total      int                      `json:"total"`
		TotalPages int                      `json:"totalPages"`
	}
	resp := env.AuthGET("/servers?page=2&limit=2", token)
	testutil.DecodeJSON(t, resp, &list)
	assert.Len(t, list.Servers, 1)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.TotalPages)

	resp = env.AuthGET("/servers?estado=stopped", token)
	testutil.DecodeJSON(t, resp, &list)
	assert.Equal(t, 0, list.Total)
	assert.Empty(t, list.Servers)
}

func TestServers_DeleteDuringInstallStaysDeleted(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")
	id := env.CreateServer(token, "doomed", "minecraft")

	resp := env.AuthDELETE("/servers/"+id.String(), token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.False(t, env.Jobs.Pending(id))

	time.Sleep(2 * testutil.TestProvisionDelay)

	var n int
	require.NoError(t, env.Pool.QueryRow(t.Context(), "SELECT COUNT(*) FROM servidores WHERE id = $1", id).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestServers_OutboxEvents(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("alice", "alice@test.com")
	id := env.CreateServer(token, "evented", "minecraft")
	testutil.WaitForServerStatus(t, env, id, "active", settleTimeout)

	events := testutil.OutboxEventTypes(t, env)
	assert.Contains(t, events, string(domain.EventUserRegistered))
	assert.Contains(t, events, string(domain.EventServerCreated))
	assert.Contains(t, events, string(domain.EventServerStatusChanged))
}
