package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/hub"
	"github.com/DoyleJ11/raddle-teams-backend/internal/lobby"
	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
	"github.com/DoyleJ11/raddle-teams-backend/internal/types"
)

const testPassword = "hunter2"

type testAPI struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestAPI(t *testing.T, testMode bool) *testAPI {
	t.Helper()
	repo, err := store.Open("sqlite::memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	h := hub.NewHub(zap.NewNop(), hub.Options{WriteTimeout: time.Second, FanoutLimit: 4})
	handler := SetupRoutes(Deps{
		Service:       lobby.NewService(repo, h, zap.NewNop()),
		Store:         repo,
		Hub:           h,
		Log:           zap.NewNop(),
		AdminPassword: testPassword,
		Testing:       testMode,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv}
}

// do sends a request and decodes the JSON response into out when out is non-nil.
func (a *testAPI) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) createLobby(name string) store.Lobby {
	a.t.Helper()
	var l store.Lobby
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, "/api/admin/lobby", testPassword, types.LobbyCreate{Name: name}, &l))
	return l
}

func (a *testAPI) join(code, name string) store.Player {
	a.t.Helper()
	var p store.Player
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, "/api/lobby/join/"+code, "", types.PlayerCreate{Name: name}, &p))
	return p
}

func TestHealthzAndRoot(t *testing.T) {
	api := newTestAPI(t, false)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil, nil))

	var root types.ApiRootResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/", "", nil, &root))
	assert.NotEmpty(t, root.Message)
}

func TestAdminAuth(t *testing.T) {
	api := newTestAPI(t, false)

	var errResp types.ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/admin/check", "", nil, &errResp))
	assert.Contains(t, errResp.Detail, "missing")

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/admin/check", "wrong", nil, nil))

	var ok types.AdminAuthenticatedResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/check", testPassword, nil, &ok))
	assert.NotEmpty(t, ok.SessionID)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/check?token="+testPassword, "", nil, nil))
}

func TestPlayerFlow(t *testing.T) {
	api := newTestAPI(t, false)
	l := api.createLobby("Friday")
	p := api.join(l.Code, "ada")
	assert.Equal(t, l.ID, p.LobbyID)
	assert.NotEmpty(t, p.SessionID)

	var dup types.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/lobby/join/"+l.Code, "", types.PlayerCreate{Name: "ada"}, &dup))
	assert.Contains(t, dup.Detail, "player name already taken")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/lobby/join/NOPE00", "", types.PlayerCreate{Name: "bob"}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/lobby/join/"+l.Code, "", types.PlayerCreate{Name: "  "}, nil))

	var current store.Lobby
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/lobby", p.SessionID, nil, &current))
	assert.Equal(t, l.ID, current.ID)
	assert.Equal(t, l.Code, current.Code)

	var me store.Player
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/lobby/active", p.SessionID, nil, &me))
	assert.Equal(t, p.ID, me.ID)
	assert.Equal(t, p.SessionID, me.SessionID)

	var info types.LobbyInfo
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/lobby/info/%d", l.ID), p.SessionID, nil, &info))
	assert.Len(t, info.Players, 1)

	other := api.createLobby("other")
	api.join(other.Code, "eve")
	var otherInfo types.LobbyInfo
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/lobby/info/%d", other.ID), p.SessionID, nil, &otherInfo))
	assert.Len(t, otherInfo.Players, 1)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, fmt.Sprintf("/api/lobby/info/%d", other.ID), "", nil, nil))

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/lobby", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/lobby", "not-a-session", nil, nil))

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/lobby", p.SessionID, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/lobby", p.SessionID, nil, nil))
}

func TestAdminTeamFlow(t *testing.T) {
	api := newTestAPI(t, false)
	l := api.createLobby("teams")

	path := fmt.Sprintf("/api/admin/lobby/%d/team", l.ID)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path, testPassword, types.TeamCreate{NumTeams: 2}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/admin/lobby/4242/team", testPassword, types.TeamCreate{NumTeams: 1}, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/admin/lobby/4242/team", testPassword, types.TeamCreate{NumTeams: 2}, nil))

	a := api.join(l.Code, "a")
	api.join(l.Code, "b")
	api.join(l.Code, "c")

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path, testPassword, types.TeamCreate{NumTeams: 11}, nil))

	var msg types.MessageResponse
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, path, testPassword, types.TeamCreate{NumTeams: 2}, &msg))
	assert.True(t, msg.Status)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path, testPassword, types.TeamCreate{NumTeams: 2}, nil))

	var info types.LobbyInfo
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/admin/lobby/%d", l.ID), testPassword, nil, &info))
	require.Len(t, info.Teams, 2)
	assert.Len(t, info.PlayersByTeam, 2)

	move := fmt.Sprintf("/api/admin/lobby/team/0/player/%d", a.ID)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPut, move, testPassword, nil, nil))

	var lobbies []store.Lobby
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/lobby", testPassword, nil, &lobbies))
	assert.Len(t, lobbies, 1)

	kick := fmt.Sprintf("/api/admin/lobby/player/%d", a.ID)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, kick, testPassword, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, kick, testPassword, nil, nil))

	del := fmt.Sprintf("/api/admin/lobby/%d", l.ID)
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, del, testPassword, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, del, testPassword, nil, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/admin/lobby/abc", testPassword, nil, nil))
}

func TestResetDBOnlyInTesting(t *testing.T) {
	prod := newTestAPI(t, false)
	assert.Equal(t, http.StatusNotFound, prod.do(http.MethodDelete, "/api/reset-db", "", nil, nil))

	api := newTestAPI(t, true)
	api.createLobby("gone soon")
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/reset-db", "", nil, nil))

	var lobbies []store.Lobby
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/lobby", testPassword, nil, &lobbies))
	assert.Empty(t, lobbies)
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, false)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodOptions, "/api/admin/lobby", "", nil, nil))
}
