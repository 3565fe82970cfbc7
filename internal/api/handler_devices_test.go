package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
)

func createTestDevice(t *testing.T, env *testEnv, userID string, body map[string]any) model.Device {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/devices", userID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Device](t, w)
}

func droneBody() map[string]any {
	return map[string]any{
		"name":          "Mavic 3",
		"type":          "drone",
		"brand":         "DJI",
		"chemistry":     "lipo",
		"currentCharge": 80,
		"health":        95,
		"dischargeRate": 2.5,
	}
}

func TestDevices_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/devices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestCreateDevice(t *testing.T) {
	env := newTestEnv(t)

	d := createTestDevice(t, env, "alice", droneBody())
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "alice", d.UserID)
	assert.Equal(t, model.DeviceTypeDrone, d.Type)
	assert.Equal(t, battery.ChemistryLiPo, d.Chemistry, "chemistry aliases are normalised")
	assert.Equal(t, battery.StatusHealthy, d.Status)
	assert.False(t, d.LastCharged.IsZero())

	user, err := env.store.GetUser(t.Context(), "alice")
	require.NoError(t, err, "the caller is provisioned on first request")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, model.PlanFree, user.Plan)
}

func TestCreateDevice_WithBatteries(t *testing.T) {
	env := newTestEnv(t)

	body := droneBody()
	body["batteries"] = []map[string]any{
		{"label": "Pack A", "currentCharge": 90, "health": 90},
		{"label": "Pack B", "currentCharge": 10, "health": 90},
	}
	d := createTestDevice(t, env, "alice", body)

	require.Len(t, d.Batteries, 2)
	assert.Equal(t, 0, d.Batteries[0].Position)
	assert.Equal(t, battery.StatusHealthy, d.Batteries[0].Status)
	assert.Equal(t, battery.StatusCritical, d.Batteries[1].Status)
}

func TestCreateDevice_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{"missing name", func(b map[string]any) { delete(b, "name") }, "name"},
		{"blank name", func(b map[string]any) { b["name"] = "   " }, "name"},
		{"missing charge", func(b map[string]any) { delete(b, "currentCharge") }, "currentCharge"},
		{"charge above 100", func(b map[string]any) { b["currentCharge"] = 101 }, "currentCharge"},
		{"negative health", func(b map[string]any) { b["health"] = -5 }, "health"},
		{"negative discharge rate", func(b map[string]any) { b["dischargeRate"] = -1 }, "dischargeRate"},
		{"unknown type", func(b map[string]any) { b["type"] = "toaster" }, "type"},
		{"unknown chemistry", func(b map[string]any) { b["chemistry"] = "plutonium" }, "chemistry"},
		{"negative cycles", func(b map[string]any) { b["cycles"] = -1 }, "cycles"},
		{"bad battery", func(b map[string]any) {
			b["batteries"] = []map[string]any{{"currentCharge": 150, "health": 90}}
		}, "batteries[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body := droneBody()
			tt.edit(body)

			w := env.do(t, http.MethodPost, "/api/devices", "alice", body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decode[struct {
				Error struct {
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}](t, w)
			assert.Equal(t, ErrCodeInvalidInput, resp.Error.Code)
			assert.Contains(t, resp.Error.Details, tt.field)

			devices, err := env.store.ListDevices(t.Context(), "alice")
			require.NoError(t, err)
			assert.Empty(t, devices, "nothing is written on invalid input")
		})
	}
}

func TestCreateDevice_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/devices", "alice", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeInvalidInput, errorCode(t, w))
}

func TestDevices_OwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	d := createTestDevice(t, env, "alice", droneBody())

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/devices/" + d.ID},
		{http.MethodPatch, "/api/devices/" + d.ID},
		{http.MethodDelete, "/api/devices/" + d.ID},
		{http.MethodPost, "/api/devices/" + d.ID + "/charged"},
		{http.MethodGet, "/api/devices/" + d.ID + "/estimate"},
		{http.MethodGet, "/api/devices/" + d.ID + "/history"},
	} {
		var body any
		if req.method == http.MethodPatch {
			body = map[string]any{"currentCharge": 1}
		}
		w := env.do(t, req.method, req.path, "bob", body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", req.method, req.path)
	}

	w := env.do(t, http.MethodGet, "/api/devices", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]model.Device](t, w))

	got, err := env.store.GetDevice(t.Context(), "alice", d.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.CurrentCharge)
}

func TestPatchDevice(t *testing.T) {
	env := newTestEnv(t)
	d := createTestDevice(t, env, "alice", droneBody())

	w := env.do(t, http.MethodPatch, "/api/devices/"+d.ID, "alice", map[string]any{"currentCharge": 15})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Device](t, w)
	assert.Equal(t, 15, updated.CurrentCharge)
	assert.Equal(t, battery.StatusCritical, updated.Status)
	assert.Equal(t, "Mavic 3", updated.Name, "absent fields are kept")

	require.Len(t, env.dispatcher.events, 1)
	ev := env.dispatcher.events[0]
	assert.Equal(t, "alice", ev.UserID)
	assert.Equal(t, battery.StatusHealthy, ev.Before.Status)
	assert.Equal(t, battery.StatusCritical, ev.After.Status)

	w = env.do(t, http.MethodPatch, "/api/devices/"+d.ID, "alice", map[string]any{"name": "Mavic 3 Pro"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.dispatcher.events, 1, "renames are not battery changes")

	w = env.do(t, http.MethodPatch, "/api/devices/"+d.ID, "alice", map[string]any{"health": 200})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchDevice_FreshAfterCachedRead(t *testing.T) {
	env := newTestEnv(t, withCache(60))
	d := createTestDevice(t, env, "alice", droneBody())

	w := env.do(t, http.MethodGet, "/api/devices/"+d.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/devices/"+d.ID, "alice", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = env.do(t, http.MethodPatch, "/api/devices/"+d.ID, "alice", map[string]any{"currentCharge": 40})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/devices/"+d.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.Equal(t, 40, decode[model.Device](t, w).CurrentCharge)
}

func TestDeleteDevice(t *testing.T) {
	env := newTestEnv(t)
	d := createTestDevice(t, env, "alice", droneBody())

	w := env.do(t, http.MethodDelete, "/api/devices/"+d.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/devices/"+d.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrCodeNotFound, errorCode(t, w))
}

func TestMarkChargedAndDefective(t *testing.T) {
	env := newTestEnv(t)
	body := droneBody()
	body["currentCharge"] = 10
	body["cycles"] = 7
	d := createTestDevice(t, env, "alice", body)

	w := env.do(t, http.MethodPost, "/api/devices/"+d.ID+"/charged", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	charged := decode[model.Device](t, w)
	assert.Equal(t, 100, charged.CurrentCharge)
	require.NotNil(t, charged.Cycles)
	assert.Equal(t, 8, *charged.Cycles)
	assert.True(t, charged.LastCharged.After(d.LastCharged) || charged.LastCharged.Equal(d.LastCharged))

	w = env.do(t, http.MethodPost, "/api/devices/"+d.ID+"/defective", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	defective := decode[model.Device](t, w)
	assert.True(t, defective.Defective)
	assert.NotNil(t, defective.DefectiveAt)

	w = env.do(t, http.MethodGet, "/api/devices/"+d.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code, "defective devices are kept")
}

func TestGetEstimate(t *testing.T) {
	env := newTestEnv(t)

	body := droneBody()
	body["currentCharge"] = 100
	body["dischargeRate"] = 5
	body["lastCharged"] = time.Now().UTC().Format(time.RFC3339)
	d := createTestDevice(t, env, "alice", body)

	w := env.do(t, http.MethodGet, "/api/devices/"+d.ID+"/estimate", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	est := decode[estimateResponse](t, w)
	require.NotNil(t, est.DaysUntilDanger)
	assert.InDelta(t, 20, *est.DaysUntilDanger, 1)
	assert.InDelta(t, 100, est.ProjectedCharge, 1)
	assert.Equal(t, battery.StatusHealthy, est.Status)
	assert.LessOrEqual(t, est.EstimatedHealth, 100)

	body["dischargeRate"] = 0
	idle := createTestDevice(t, env, "alice", body)
	w = env.do(t, http.MethodGet, "/api/devices/"+idle.ID+"/estimate", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[estimateResponse](t, w).DaysUntilDanger, "a device that does not discharge has no danger date")
}
