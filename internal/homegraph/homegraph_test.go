package homegraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	homegraphapi "google.golang.org/api/homegraph/v1"

	"github.com/faltung/homed-google-bridge/internal/googlemodel"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)

	svc, err := homegraphapi.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL),
	)
	require.NoError(t, err)

	return New(zap.NewNop(), svc), srv
}

func TestRequestSyncSucceeds(t *testing.T) {
	var gotBody map[string]interface{}
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	err := client.RequestSync(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", gotBody["agentUserId"])
}

func TestRequestSyncReturnsErrorOnFailureStatus(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
	})
	defer srv.Close()

	err := client.RequestSync(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestReportStateMarshalsDeviceStates(t *testing.T) {
	var gotBody struct {
		AgentUserID string `json:"agentUserId"`
		RequestID   string `json:"requestId"`
		Payload     struct {
			Devices struct {
				States json.RawMessage `json:"states"`
			} `json:"devices"`
		} `json:"payload"`
	}
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	states := map[string]googlemodel.State{
		"c-1/dev1": {"on": true, "brightness": 40},
	}
	err := client.ReportState(context.Background(), "user-1", states)
	require.NoError(t, err)

	assert.Equal(t, "user-1", gotBody.AgentUserID)
	assert.NotEmpty(t, gotBody.RequestID)

	var decodedStates map[string]googlemodel.State
	require.NoError(t, json.Unmarshal(gotBody.Payload.Devices.States, &decodedStates))
	assert.Equal(t, true, decodedStates["c-1/dev1"]["on"])
}
