package catalystx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigredeye/catalystx/api"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}
	authorized := func(r *http.Request) bool {
		cookie, err := r.Cookie(SessionCookie)
		return err == nil && cookie.Value == "secret"
	}

	mux.HandleFunc("/api/auth/professor/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		req := api.VerifyOTPRequest{}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.OTP != "123456" {
			writeJSON(w, http.StatusUnauthorized, api.Status{Error: "Invalid code"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "secret", Path: "/"})
		writeJSON(w, http.StatusOK, api.VerifyOTPResponse{Status: api.Status{Ok: true}, Redirect: "/"})
	})
	mux.HandleFunc("/api/projects/p1/applications", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, api.Status{Error: "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, api.ApplicationsResponse{
			Status:       api.Status{Ok: true},
			Applications: []api.Application{{ID: "a1", Status: r.URL.Query().Get("status")}},
			Total:        1,
		})
	})
	mux.HandleFunc("/api/projects/p1/applications/export", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "csv" {
			writeJSON(w, http.StatusNotFound, api.Status{Error: "No accepted applications to export"})
			return
		}
		_, _ = w.Write([]byte(`"Name","Email","Branch"`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestVerifyAndLoad(t *testing.T) {
	server := newTestServer(t)
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.LoadApplications("p1", Filter{})
	require.ErrorContains(t, err, "Not authenticated")

	require.ErrorContains(t, client.Verify("ada@uni.edu", "000000"), "Invalid code")
	require.NoError(t, client.Verify("ada@uni.edu", "123456"))
	require.Equal(t, "secret", client.Session())

	res, err := client.LoadApplications("p1", Filter{Status: "ACCEPTED"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, "ACCEPTED", res.Applications[0].Status)
}

func TestSavedSession(t *testing.T) {
	server := newTestServer(t)
	client, err := NewClient(server.URL)
	require.NoError(t, err)
	client.SetSession("secret")

	_, err = client.LoadApplications("p1", Filter{})
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	server := newTestServer(t)
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, client.Export("p1", "csv", &buf))
	require.Equal(t, `"Name","Email","Branch"`, buf.String())

	err = client.Export("p1", "xlsx", &buf)
	require.ErrorContains(t, err, "No accepted applications to export")
}

func TestEmptyEndpoint(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}
