package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arenta/marketplace/internal/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserProfile(t *testing.T) {
	users := map[uint]model.User{1: testUser(1, "alice")}
	h := NewUserHandler(&memUserService{users: users})

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest("GET", "/user/1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var profile model.UserProfile
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, uint(1), profile.ID)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "local", profile.Provider)

	req = httptest.NewRequest("GET", "/user/99", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLookupUserByUsername(t *testing.T) {
	users := map[uint]model.User{1: testUser(1, "alice")}
	h := NewUserHandler(&memUserService{users: users})

	router := mux.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest("GET", "/user?username=alice", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile model.UserProfile
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, uint(1), profile.ID)
	assert.Equal(t, "alice", profile.Username)

	req = httptest.NewRequest("GET", "/user?username=nobody", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest("GET", "/user", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "a missing username is a validation error")
}
