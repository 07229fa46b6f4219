package handler

import (
	"net/http"
	"strconv"

	"arenta/marketplace/internal/pkg/httputils"
	"arenta/marketplace/internal/service"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/user", h.lookupUser).Methods("GET", "OPTIONS")
	router.HandleFunc("/user/{id:[0-9]+}", h.getUser).Methods("GET", "OPTIONS")
}

// @Summary Look up user
// @Description Find a user's public profile by username
// @ID lookup-user
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} model.UserProfile
// @Failure 404 {object} response.ErrorResponse
// @Router /user [get]
func (h *UserHandler) lookupUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.userService.GetProfileByUsername(r.URL.Query().Get("username"))
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, profile)
}

// @Summary Get user
// @Description Get a user's public profile by id
// @ID get-user
// @Produce json
// @Success 200 {object} model.UserProfile
// @Failure 404 {object} response.ErrorResponse
// @Param id path int true "User ID"
// @Router /user/{id} [get]
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.Atoi(vars["id"])
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse user ID")
		return
	}

	profile, err := h.userService.GetProfile(uint(userID))
	if err != nil {
		httputils.ResponseAppError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, profile)
}
