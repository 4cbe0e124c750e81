package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hhc/scripture-sync/internal/save"
	"hhc/scripture-sync/internal/store/sqlstore"
	"hhc/scripture-sync/internal/syncproto"
)

// ErrorResponse is the standard error body shape, carried from the
// teacher's ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error" example:"error message"`
}

// HandleHealth reports liveness.
// @Summary      Health check
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func (a *API) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// loginRequest is the JSON body HandleLogin accepts.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin authenticates a user and issues a signed session cookie,
// per spec.md §4.9's attempt_login and the global brute-force cooldown.
// @Summary      Log in
// @Accept       json
// @Produce      json
// @Param        body body loginRequest true "credentials"
// @Success      200 {object} map[string]string
// @Failure      401 {object} ErrorResponse
// @Router       /login [post]
func (a *API) HandleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username and password are required"})
		return
	}

	token, err := a.sessions.AttemptLogin(req.Username, req.Password, time.Now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid username or password"})
		return
	}

	c.SetCookie(a.cookieName, token, 0, "/", "", a.requireSecureTransport, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged in"})
}

// HandleLogout deletes the current session and clears its cookie.
// @Summary      Log out
// @Success      200 {object} map[string]string
// @Router       /logout [post]
func (a *API) HandleLogout(c *gin.Context) {
	token, err := c.Cookie(a.cookieName)
	if err == nil && token != "" {
		_ = a.sessions.Logout(token)
	}
	c.SetCookie(a.cookieName, "", -1, "/", "", a.requireSecureTransport, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// saveRequest is the JSON body HandleSave accepts, spec.md §4.6's input.
type saveRequest struct {
	Bible            string `json:"bible"`
	Book             int    `json:"book"`
	Chapter          int    `json:"chapter"`
	HTML             string `json:"html"`
	ChecksumOfHTML   string `json:"checksum"`
	EditorInstanceID string `json:"editor_instance_id"`
}

// HandleSave runs the Save Pipeline of spec.md §4.6 against one
// submitted chapter edit.
// @Summary      Save a chapter edit
// @Accept       json
// @Produce      json
// @Param        body body saveRequest true "submission"
// @Success      200 {object} map[string]any
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /api/save [post]
func (a *API) HandleSave(c *gin.Context) {
	var body saveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed submission"})
		return
	}

	username := c.GetString(sessionUserKey)
	role := sqlstore.Role(c.GetString(sessionRoleKey))

	result, saveErr := a.save.Save(save.Request{
		Username:         username,
		Role:             role,
		Bible:            body.Bible,
		Book:             body.Book,
		Chapter:          body.Chapter,
		EditorInstanceID: body.EditorInstanceID,
		HTML:             body.HTML,
		ChecksumOfHTML:   body.ChecksumOfHTML,
	})
	if saveErr != nil {
		c.JSON(saveErr.Status, ErrorResponse{Error: saveErr.Message})
		return
	}

	status := "saved"
	if result.ReloadRequired {
		status = "reload_required"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"conflicts": len(result.Conflicts),
	})
}

// HandleSync dispatches one Sync Protocol action (B0-B8) of spec.md
// §4.7, matching bibledit's single sync/bibles URL dispatching on the
// `a` field. The caller's identity comes from the already-verified
// session (syncproto.Actor is handed an authenticated caller, not raw
// wire credentials), per internal/syncproto/server.go's design.
// @Summary      Sync protocol dispatch
// @Accept       plain
// @Produce      plain
// @Success      200 {string} string
// @Router       /sync/bibles [post]
func (a *API) HandleSync(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Malformed request")
		return
	}

	req := syncproto.DecodeRequest(string(raw))
	actor := syncproto.Actor{
		Username: c.GetString(sessionUserKey),
		Role:     sqlstore.Role(c.GetString(sessionRoleKey)),
	}

	resp := a.dispatcher.Dispatch(actor, req)
	c.String(resp.Status, "%s", resp.Body)
}
