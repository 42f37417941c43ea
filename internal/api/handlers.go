package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codingclub/internal/auth"
	"codingclub/internal/club"
)

// bindJSON decodes the request body into dst. An empty body decodes to the
// zero value.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgBadJSON + " - " + err.Error()})
		return false
	}
	return true
}

// pathID parses :id; anything that is not a positive integer cannot name a row.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": msgNotFound})
		return 0, false
	}
	return uint(id), true
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

// ---- auth ----

func (h *handler) register(c *gin.Context) {
	var in club.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	pair, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"detail":  "User registered successfully",
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
	})
}

func (h *handler) login(c *gin.Context) {
	var in club.Credentials
	if !bindJSON(c, &in) {
		return
	}
	pair, m, err := h.svc.Login(c.Request.Context(), in)
	if errors.Is(err, club.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgBadLogin})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   pair.AccessToken,
		"refresh": pair.RefreshToken,
		"user":    club.NewMemberView(m),
	})
}

func (h *handler) obtainPair(c *gin.Context) {
	var in club.Credentials
	if !bindJSON(c, &in) {
		return
	}
	missing := gin.H{}
	if in.Email == "" {
		missing["email"] = []string{"This field is required."}
	}
	if in.Password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, missing)
		return
	}
	pair, _, err := h.svc.Login(c.Request.Context(), in)
	if errors.Is(err, club.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgNoAccount})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": pair.AccessToken, "refresh": pair.RefreshToken})
}

func (h *handler) refresh(c *gin.Context) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if !bindJSON(c, &in) {
		return
	}
	if in.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}
	access, err := h.svc.Refresh(c.Request.Context(), in.Refresh)
	if errors.Is(err, club.ErrInvalidRefresh) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgBadRefresh})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// ---- members ----

func (h *handler) listMembers(c *gin.Context) {
	ms, err := h.svc.ListMembers(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMemberViews(ms))
}

func (h *handler) getMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.svc.GetMember(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMemberView(m))
}

func (h *handler) createMember(c *gin.Context) {
	var in club.MemberInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.svc.CreateMember(c.Request.Context(), principal(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, club.NewMemberView(m))
}

func (h *handler) updateMember(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var in club.MemberInput
		if !bindJSON(c, &in) {
			return
		}
		m, err := h.svc.UpdateMember(c.Request.Context(), principal(c), id, in, partial)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, club.NewMemberView(m))
	}
}

func (h *handler) deleteMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteMember(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) currentUser(c *gin.Context) {
	m, err := h.svc.CurrentUser(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMemberView(m))
}

func (h *handler) studentsList(c *gin.Context) {
	ms, err := h.svc.Students(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMemberViews(ms))
}
