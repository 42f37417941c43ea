package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"codingclub/internal/club"
)

func (h *handler) listMeetings(c *gin.Context) {
	ms, err := h.svc.ListMeetings(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMeetingViews(ms))
}

func (h *handler) getMeeting(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.svc.GetMeeting(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewMeetingView(m))
}

func (h *handler) createMeeting(c *gin.Context) {
	var in club.MeetingInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.svc.CreateMeeting(c.Request.Context(), principal(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, club.NewMeetingView(m))
}

func (h *handler) updateMeeting(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var in club.MeetingInput
		if !bindJSON(c, &in) {
			return
		}
		m, err := h.svc.UpdateMeeting(c.Request.Context(), principal(c), id, in, partial)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, club.NewMeetingView(m))
	}
}

func (h *handler) deleteMeeting(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteMeeting(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- attendance ----

func (h *handler) listAttendance(c *gin.Context) {
	as, err := h.svc.ListAttendance(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewAttendanceViews(as))
}

func (h *handler) getAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := h.svc.GetAttendance(c.Request.Context(), principal(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewAttendanceView(a))
}

func (h *handler) createAttendance(c *gin.Context) {
	var in club.AttendanceInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.svc.CreateAttendance(c.Request.Context(), principal(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, club.NewAttendanceView(a))
}

func (h *handler) updateAttendance(partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var in club.AttendanceInput
		if !bindJSON(c, &in) {
			return
		}
		a, err := h.svc.UpdateAttendance(c.Request.Context(), principal(c), id, in, partial)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, club.NewAttendanceView(a))
	}
}

func (h *handler) deleteAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteAttendance(c.Request.Context(), principal(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) recordBatch(c *gin.Context) {
	var in club.BatchInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.svc.RecordBatch(c.Request.Context(), principal(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Successfully recorded attendance for %d students", res.Created),
		"meeting_id": res.MeetingID,
		"created":    res.Created,
	})
}

func (h *handler) meetingAttendance(c *gin.Context) {
	as, err := h.svc.MeetingAttendance(c.Request.Context(), principal(c), c.Query("meeting_id"))
	if errors.Is(err, club.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": msgNoMeeting})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club.NewAttendanceViews(as))
}
