package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"examflow/internal/auth"
	"examflow/internal/exam"
)

const noExamMessage = "No exam information found for you at this time."

func (a *API) studentExam(c *gin.Context) {
	p, _ := auth.ProfileFrom(c)
	ex, err := a.exams.FetchByStudent(c.Request.Context(), p.StudentIdentifier())
	if errors.Is(err, exam.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": noExamMessage})
		return
	}
	if err != nil {
		a.writeError(c, err, "could not load exam information")
		return
	}
	c.JSON(http.StatusOK, gin.H{"exam": ex})
}

func (a *API) listExams(c *gin.Context) {
	snap, err := a.exams.List(c.Request.Context())
	if err != nil {
		a.writeError(c, err, "could not load exams")
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) createExam(c *gin.Context) {
	var in exam.NewExam
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ex, err := a.exams.Create(c.Request.Context(), in)
	if err != nil {
		a.writeError(c, err, "could not create exam")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exam": ex})
}

// updateExam applies a partial update. Identity fields of an exam are
// immutable, so any field outside the patch is rejected.
func (a *API) updateExam(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exam id is required"})
		return
	}

	var p exam.Patch
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		msg := "invalid request body"
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			msg = "only status, room and dateTime can be updated"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := a.exams.Update(c.Request.Context(), id, p); err != nil {
		a.writeError(c, err, "Failed to update exam details. Please try again.")
		return
	}
	c.Status(http.StatusNoContent)
}
