package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhub/hostel-adm-api/internal/middleware"
	"github.com/hostelhub/hostel-adm-api/internal/models"
	"github.com/hostelhub/hostel-adm-api/internal/repository"
	"github.com/hostelhub/hostel-adm-api/internal/service"
)

type stubAllocationRepo struct {
	allocateErr error
	removed     []string
}

func (s *stubAllocationRepo) Allocate(context.Context, string, string) error {
	return s.allocateErr
}

func (s *stubAllocationRepo) Deallocate(context.Context, string) error {
	return nil
}

func (s *stubAllocationRepo) RemoveStudent(_ context.Context, studentID string) error {
	s.removed = append(s.removed, studentID)
	return nil
}

type stubStudentReader struct {
	student *models.StudentDetail
}

func (s *stubStudentReader) FindByID(context.Context, string) (*models.StudentDetail, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func allocateContext(t *testing.T, body string, withClaims bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/stu-1/allocate-room", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	if withClaims {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	}
	return c, rec
}

func TestAllocateRoomRequiresAuth(t *testing.T) {
	allocation := service.NewAllocationService(&stubAllocationRepo{}, &stubStudentReader{}, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	c, rec := allocateContext(t, `{"room_id":"room-1"}`, false)
	handler.AllocateRoom(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAllocateRoomRequiresRoomID(t *testing.T) {
	allocation := service.NewAllocationService(&stubAllocationRepo{}, &stubStudentReader{}, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	c, rec := allocateContext(t, `{}`, true)
	handler.AllocateRoom(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllocateRoomSuccess(t *testing.T) {
	reader := &stubStudentReader{student: &models.StudentDetail{
		Student: models.Student{ID: "stu-1", Status: models.StudentStatusAllocated},
	}}
	allocation := service.NewAllocationService(&stubAllocationRepo{}, reader, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	c, rec := allocateContext(t, `{"room_id":"room-1"}`, true)
	handler.AllocateRoom(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "stu-1", envelope.Data["id"])
	assert.Equal(t, string(models.StudentStatusAllocated), envelope.Data["status"])
}

func TestAllocateRoomFullRoomRejected(t *testing.T) {
	allocation := service.NewAllocationService(&stubAllocationRepo{allocateErr: repository.ErrRoomFull}, &stubStudentReader{}, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	c, rec := allocateContext(t, `{"room_id":"room-1"}`, true)
	handler.AllocateRoom(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ROOM_FULL", envelope.Error.Code)
}

func TestAllocateRoomSurvivesReloadFailure(t *testing.T) {
	allocation := service.NewAllocationService(&stubAllocationRepo{}, &stubStudentReader{}, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	c, rec := allocateContext(t, `{"room_id":"room-1"}`, true)
	handler.AllocateRoom(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "stu-1", envelope.Data["student_id"])
	assert.Equal(t, "room-1", envelope.Data["room_id"])
}

func TestDeleteStudentReleasesSeat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &stubAllocationRepo{}
	allocation := service.NewAllocationService(repo, &stubStudentReader{}, nil, nil, nil)
	handler := NewStudentHandler(nil, allocation)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/students/stu-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"stu-1"}, repo.removed)
}
