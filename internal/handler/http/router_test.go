package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubAttendanceService struct {
	punchInErr  error
	punchOutErr error
	correctReq  attendance.CorrectPunchRequest
}

func (s *stubAttendanceService) Today(ctx context.Context) (attendance.DayAttendanceResponse, error) {
	if _, err := auth.IdentityFromContext(ctx); err != nil {
		return attendance.DayAttendanceResponse{}, err
	}
	return attendance.DayAttendanceResponse{Status: attendance.StatusNotStarted, TotalDuration: "00:00:00"}, nil
}

func (s *stubAttendanceService) Snapshot(ctx context.Context, identity auth.Identity) (attendance.DayAttendance, error) {
	return attendance.DayAttendance{Status: attendance.StatusNotStarted}, nil
}

func (s *stubAttendanceService) Render(day attendance.DayAttendance) attendance.DayAttendanceResponse {
	return attendance.DayAttendanceResponse{Status: day.Status, TotalDuration: "00:00:00"}
}

func (s *stubAttendanceService) CheckAdmissibility(ctx context.Context, req attendance.PunchRequest) (attendance.AdmissibilityResponse, error) {
	return attendance.AdmissibilityResponse{Admissible: true, Message: attendance.RejectReason("").Message()}, nil
}

func (s *stubAttendanceService) PunchIn(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchResponse{}, err
	}
	if s.punchInErr != nil {
		return attendance.PunchResponse{}, s.punchInErr
	}
	return attendance.PunchResponse{Payload: attendance.SubmissionPayload{IP: req.RemoteIP}}, nil
}

func (s *stubAttendanceService) PunchOut(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResponse, error) {
	return attendance.PunchResponse{}, s.punchOutErr
}

func (s *stubAttendanceService) CorrectRecord(ctx context.Context, req attendance.CorrectPunchRequest) (attendance.PunchRecordResponse, error) {
	s.correctReq = req
	return attendance.PunchRecordResponse{ID: req.ID}, nil
}

type stubTeamMapService struct{}

func (stubTeamMapService) GetTeamMap(ctx context.Context, req teammap.TeamMapRequest) (teammap.TeamMapResponse, error) {
	if req.Date == "bad" {
		return teammap.TeamMapResponse{}, attendance.ErrInvalidDate
	}
	return teammap.TeamMapResponse{Date: "2025-03-10", Summary: teammap.Summary{Total: 2, Active: 1, Completed: 1}}, nil
}

func (stubTeamMapService) Export(ctx context.Context, req teammap.TeamMapRequest) (teammap.ExportFile, error) {
	return teammap.ExportFile{Filename: "team-map_2025-03-10.xlsx", ContentType: "application/octet-stream", Content: []byte("xlsx")}, nil
}

type testServer struct {
	router     http.Handler
	jwtService jwt.Service
	attendance *stubAttendanceService
	hub        *sse.Hub
}

func newTestServer(t *testing.T, burst int) *testServer {
	t.Helper()
	jwtService := jwt.NewJWTService("test-secret", time.Hour)
	svc := &stubAttendanceService{}
	hub := sse.NewHub()

	router := NewRouter(
		config.AppConfig{Name: "attendance-engine", Env: "test", LogLevel: "error"},
		jwtService,
		middleware.NewKeyedRateLimiter(rate.Limit(0.001), burst),
		NewAttendanceHandler(svc, jwtService, hub, 10*time.Millisecond),
		NewTeamMapHandler(stubTeamMapService{}),
	)
	return &testServer{router: router, jwtService: jwtService, attendance: svc, hub: hub}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := s.jwtService.GenerateAccessToken(auth.Identity{
		UserID:    "0195a1b2-0000-7000-8000-000000000001",
		CompanyID: "0195a1b2-0000-7000-8000-0000000000c0",
		Role:      role,
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var envelope response.Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

const validPunchBody = `{"location":{"lat":-6.2,"lng":106.8},"device":{"user_agent":"Mozilla/5.0","device_fingerprint":"fp-123"}}`

func TestRouter_RequiresToken(t *testing.T) {
	s := newTestServer(t, 5)

	rec, body := s.do(t, http.MethodGet, "/api/v1/attendance/today", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, body.Success)
}

func TestRouter_RejectsStreamTokenAsAccessToken(t *testing.T) {
	s := newTestServer(t, 5)
	sseToken, _, err := s.jwtService.GenerateSSEToken(auth.Identity{UserID: "u", CompanyID: "c"})
	require.NoError(t, err)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/attendance/today", sseToken, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Today(t *testing.T) {
	s := newTestServer(t, 5)

	rec, body := s.do(t, http.MethodGet, "/api/v1/attendance/today", s.token(t, "employee"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	data := body.Data.(map[string]interface{})
	assert.Equal(t, "NOT_STARTED", data["status"])
	assert.Equal(t, "00:00:00", data["total_duration"])
}

func TestRouter_PunchIn(t *testing.T) {
	s := newTestServer(t, 5)

	rec, body := s.do(t, http.MethodPost, "/api/v1/attendance/punch-in", s.token(t, "employee"), validPunchBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Punched in successfully", body.Message)

	payload := body.Data.(map[string]interface{})["payload"].(map[string]interface{})
	assert.Equal(t, "192.0.2.1", payload["ip"])
}

func TestRouter_PunchInErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
	}{
		{"malformed body", nil, `{`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing device", nil, `{"location":"1,1"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing location", attendance.NewRejectionError(attendance.ReasonMissingLocation), validPunchBody, http.StatusUnprocessableEntity, "MISSING_LOCATION"},
		{"on leave", attendance.NewRejectionError(attendance.ReasonOnLeave), validPunchBody, http.StatusUnprocessableEntity, "ON_LEAVE"},
		{"already punched in", attendance.ErrAlreadyPunchedIn, validPunchBody, http.StatusConflict, "CONFLICT"},
		{"storage down", errors.Join(attendance.ErrSubmissionFailed, errors.New("timeout")), validPunchBody, http.StatusBadGateway, "SUBMISSION_FAILED"},
		{"unexpected", errors.New("boom"), validPunchBody, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 5)
			s.attendance.punchInErr = tt.err

			rec, body := s.do(t, http.MethodPost, "/api/v1/attendance/punch-in", s.token(t, "employee"), tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestRouter_PunchOutWithoutSession(t *testing.T) {
	s := newTestServer(t, 5)
	s.attendance.punchOutErr = attendance.ErrNotPunchedIn

	rec, body := s.do(t, http.MethodPost, "/api/v1/attendance/punch-out", s.token(t, "employee"), validPunchBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You have not punched in yet", body.Error.Message)
}

func TestRouter_RateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	token := s.token(t, "employee")

	rec, _ := s.do(t, http.MethodPost, "/api/v1/attendance/admissibility", token, validPunchBody)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/v1/attendance/admissibility", token, validPunchBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", body.Error.Code)
}

func TestRouter_ManagerRoutes(t *testing.T) {
	s := newTestServer(t, 5)

	rec, body := s.do(t, http.MethodGet, "/api/v1/attendance/team-map", s.token(t, "employee"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)

	rec, body = s.do(t, http.MethodGet, "/api/v1/attendance/team-map?date=2025-03-10", s.token(t, "manager"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body.Data.(map[string]interface{})["summary"].(map[string]interface{})
	assert.Equal(t, float64(2), summary["total"])

	rec, _ = s.do(t, http.MethodGet, "/api/v1/attendance/team-map?date=bad", s.token(t, "owner"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_TeamMapExport(t *testing.T) {
	s := newTestServer(t, 5)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/attendance/team-map/export", s.token(t, "manager"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="team-map_2025-03-10.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestRouter_CorrectRecord(t *testing.T) {
	s := newTestServer(t, 5)
	id := "0195a1b2-0000-7000-8000-0000000000aa"

	rec, body := s.do(t, http.MethodPut, "/api/v1/attendance/records/"+id, s.token(t, "manager"), `{"punch_out_time":"17:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Punch record updated", body.Message)
	assert.Equal(t, id, s.attendance.correctReq.ID)
	require.NotNil(t, s.attendance.correctReq.PunchOutTime)
	assert.Equal(t, "17:00", *s.attendance.correctReq.PunchOutTime)
}

func TestHandleError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	response.HandleError(rec, validator.ValidationErrors{{Field: "device", Message: "device context is required"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "device context is required", body.Error.Details["device"])
}

func TestRouter_StreamTokenAndStream(t *testing.T) {
	s := newTestServer(t, 5)

	rec, body := s.do(t, http.MethodGet, "/api/v1/attendance/stream-token", s.token(t, "employee"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body.Data.(map[string]interface{})
	streamToken := data["token"].(string)
	assert.Equal(t, float64(300), data["expires_in"])

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/stream?token="+streamToken, nil).WithContext(ctx)
	streamRec := httptest.NewRecorder()
	s.router.ServeHTTP(streamRec, req)

	assert.Equal(t, "text/event-stream", streamRec.Header().Get("Content-Type"))
	out := streamRec.Body.String()
	assert.Contains(t, out, "event: connected")
	assert.Contains(t, out, "event: status")
	assert.Equal(t, 0, s.hub.TotalSubscribers())
}

func TestRouter_StreamRejectsAccessToken(t *testing.T) {
	s := newTestServer(t, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/stream?token="+s.token(t, "employee"), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
