package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/pkg/config"
	"petro-planning/pkg/customvalidator"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/types"
	"petro-planning/pkg/utils"
	"petro-planning/pkg/websocket"
)

type stubEquipment struct {
	byID     map[string]*entities.Equipment
	statuses []dto.ChangeEquipmentStatusDTO
}

func (s *stubEquipment) Create(_ context.Context, data dto.CreateEquipmentDTO) (*entities.Equipment, error) {
	if data.Reference == "" {
		return nil, apperrors.NewFieldValidationError("Ошибка валидации входных данных",
			map[string]string{"CreateEquipmentDTO.Reference": "required"})
	}
	return &entities.Equipment{ID: uuid.NewString(), Reference: data.Reference}, nil
}

func (s *stubEquipment) GetByID(_ context.Context, id string) (*entities.Equipment, error) {
	return s.byID[id], nil
}

func (s *stubEquipment) List(_ context.Context, filter types.Filter) ([]entities.Equipment, uint64, error) {
	list := make([]entities.Equipment, 0, len(s.byID))
	for _, e := range s.byID {
		list = append(list, *e)
	}
	return list, uint64(len(list)), nil
}

func (s *stubEquipment) Update(_ context.Context, id string, _ dto.UpdateEquipmentDTO) (*entities.Equipment, error) {
	return nil, apperrors.NewNotFoundError("Оборудование", id)
}

func (s *stubEquipment) Delete(_ context.Context, id string) (*entities.Equipment, error) {
	return s.byID[id], nil
}

func (s *stubEquipment) ChangeStatus(_ context.Context, id string, data dto.ChangeEquipmentStatusDTO) (*entities.Equipment, error) {
	s.statuses = append(s.statuses, data)
	return s.byID[id], nil
}

func (s *stubEquipment) GetHistory(_ context.Context, _ string, _ *string) ([]entities.EquipmentHistory, error) {
	return nil, nil
}

type stubActivity struct{}

func (stubActivity) AddActivity(_ context.Context, _ string, _ dto.CreateActivityDTO) (*entities.Activity, error) {
	return nil, apperrors.NewConflictError("оборудование уже занято")
}

func (stubActivity) StartActivity(_ context.Context, _, activityID string) (*entities.Activity, error) {
	return &entities.Activity{ID: activityID, Status: entities.ActivityInProgress}, nil
}

func (stubActivity) CompleteActivity(_ context.Context, _, _ string, data dto.CompleteActivityDTO) (*entities.Activity, error) {
	return &entities.Activity{Status: entities.ActivityCompleted, EndDate: data.EndDate}, nil
}

type stubImport struct{}

func (stubImport) ImportFile(context.Context, string) (*dto.ImportResultDTO, error) {
	return &dto.ImportResultDTO{}, nil
}

func (stubImport) Import(_ context.Context, r io.Reader) (*dto.ImportResultDTO, error) {
	return &dto.ImportResultDTO{Created: 1}, nil
}

type stubFiles struct {
	saved map[string][]byte
}

func (s *stubFiles) Save(file io.Reader, name string, prefix string) (string, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	path := prefix + "/" + name
	s.saved[path] = content
	return path, nil
}

func (s *stubFiles) Delete(path string) error {
	delete(s.saved, path)
	return nil
}

type stubPlans struct {
	lastFilter dto.PlanFilterDTO
}

func (s *stubPlans) CreatePlan(_ context.Context, data dto.CreatePlanDTO) (*entities.Plan, error) {
	if data.Type == "placement" {
		return nil, apperrors.NewConflictError("оборудование уже занято")
	}
	return nil, errors.New("соединение с БД потеряно")
}

func (s *stubPlans) UpdatePlan(_ context.Context, id string, _ dto.UpdatePlanDTO) (*entities.Plan, error) {
	return nil, apperrors.NewInvalidStateError("план в статусе completed не редактируется")
}

func (s *stubPlans) DeletePlan(context.Context, string) error { return nil }

func (s *stubPlans) GetPlans(_ context.Context, f dto.PlanFilterDTO) ([]entities.Plan, uint64, error) {
	s.lastFilter = f
	return nil, 0, nil
}

func (s *stubPlans) GetPlanByID(_ context.Context, id string) (*entities.Plan, error) {
	return nil, apperrors.NewNotFoundError("План", id)
}

type stubAvailability struct {
	last dto.AvailabilityQueryDTO
}

func (s *stubAvailability) GetAvailableEquipment(_ context.Context, q dto.AvailabilityQueryDTO) ([]entities.Equipment, error) {
	s.last = q
	return []entities.Equipment{{ID: "eq-1"}}, nil
}

type stubDashboard struct {
	lastDays int
}

func (s *stubDashboard) GetDashboardStats(_ context.Context, days int) (*types.DashboardStats, error) {
	s.lastDays = days
	return &types.DashboardStats{TotalEquipment: 4}, nil
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Data    json.RawMessage        `json:"data"`
	Details map[string]interface{} `json:"details"`
}

type RouterTestSuite struct {
	suite.Suite
	Echo         *echo.Echo
	Equipment    *stubEquipment
	Plans        *stubPlans
	Availability *stubAvailability
	Files        *stubFiles
	Dashboard    *stubDashboard
	KnownID      string
}

func (s *RouterTestSuite) SetupTest() {
	s.KnownID = uuid.NewString()
	s.Equipment = &stubEquipment{byID: map[string]*entities.Equipment{
		s.KnownID: {ID: s.KnownID, Reference: "REF-1", Status: entities.EquipmentAvailable},
	}}
	s.Plans = &stubPlans{}
	s.Availability = &stubAvailability{}
	s.Files = &stubFiles{saved: map[string][]byte{}}
	s.Dashboard = &stubDashboard{}

	logger := zap.NewNop()
	e := echo.New()
	e.Validator = utils.NewValidator(customvalidator.New())

	cfg := &config.Config{Upload: config.UploadConfig{MaxSizeMB: 1}}
	svc := &Services{
		Equipment:    s.Equipment,
		Activity:     stubActivity{},
		Import:       stubImport{},
		Plan:         s.Plans,
		Availability: s.Availability,
		Files:        s.Files,
		Dashboard:    s.Dashboard,
	}
	InitRouter(e, svc, websocket.NewHub(logger), cfg, logger)
	s.Echo = e
}

func (s *RouterTestSuite) do(method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *RouterTestSuite) TestFindEquipment() {
	rec, env := s.do(http.MethodGet, "/api/equipment/"+s.KnownID, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)

	rec, env = s.do(http.MethodGet, "/api/equipment/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.False(env.Success)
	s.NotEmpty(env.Error)
}

func (s *RouterTestSuite) TestListEquipmentHasPagination() {
	rec, env := s.do(http.MethodGet, "/api/equipment?page=1&limit=10", nil)
	s.Equal(http.StatusOK, rec.Code)

	var body struct {
		List       []entities.Equipment `json:"list"`
		Pagination struct {
			TotalCount uint64 `json:"totalCount"`
		} `json:"pagination"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &body))
	s.Len(body.List, 1)
	s.Equal(uint64(1), body.Pagination.TotalCount)
}

func (s *RouterTestSuite) TestCreateEquipmentValidationDetails() {
	rec, env := s.do(http.MethodPost, "/api/equipment", map[string]string{"name": "Pompe"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(env.Success)
	s.Contains(env.Details, "CreateEquipmentDTO.Reference")
}

func (s *RouterTestSuite) TestUpdateMissingEquipment() {
	rec, _ := s.do(http.MethodPut, "/api/equipment/"+uuid.NewString(), map[string]string{"name": "x"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterTestSuite) TestChangeStatusValidatesBody() {
	rec, _ := s.do(http.MethodPatch, "/api/equipment/"+s.KnownID+"/status", map[string]string{"status": "perdu"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.Equipment.statuses)

	rec, _ = s.do(http.MethodPatch, "/api/equipment/"+s.KnownID+"/status", map[string]string{"status": "hors_service"})
	s.Equal(http.StatusOK, rec.Code)
	s.Require().Len(s.Equipment.statuses, 1)
	s.Equal("hors_service", s.Equipment.statuses[0].Status)
}

func (s *RouterTestSuite) TestDeleteMissingEquipment() {
	rec, _ := s.do(http.MethodDelete, "/api/equipment/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterTestSuite) TestActivityEndpoints() {
	rec, _ := s.do(http.MethodPost, "/api/equipment/"+s.KnownID+"/activities",
		map[string]string{"type": "operation", "startDate": "2026-03-01T00:00:00Z"})
	s.Equal(http.StatusBadRequest, rec.Code)

	activityID := uuid.NewString()
	rec, env := s.do(http.MethodPost, "/api/equipment/"+s.KnownID+"/activities/"+activityID+"/start", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(string(env.Data), activityID)

	rec, env = s.do(http.MethodPost, "/api/equipment/"+s.KnownID+"/activities/"+activityID+"/complete",
		map[string]string{"endDate": "2026-03-05T00:00:00Z"})
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(string(env.Data), "2026-03-05")
}

func (s *RouterTestSuite) TestPlanErrorsMapToStatusCodes() {
	plan := map[string]interface{}{
		"title":             "Размещение",
		"startDate":         "2026-03-01T00:00:00Z",
		"endDate":           "2026-03-05T00:00:00Z",
		"type":              "placement",
		"responsiblePerson": map[string]string{"name": "K. Benali"},
	}
	rec, env := s.do(http.MethodPost, "/api/plans", plan)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(env.Success)

	plan["type"] = "repair"
	rec, env = s.do(http.MethodPost, "/api/plans", plan)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Внутренняя ошибка сервера", env.Error)

	rec, _ = s.do(http.MethodGet, "/api/plans/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodPut, "/api/plans/"+uuid.NewString(), map[string]string{"title": "x"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, env = s.do(http.MethodDelete, "/api/plans/"+uuid.NewString(), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)
}

func (s *RouterTestSuite) TestGetPlansParsesQuery() {
	equipmentID := uuid.NewString()
	rec, _ := s.do(http.MethodGet, "/api/plans?equipmentId="+equipmentID+"&status=scheduled&from=2026-03-01&page=2&limit=5", nil)
	s.Equal(http.StatusOK, rec.Code)

	f := s.Plans.lastFilter
	s.Require().NotNil(f.EquipmentID)
	s.Equal(equipmentID, *f.EquipmentID)
	s.Equal("scheduled", *f.Status)
	s.Equal(2, f.Page)
	s.Equal(5, f.Limit)
	s.Require().NotNil(f.From)
	s.True(f.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	rec, _ = s.do(http.MethodGet, "/api/plans?from=demain", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestAvailableEquipment() {
	projectID := uuid.NewString()
	rec, env := s.do(http.MethodGet,
		"/api/plans/available-equipment?startDate=2026-03-01&endDate=2026-03-04&type=placement&projectId="+projectID, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)
	s.Equal("placement", s.Availability.last.Type)
	s.Require().NotNil(s.Availability.last.ProjectID)
	s.Equal(projectID, *s.Availability.last.ProjectID)

	rec, _ = s.do(http.MethodGet, "/api/plans/available-equipment?endDate=2026-03-04&type=placement", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestImportRequiresFile() {
	rec, env := s.do(http.MethodPost, "/api/equipment/import", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Файл не передан", env.Error)
}

func (s *RouterTestSuite) TestDashboard() {
	rec, env := s.do(http.MethodGet, "/api/dashboard?days=14", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.True(env.Success)
	s.Equal(14, s.Dashboard.lastDays)

	var stats types.DashboardStats
	s.Require().NoError(json.Unmarshal(env.Data, &stats))
	s.Equal(int64(4), stats.TotalEquipment)
}

func (s *RouterTestSuite) upload(name string, content []byte) (*httptest.ResponseRecorder, envelope) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/equipment/import", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (s *RouterTestSuite) TestImportRejectsNonWorkbook() {
	rec, env := s.upload("parc.csv", []byte("reference;name\nREF-1;Pompe"))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(env.Success)
	s.Empty(s.Files.saved)
}

func (s *RouterTestSuite) TestImportArchivesWorkbook() {
	f := excelize.NewFile()
	s.Require().NoError(f.SetCellValue("Sheet1", "A1", "Référence"))
	buf, err := f.WriteToBuffer()
	s.Require().NoError(err)
	s.Require().NoError(f.Close())

	rec, env := s.upload("parc.xlsx", buf.Bytes())
	s.Equal(http.StatusOK, rec.Code, string(env.Data))

	var res dto.ImportResultDTO
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Equal(1, res.Created)
	s.Equal("imports/parc.xlsx", res.File)
	s.Equal(buf.Bytes(), s.Files.saved["imports/parc.xlsx"])
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
