package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/events"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/customvalidator"
	"petro-planning/pkg/types"
)

// memStore - хранилище в памяти; fakeTxManager снимает с него копию перед
// транзакцией и восстанавливает её при ошибке.
type memStore struct {
	mu        sync.Mutex
	equipment map[string]*entities.Equipment
	history   map[string]*entities.EquipmentHistory
	plans     map[string]*entities.Plan
	projects  map[string]entities.Project
}

func newMemStore() *memStore {
	return &memStore{
		equipment: map[string]*entities.Equipment{},
		history:   map[string]*entities.EquipmentHistory{},
		plans:     map[string]*entities.Plan{},
		projects:  map[string]entities.Project{},
	}
}

func copyEquipment(e *entities.Equipment) *entities.Equipment {
	c := *e
	c.Activities = append([]entities.Activity{}, e.Activities...)
	return &c
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range s.equipment {
		c.equipment[k] = copyEquipment(v)
	}
	for k, v := range s.history {
		h := *v
		c.history[k] = &h
	}
	for k, v := range s.plans {
		p := *v
		c.plans[k] = &p
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.equipment = from.equipment
	s.history = from.history
	s.plans = from.plans
	s.projects = from.projects
}

// historyFor - записи журнала оборудования, порядок не гарантирован.
func (s *memStore) historyFor(equipmentID string) []entities.EquipmentHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.EquipmentHistory, 0)
	for _, h := range s.history {
		if h.EquipmentID == equipmentID {
			out = append(out, *h)
		}
	}
	return out
}

// equipmentByID - снимок агрегата прямо из хранилища.
func (s *memStore) equipmentByID(id string) *entities.Equipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.equipment[id]
	if !ok {
		return nil
	}
	return copyEquipment(e)
}

// rawPlan - план вместе с мягко удалёнными.
func (s *memStore) rawPlan(id string) *entities.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

type fakeTxManager struct {
	store *memStore
	txMu  sync.Mutex
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.store.mu.Lock()
	before := m.store.snapshot()
	m.store.mu.Unlock()

	if err := fn(nil); err != nil {
		m.store.mu.Lock()
		m.store.restore(before)
		m.store.mu.Unlock()
		return err
	}
	return nil
}

type fakeEquipmentRepo struct{ store *memStore }

func (r *fakeEquipmentRepo) CreateInTx(_ context.Context, _ pgx.Tx, e *entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.equipment {
		if existing.Reference == e.Reference {
			return apperrors.NewDuplicateKeyError("reference", e.Reference)
		}
		if existing.Matricule == e.Matricule {
			return apperrors.NewDuplicateKeyError("matricule", e.Matricule)
		}
	}
	r.store.equipment[e.ID] = copyEquipment(e)
	return nil
}

func (r *fakeEquipmentRepo) FindByID(_ context.Context, id string) (*entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyEquipment(e), nil
}

func (r *fakeEquipmentRepo) FindForUpdateInTx(ctx context.Context, _ pgx.Tx, id string) (*entities.Equipment, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeEquipmentRepo) all() []entities.Equipment {
	out := make([]entities.Equipment, 0, len(r.store.equipment))
	for _, e := range r.store.equipment {
		out = append(out, *copyEquipment(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out
}

func (r *fakeEquipmentRepo) List(_ context.Context, filter types.Filter) ([]entities.Equipment, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.Equipment, 0)
	statuses, _ := filter.Filter["status"].(string)
	for _, e := range r.all() {
		if statuses != "" && !strings.Contains(","+statuses+",", ","+string(e.Status)+",") {
			continue
		}
		out = append(out, e)
	}
	return out, uint64(len(out)), nil
}

func (r *fakeEquipmentRepo) ListByStatuses(_ context.Context, statuses []entities.EquipmentStatus) ([]entities.Equipment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.Equipment, 0)
	for _, e := range r.all() {
		if statuses == nil || containsStatus(statuses, e.Status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEquipmentRepo) UpdateInTx(_ context.Context, _ pgx.Tx, e *entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.equipment[e.ID]
	if !ok {
		return apperrors.NewNotFoundError("Оборудование", e.ID)
	}
	for id, other := range r.store.equipment {
		if id != e.ID && (other.Reference == e.Reference || other.Matricule == e.Matricule) {
			return apperrors.NewDuplicateKeyError("reference", e.Reference)
		}
	}
	updated := copyEquipment(e)
	updated.Activities = existing.Activities
	updated.Status = existing.Status
	r.store.equipment[e.ID] = updated
	return nil
}

func (r *fakeEquipmentRepo) UpdateStatusInTx(_ context.Context, _ pgx.Tx, id string, status entities.EquipmentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[id]
	if !ok {
		return apperrors.NewNotFoundError("Оборудование", id)
	}
	e.Status = status
	return nil
}

func (r *fakeEquipmentRepo) DeleteInTx(_ context.Context, _ pgx.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.equipment, id)
	for _, p := range r.store.plans {
		if p.EquipmentID != nil && *p.EquipmentID == id {
			p.EquipmentID = nil
		}
	}
	return nil
}

type fakeActivityRepo struct{ store *memStore }

func (r *fakeActivityRepo) InsertInTx(_ context.Context, _ pgx.Tx, a *entities.Activity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.equipment[a.EquipmentID]
	if !ok {
		return apperrors.NewNotFoundError("Оборудование", a.EquipmentID)
	}
	e.Activities = append(e.Activities, *a)
	return nil
}

func (r *fakeActivityRepo) UpdateInTx(_ context.Context, _ pgx.Tx, a *entities.Activity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if e, ok := r.store.equipment[a.EquipmentID]; ok {
		for i := range e.Activities {
			if e.Activities[i].ID == a.ID {
				e.Activities[i] = *a
				return nil
			}
		}
	}
	return apperrors.NewNotFoundError("Активность", a.ID)
}

type fakeHistoryRepo struct {
	store *memStore
	// failCreate имитирует сбой записи журнала.
	failCreate error
}

func (r *fakeHistoryRepo) CreateInTx(_ context.Context, _ pgx.Tx, h *entities.EquipmentHistory) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *h
	r.store.history[h.ID] = &c
	return nil
}

func (r *fakeHistoryRepo) UpdateInTx(_ context.Context, _ pgx.Tx, h *entities.EquipmentHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.history[h.ID]; !ok {
		return apperrors.NewNotFoundError("Запись истории", h.ID)
	}
	c := *h
	r.store.history[h.ID] = &c
	return nil
}

func (r *fakeHistoryRepo) FindByKeyInTx(_ context.Context, _ pgx.Tx, key entities.HistoryKey) (*entities.EquipmentHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, h := range r.store.history {
		if k, ok := h.Key(); ok && k == key {
			c := *h
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeHistoryRepo) FindByEquipment(_ context.Context, equipmentID string, historyType *string) ([]entities.EquipmentHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.EquipmentHistory, 0)
	for _, h := range r.store.history {
		if h.EquipmentID == equipmentID && (historyType == nil || h.Type == *historyType) {
			out = append(out, *h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FromDate.After(out[j].FromDate) })
	return out, nil
}

func (r *fakeHistoryRepo) DeleteByEquipmentInTx(_ context.Context, _ pgx.Tx, equipmentID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, h := range r.store.history {
		if h.EquipmentID == equipmentID {
			delete(r.store.history, id)
			n++
		}
	}
	return n, nil
}

type fakePlanRepo struct{ store *memStore }

func (r *fakePlanRepo) CreateInTx(_ context.Context, _ pgx.Tx, p *entities.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *p
	r.store.plans[p.ID] = &c
	return nil
}

func (r *fakePlanRepo) UpdateInTx(_ context.Context, _ pgx.Tx, p *entities.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.plans[p.ID]; !ok {
		return apperrors.NewNotFoundError("План", p.ID)
	}
	c := *p
	r.store.plans[p.ID] = &c
	return nil
}

func (r *fakePlanRepo) FindByID(_ context.Context, id string) (*entities.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.plans[id]
	if !ok || p.IsDeleted {
		return nil, apperrors.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePlanRepo) FindForUpdateInTx(ctx context.Context, _ pgx.Tx, id string) (*entities.Plan, error) {
	return r.FindByID(ctx, id)
}

func (r *fakePlanRepo) FindByActivityForUpdateInTx(_ context.Context, _ pgx.Tx, activityID string) (*entities.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.plans {
		if !p.IsDeleted && p.ActivityID != nil && *p.ActivityID == activityID {
			c := *p
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakePlanRepo) DetachEquipmentInTx(_ context.Context, _ pgx.Tx, equipmentID, actor string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	now := timeNow()
	for _, p := range r.store.plans {
		if p.IsDeleted || p.EquipmentID == nil || *p.EquipmentID != equipmentID {
			continue
		}
		if p.Type.IsStandard() && !p.Status.IsTerminal() {
			p.Status = entities.PlanCancelled
		}
		p.EquipmentID = nil
		p.ActivityID = nil
		p.UpdatedBy = &actor
		p.UpdatedAt = &now
		n++
	}
	return n, nil
}

func (r *fakePlanRepo) List(_ context.Context, f repositories.PlanFilter) ([]entities.Plan, uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]entities.Plan, 0)
	for _, p := range r.store.plans {
		if p.IsDeleted {
			continue
		}
		if f.EquipmentID != nil && (p.EquipmentID == nil || *p.EquipmentID != *f.EquipmentID) {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, uint64(len(out)), nil
}

func (r *fakePlanRepo) EquipmentIDsByProject(_ context.Context, projectID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, p := range r.store.plans {
		if p.IsDeleted || p.ProjectID == nil || *p.ProjectID != projectID || p.EquipmentID == nil {
			continue
		}
		if !seen[*p.EquipmentID] {
			seen[*p.EquipmentID] = true
			out = append(out, *p.EquipmentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeProjectRepo struct {
	store *memStore
	err   error
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id string) (*entities.Project, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProjectRepo) Create(_ context.Context, p *entities.Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.projects[p.ID] = *p
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.data[key] = string(v)
	case string:
		c.data[key] = v
	default:
		return errors.New("unsupported cache value")
	}
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) DelByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingNotifier struct {
	mu        sync.Mutex
	equipment []events.EquipmentEvent
	plans     []events.PlanEvent
}

func (n *recordingNotifier) EquipmentChanged(_ context.Context, e events.EquipmentEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.equipment = append(n.equipment, e)
}

func (n *recordingNotifier) PlanChanged(_ context.Context, e events.PlanEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.plans = append(n.plans, e)
}

func (n *recordingNotifier) planEventNames() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, 0, len(n.plans))
	for _, e := range n.plans {
		names = append(names, e.EventName)
	}
	return names
}

// testEnv - полностью собранный слой сервисов поверх хранилища в памяти.
type testEnv struct {
	store        *memStore
	cache        *memCache
	notifier     *recordingNotifier
	historyRepo  *fakeHistoryRepo
	projectRepo  *fakeProjectRepo
	equipment    *EquipmentService
	activities   *ActivityService
	plans        *PlanService
	availability *AvailabilityService
	importer     *EquipmentImportService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	logger := zap.NewNop()
	cache := newMemCache()
	notifier := &recordingNotifier{}
	validate := customvalidator.New()

	tx := &fakeTxManager{store: store}
	equipmentRepo := &fakeEquipmentRepo{store: store}
	historyRepo := &fakeHistoryRepo{store: store}
	planRepo := &fakePlanRepo{store: store}
	projectRepo := &fakeProjectRepo{store: store}

	base := NewBaseService(cache, time.Minute, logger)
	history := NewEquipmentHistoryService(historyRepo, logger)
	ledger := NewActivityLedger(&fakeActivityRepo{store: store}, logger)

	equipment := NewEquipmentService(base, tx, equipmentRepo, planRepo, history, notifier, validate, logger)
	return &testEnv{
		store:        store,
		cache:        cache,
		notifier:     notifier,
		historyRepo:  historyRepo,
		projectRepo:  projectRepo,
		equipment:    equipment,
		activities:   NewActivityService(base, tx, equipmentRepo, planRepo, ledger, history, notifier, validate, logger),
		plans:        NewPlanService(base, tx, planRepo, equipmentRepo, projectRepo, ledger, history, notifier, validate, logger),
		availability: NewAvailabilityService(equipmentRepo, planRepo, logger),
		importer:     NewEquipmentImportService(equipment, notifier, logger),
	}
}

func fp(v float64) *float64 { return &v }

func sp(s string) *string { return &s }

var equipmentSeq int

func newEquipmentDTO(status string) dto.CreateEquipmentDTO {
	equipmentSeq++
	data := dto.CreateEquipmentDTO{
		Name:                fmt.Sprintf("Pompe %d", equipmentSeq),
		Reference:           fmt.Sprintf("REF-%04d", equipmentSeq),
		Matricule:           fmt.Sprintf("MAT-%04d", equipmentSeq),
		Dimensions:          &dto.DimensionsDTO{Height: fp(100), Width: fp(50), Length: fp(200), Weight: fp(300)},
		OperatingConditions: &dto.OperatingConditionsDTO{Temperature: fp(80), Pressure: fp(10)},
		Location:            "Base HMD",
	}
	if status != "" {
		data.Status = sp(status)
	}
	return data
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func planDTO(planType, equipmentID string, from, to int) dto.CreatePlanDTO {
	data := dto.CreatePlanDTO{
		Title:             "Plan " + planType,
		StartDate:         day(from),
		EndDate:           day(to),
		Type:              planType,
		ResponsiblePerson: dto.ResponsiblePersonDTO{Name: "K. Benali"},
	}
	if equipmentID != "" {
		data.EquipmentID = sp(equipmentID)
	}
	return data
}
