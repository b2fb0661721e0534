package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/atelier-backend/internal/models"
	"github.com/ignatzorin/atelier-backend/internal/pkg/apperror"
	"github.com/ignatzorin/atelier-backend/internal/repository"
)

// fakeAppointmentRepo — in-memory реализация AppointmentRepo для тестов.
type fakeAppointmentRepo struct {
	mu         sync.Mutex
	nextID     int64
	items      map[int64]*models.Appointment
	lastFilter repository.AppointmentFilter
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{nextID: 1, items: map[int64]*models.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	copied := *a
	r.items[a.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAppointmentRepo) FindAll(ctx context.Context, filter repository.AppointmentFilter) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	var out []models.Appointment
	for _, a := range r.items {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.StartDate != nil && a.AppointmentTime.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && a.AppointmentTime.After(*filter.EndDate) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppointmentTime.Before(out[j].AppointmentTime)
	})
	if filter.Skip > 0 && filter.Skip < len(out) {
		out = out[filter.Skip:]
	} else if filter.Skip >= len(out) {
		out = nil
	}
	if filter.Take > 0 && filter.Take < len(out) {
		out = out[:filter.Take]
	}
	return out, nil
}

func (r *fakeAppointmentRepo) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error) {
	return r.FindAll(ctx, repository.AppointmentFilter{StartDate: &start, EndDate: &end})
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, id int64, upd repository.AppointmentUpdate) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	if upd.AppointmentTime != nil {
		a.AppointmentTime = *upd.AppointmentTime
	}
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Phone != nil {
		a.Phone = *upd.Phone
	}
	if upd.Email != nil {
		a.Email = *upd.Email
	}
	if upd.Notes != nil {
		a.Notes = upd.Notes
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id int64, status models.AppointmentStatus) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (r *fakeAppointmentRepo) Delete(ctx context.Context, id int64) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	delete(r.items, id)
	return a, nil
}

func (r *fakeAppointmentRepo) MarkReminded(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return repository.ErrAppointmentNotFound
	}
	now := time.Now()
	a.ReminderSentAt = &now
	return nil
}

func (r *fakeAppointmentRepo) CountAll(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items), nil
}

func (r *fakeAppointmentRepo) CountByStatus(ctx context.Context, status models.AppointmentStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.items {
		if a.Status == status {
			count++
		}
	}
	return count, nil
}

// fakeGateway записывает отправленные уведомления и умеет отдавать ошибку.
type fakeGateway struct {
	mu      sync.Mutex
	sent    []Notification
	failErr error
	sentCh  chan Notification
}

func (g *fakeGateway) Send(ctx context.Context, n Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failErr != nil {
		return g.failErr
	}
	g.sent = append(g.sent, n)
	if g.sentCh != nil {
		g.sentCh <- n
	}
	return nil
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func validInput() CreateAppointmentInput {
	return CreateAppointmentInput{
		AppointmentTime: time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC),
		Name:            "Ли Вэй",
		Phone:           "13800000000",
		Email:           "li@example.com",
	}
}

func TestAppointmentService_Create_ForcesPendingStatus(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)

	appointment, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, appointment.Status)
	assert.False(t, appointment.IsProcessed())
	assert.NotZero(t, appointment.ID)

	stored, err := repo.GetByID(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestAppointmentService_Create_NormalizesContactFields(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)

	in := validInput()
	in.Name = "  Ли Вэй  "
	in.Email = "  Li@Example.COM "

	appointment, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Ли Вэй", appointment.Name)
	assert.Equal(t, "li@example.com", appointment.Email)
}

func TestAppointmentService_Create_Validation(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateAppointmentInput)
	}{
		{"пустое время", func(in *CreateAppointmentInput) { in.AppointmentTime = time.Time{} }},
		{"пустое имя", func(in *CreateAppointmentInput) { in.Name = "" }},
		{"кривой телефон", func(in *CreateAppointmentInput) { in.Phone = "abc" }},
		{"кривой email", func(in *CreateAppointmentInput) { in.Email = "not-an-email" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.True(t, apperror.IsValidation(err), "ожидалась ошибка валидации, получено: %v", err)
		})
	}

	count, _ := repo.CountAll(ctx)
	assert.Zero(t, count, "невалидные заявки не должны сохраняться")
}

func TestAppointmentService_Create_SendsConfirmationAsync(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{sentCh: make(chan Notification, 1)}
	svc := NewAppointmentService(repo, gateway)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	select {
	case n := <-gateway.sentCh:
		assert.Equal(t, "li@example.com", n.To)
		assert.Equal(t, NotificationAppointmentConfirmation, n.Kind)
		assert.Equal(t, "Ли Вэй", n.Payload.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("письмо с подтверждением не отправлено")
	}
}

func TestAppointmentService_Create_SucceedsWhenNotificationFails(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{failErr: errors.New("smtp down")}
	svc := NewAppointmentService(repo, gateway)

	appointment, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.NotZero(t, appointment.ID)
}

func TestAppointmentService_Transition_AllTargetsAllowed(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	appointment, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	// Между статусами нет графа переходов: допустимы все, включая возврат назад.
	targets := []models.AppointmentStatus{
		models.StatusApproved,
		models.StatusRejected,
		models.StatusPendingCommunication,
		models.StatusPending,
	}
	for _, target := range targets {
		result, err := svc.Transition(ctx, appointment.ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, result.Appointment.Status)

		stored, err := repo.GetByID(ctx, appointment.ID)
		require.NoError(t, err)
		assert.Equal(t, target, stored.Status)
	}
}

func TestAppointmentService_Transition_InvalidStatus(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)

	_, err := svc.Transition(context.Background(), 1, models.AppointmentStatus(7))
	assert.True(t, apperror.IsValidation(err))
}

func TestAppointmentService_Transition_NotFound(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)

	_, err := svc.Transition(context.Background(), 999, models.StatusApproved)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAppointmentService_Transition_SendsStatusChangeNotification(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{}
	svc := NewAppointmentService(repo, gateway)
	ctx := context.Background()

	id := makeStoredAppointment(t, repo, 2*time.Hour, models.StatusPending)

	result, err := svc.Transition(ctx, id, models.StatusApproved)
	require.NoError(t, err)
	assert.Empty(t, result.Warning)

	require.Equal(t, 1, gateway.sentCount())
	n := gateway.sent[0]
	assert.Equal(t, NotificationAppointmentStatusChange, n.Kind)
	assert.Equal(t, "li@example.com", n.To)
	assert.Equal(t, models.StatusApproved.Name(), n.Payload.StatusName)
}

func TestAppointmentService_Transition_NotificationFailureIsWarning(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	appointment, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	gateway := &fakeGateway{failErr: errors.New("smtp down")}
	svcWithGateway := NewAppointmentService(repo, gateway)

	result, err := svcWithGateway.Transition(ctx, appointment.ID, models.StatusApproved)
	require.NoError(t, err, "ошибка доставки не должна откатывать переход")
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, models.StatusApproved, result.Appointment.Status)

	stored, err := repo.GetByID(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestAppointmentService_Update_RejectsStatusChange(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	appointment, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	status := models.StatusApproved
	_, err = svc.Update(ctx, appointment.ID, repository.AppointmentUpdate{Status: &status})
	assert.True(t, apperror.IsValidation(err))

	stored, err := repo.GetByID(ctx, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestAppointmentService_Update_PartialFields(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	appointment, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	newPhone := "13911112222"
	result, err := svc.Update(ctx, appointment.ID, repository.AppointmentUpdate{Phone: &newPhone})
	require.NoError(t, err)
	assert.Equal(t, newPhone, result.Appointment.Phone)
	assert.Equal(t, appointment.Name, result.Appointment.Name)
}

func TestAppointmentService_List_OrderedAndFiltered(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		in := validInput()
		// Создаём в обратном хронологическом порядке.
		in.AppointmentTime = base.AddDate(0, 0, 2-i)
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	appointments, err := svc.List(ctx, ListAppointmentsInput{})
	require.NoError(t, err)
	require.Len(t, appointments, 3)
	for i := 1; i < len(appointments); i++ {
		assert.False(t, appointments[i].AppointmentTime.Before(appointments[i-1].AppointmentTime),
			"выборка должна быть отсортирована по времени визита")
	}

	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 2)
	ranged, err := svc.List(ctx, ListAppointmentsInput{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Len(t, ranged, 2, "границы диапазона включаются")
}

func TestAppointmentService_List_DateOrderValidation(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.List(context.Background(), ListAppointmentsInput{StartDate: &start, EndDate: &end})
	assert.True(t, apperror.IsValidation(err))
}

func TestAppointmentService_List_PageSizeDefaultsAndCap(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastFilter.Take)

	_, err = svc.List(ctx, ListAppointmentsInput{Take: 500})
	require.NoError(t, err)
	assert.Equal(t, maxAppointmentsPage, repo.lastFilter.Take)
}

func TestAppointmentService_Stats(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	statuses := []models.AppointmentStatus{
		models.StatusPending,
		models.StatusPending,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusPendingCommunication,
	}
	for _, status := range statuses {
		appointment, err := svc.Create(ctx, validInput())
		require.NoError(t, err)
		if status != models.StatusPending {
			_, err = svc.Transition(ctx, appointment.ID, status)
			require.NoError(t, err)
		}
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.PendingCommunication)
	assert.Equal(t, stats.Approved, stats.Processed)
	assert.Equal(t, stats.Total, stats.Pending+stats.Rejected+stats.PendingCommunication+stats.Approved)
}

// makeStoredAppointment кладёт заявку в репозиторий напрямую, минуя Create,
// чтобы фоновые письма с подтверждением не мешали подсчёту отправок.
func makeStoredAppointment(t *testing.T, repo *fakeAppointmentRepo, offset time.Duration, status models.AppointmentStatus) int64 {
	t.Helper()
	a := &models.Appointment{
		AppointmentTime: time.Now().Add(offset),
		Name:            "Ли Вэй",
		Phone:           "13800000000",
		Email:           "li@example.com",
		Status:          status,
	}
	require.NoError(t, repo.Create(context.Background(), a))
	return a.ID
}

func TestAppointmentService_RemindUpcoming(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{}
	svc := NewAppointmentService(repo, gateway)
	ctx := context.Background()

	makeStoredAppointment(t, repo, 2*time.Hour, models.StatusApproved)  // попадает в окно
	makeStoredAppointment(t, repo, 2*time.Hour, models.StatusPending)   // не подтверждена
	makeStoredAppointment(t, repo, 48*time.Hour, models.StatusApproved) // за пределами окна
	makeStoredAppointment(t, repo, 3*time.Hour, models.StatusPendingCommunication)

	sent, err := svc.RemindUpcoming(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, gateway.sentCount())
}

func TestAppointmentService_RemindUpcoming_SendsEachAppointmentOnce(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{}
	svc := NewAppointmentService(repo, gateway)
	ctx := context.Background()

	id := makeStoredAppointment(t, repo, 2*time.Hour, models.StatusApproved)

	sent, err := svc.RemindUpcoming(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.ReminderSentAt, "после отправки должна остаться отметка")

	// Повторный запуск в том же окне: заявка уже получила напоминание.
	sent, err = svc.RemindUpcoming(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, gateway.sentCount())
}

func TestAppointmentService_RemindUpcoming_FailedSendRetriesNextRun(t *testing.T) {
	repo := newFakeAppointmentRepo()
	gateway := &fakeGateway{failErr: errors.New("smtp down")}
	svc := NewAppointmentService(repo, gateway)
	ctx := context.Background()

	id := makeStoredAppointment(t, repo, 2*time.Hour, models.StatusApproved)

	sent, err := svc.RemindUpcoming(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt, "неотправленное письмо не должно оставлять отметку")

	gateway.mu.Lock()
	gateway.failErr = nil
	gateway.mu.Unlock()

	sent, err = svc.RemindUpcoming(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

// Сквозной сценарий: клиент бронирует визит, администратор подтверждает,
// потом отклоняет, заявка удаляется.
func TestAppointmentService_EndToEnd(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := NewAppointmentService(repo, nil)
	ctx := context.Background()

	appointment, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.False(t, appointment.IsProcessed())

	approved, err := svc.Transition(ctx, appointment.ID, models.StatusApproved)
	require.NoError(t, err)
	assert.True(t, approved.Appointment.IsProcessed())

	rejected, err := svc.Transition(ctx, appointment.ID, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Appointment.Status)

	_, err = svc.Delete(ctx, appointment.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, appointment.ID)
	assert.True(t, apperror.IsNotFound(err))
}
