package process

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookflow/internal/delivery"
	"bookflow/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fakeChannel struct {
	err      error
	payloads []delivery.Payload
}

func (f *fakeChannel) Execute(ctx context.Context, payload delivery.Payload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeResolver struct {
	booking *BookingRef
}

func (f *fakeResolver) ResolveBooking(ctx context.Context, id uint) (*BookingRef, error) {
	return f.booking, nil
}

func (f *fakeResolver) ResolveCustomer(ctx context.Context, id uint) (*CustomerRef, error) {
	return nil, nil
}

func (f *fakeResolver) ResolveTransaction(ctx context.Context, id uint) (*TransactionRef, error) {
	return nil, nil
}

func (f *fakeResolver) ResolveWaitingList(ctx context.Context, id uint) (*WaitingListRef, error) {
	return nil, nil
}

func newExecutorFixture(t *testing.T, channelErr error) (*ActionService, *fakeChannel, *gorm.DB, *ScheduledJob, *ProcessAction) {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&settings.GeneralSetting{}))

	proc := createBookingProcess(t, db, nil)
	job := &ScheduledJob{ProcessID: proc.ID, ObjectID: 100, Status: JobStatusScheduled}
	require.NoError(t, db.Create(job).Error)
	job.Process = *proc

	channel := &fakeChannel{err: channelErr}
	registry := delivery.NewRegistry()
	registry.Register(ActionSendEmail, channel)

	resolver := &fakeResolver{booking: &BookingRef{
		ID:     100,
		Code:   "BK-1001",
		Status: "approved",
		Customer: &CustomerRef{
			ID:        5,
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		},
	}}

	service := NewActionService(db, registry, settings.NewService(db), resolver, zaptest.NewLogger(t))
	return service, channel, db, job, &proc.Actions[0]
}

func TestRunActionSuccessRecordsTrackAndActivity(t *testing.T) {
	service, channel, db, job, action := newExecutorFixture(t, nil)

	err := service.RunAction(context.Background(), job, action, nil, nil)
	require.NoError(t, err)

	// 模板已渲染
	require.Len(t, channel.payloads, 1)
	assert.Equal(t, "ada@example.com", channel.payloads[0].To)
	assert.Equal(t, "您好 Ada", channel.payloads[0].Content)
	assert.Equal(t, "Ada", channel.payloads[0].FirstName)

	var track ScheduledActionTrack
	require.NoError(t, db.Where("scheduled_job_id = ?", job.ID).First(&track).Error)
	assert.Equal(t, TrackStatusSuccess, track.Status)
	assert.Equal(t, action.ID, track.ActionID)

	var logs []ActivityLog
	require.NoError(t, db.Where("action_type = ?", ActivityEmailSent).Find(&logs).Error)
	assert.Len(t, logs, 1)
}

func TestRunActionFailureRecordsTruncatedMessage(t *testing.T) {
	longErr := errors.New(strings.Repeat("x", 400))
	service, _, db, job, action := newExecutorFixture(t, longErr)

	err := service.RunAction(context.Background(), job, action, nil, nil)
	require.Error(t, err)

	var track ScheduledActionTrack
	require.NoError(t, db.Where("scheduled_job_id = ?", job.ID).First(&track).Error)
	assert.Equal(t, TrackStatusFailed, track.Status)
	assert.Len(t, track.Message, 250)

	// 失败同样产生活动日志
	var logCount int64
	require.NoError(t, db.Model(&ActivityLog{}).
		Where("action_type = ?", ActivityEmailSent).
		Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestRunActionUnknownTypeFailsClosed(t *testing.T) {
	service, channel, db, job, action := newExecutorFixture(t, nil)
	action.ActionType = "launch_rocket"

	err := service.RunAction(context.Background(), job, action, nil, nil)
	require.Error(t, err)

	// 未做任何投递
	assert.Empty(t, channel.payloads)

	var track ScheduledActionTrack
	require.NoError(t, db.Where("scheduled_job_id = ?", job.ID).First(&track).Error)
	assert.Equal(t, TrackStatusFailed, track.Status)
}

func TestRunActionContextOverridesModelData(t *testing.T) {
	service, channel, _, job, action := newExecutorFixture(t, nil)
	action.Content = "{{customer_first_name}} / {{promo_code}}"

	execCtx := map[string]any{
		"customer_first_name": "Grace",
		"promo_code":          "SPRING26",
	}
	require.NoError(t, service.RunAction(context.Background(), job, action, execCtx, nil))

	require.Len(t, channel.payloads, 1)
	assert.Equal(t, "Grace / SPRING26", channel.payloads[0].Content)
}

func TestActivityTypeMapping(t *testing.T) {
	assert.Equal(t, ActivityEmailSent, activityTypeFor(ActionSendEmail))
	assert.Equal(t, ActivitySMSSent, activityTypeFor(ActionSendSMS))
	assert.Equal(t, ActivityMailchimpContactAdded, activityTypeFor(ActionAddToMailchimpList))

	// 其余动作类型不产生活动日志
	assert.Empty(t, activityTypeFor(ActionSendWhatsApp))
	assert.Empty(t, activityTypeFor(ActionTriggerWebhook))
	assert.Empty(t, activityTypeFor(ActionSendPushNotification))
}
