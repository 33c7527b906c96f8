package scheduler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/storage"
)

type sent struct {
	chatID int64
	text   string
	taskID int64
}

type fakeSender struct {
	sent []sent
	// failFor makes sends to these chats fail.
	failFor map[int64]bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.failFor[chatID] {
		return errors.New("telegram: bad gateway")
	}
	f.sent = append(f.sent, sent{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) SendTaskNotification(chatID int64, text string, taskID int64) error {
	if f.failFor[chatID] {
		return errors.New("telegram: bad gateway")
	}
	f.sent = append(f.sent, sent{chatID: chatID, text: text, taskID: taskID})
	return nil
}

var now = time.Date(2024, 1, 1, 10, 0, 0, 0, domain.Zone(3))

func newTestScheduler(t *testing.T) (*Scheduler, *storage.Storage, *fakeSender) {
	t.Helper()
	st, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := New(Config{CleanupEvery: 3}, st)
	sender := &fakeSender{failFor: map[int64]bool{}}
	s.SetSender(sender)
	s.now = func() time.Time { return now }
	return s, st, sender
}

func addReminder(t *testing.T, st *storage.Storage, userID int64, text string, at time.Time, repeat domain.RepeatKind) *domain.Reminder {
	t.Helper()
	r := &domain.Reminder{UserID: userID, Text: text, ReminderTime: at, PreReminderTime: at.Add(-domain.PreReminderOffset), RepeatType: repeat}
	if repeat.IsRecurring() {
		next := at.Add(repeat.Period())
		r.RepeatTime = &next
	}
	require.NoError(t, st.CreateReminder(r))
	return r
}

func TestDeliverDueOverdueFiresBothInOrder(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	r := addReminder(t, st, 1, "купить хлеб", now.Add(-20*time.Minute), domain.RepeatNone)

	s.DeliverDue(now)

	require.Len(t, sender.sent, 2)
	assert.True(t, strings.HasPrefix(sender.sent[0].text, "⏰ Предварительное напоминание (через 15 минут)!"))
	assert.True(t, strings.HasPrefix(sender.sent[1].text, "🔔 Время пришло!"))
	assert.Contains(t, sender.sent[1].text, "📝 купить хлеб")

	got, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPreReminderSent)
	assert.True(t, got.IsMainReminderSent)
}

func TestDeliverDueIsIdempotent(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	addReminder(t, st, 1, "купить хлеб", now.Add(-time.Minute), domain.RepeatNone)
	addReminder(t, st, 1, "позвонить маме", now.Add(10*time.Minute), domain.RepeatNone)

	s.DeliverDue(now)
	first := len(sender.sent)
	assert.Equal(t, 3, first)

	s.DeliverDue(now)
	assert.Len(t, sender.sent, first)
}

func TestDeliverDueDoesNotFireEarly(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	addReminder(t, st, 1, "встреча", now.Add(16*time.Minute), domain.RepeatNone)

	s.DeliverDue(now)
	assert.Empty(t, sender.sent)

	s.DeliverDue(now.Add(time.Minute))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Предварительное")
}

func TestDeliverDueContinuesAfterFailure(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	failing := addReminder(t, st, 1, "первое", now.Add(-time.Minute), domain.RepeatNone)
	ok := addReminder(t, st, 2, "второе", now.Add(-time.Minute), domain.RepeatNone)
	sender.failFor[1] = true

	s.DeliverDue(now)
	require.Len(t, sender.sent, 2)
	for _, m := range sender.sent {
		assert.Equal(t, int64(2), m.chatID)
	}

	got, err := st.GetReminder(failing.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPreReminderSent)
	assert.False(t, got.IsMainReminderSent)

	got, err = st.GetReminder(ok.ID)
	require.NoError(t, err)
	assert.True(t, got.IsMainReminderSent)

	// the failed one is retried on the next poll
	delete(sender.failFor, 1)
	s.DeliverDue(now.Add(time.Minute))
	assert.Len(t, sender.sent, 4)
}

func TestDeliverDueRollsRecurringReminder(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	r := addReminder(t, st, 1, "таблетки", now.Add(-time.Minute), domain.RepeatDaily)

	s.DeliverDue(now)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].text, "🔄")
	assert.Contains(t, sender.sent[1].text, "🔄 (повторится завтра)")

	got, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	next := r.ReminderTime.AddDate(0, 0, 1)
	assert.True(t, next.Equal(got.ReminderTime), "got %s", got.ReminderTime)
	assert.False(t, got.IsPreReminderSent)
	assert.False(t, got.IsMainReminderSent)
	require.NotNil(t, got.RepeatTime)
	assert.True(t, next.AddDate(0, 0, 1).Equal(*got.RepeatTime))

	// nothing more today
	s.DeliverDue(now.Add(time.Hour))
	assert.Len(t, sender.sent, 2)

	// it fires again the next day
	s.DeliverDue(next)
	assert.Len(t, sender.sent, 4)

	// and survives cleanup
	s.Cleanup(next.Add(time.Hour))
	got, err = st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestDeliverDueTasks(t *testing.T) {
	s, st, sender := newTestScheduler(t)
	task := &domain.Task{UserID: 5, Text: "сдать отчет", ReminderTime: now.Add(-time.Minute), PreReminderTime: now.Add(-16 * time.Minute)}
	require.NoError(t, st.CreateTask(task))

	s.DeliverDue(now)
	require.Len(t, sender.sent, 2)
	assert.Zero(t, sender.sent[0].taskID)
	assert.Equal(t, task.ID, sender.sent[1].taskID)

	// snoozed: fires once more when the transfer time passes
	require.NoError(t, st.TransferTask(task.ID, now.Add(30*time.Minute)))
	s.DeliverDue(now.Add(10 * time.Minute))
	assert.Len(t, sender.sent, 2)

	s.DeliverDue(now.Add(31 * time.Minute))
	require.Len(t, sender.sent, 3)
	assert.Contains(t, sender.sent[2].text, "отложенной задаче")
	assert.Equal(t, task.ID, sender.sent[2].taskID)

	s.DeliverDue(now.Add(32 * time.Minute))
	assert.Len(t, sender.sent, 3)
}

func TestPollRunsCleanupEveryNth(t *testing.T) {
	s, st, _ := newTestScheduler(t)
	s.SetSender(nil)
	addReminder(t, st, 1, "старое", now.Add(-time.Hour), domain.RepeatNone)

	s.poll()
	s.poll()
	left, err := st.ListRemindersByUser(1)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	s.poll()
	left, err = st.ListRemindersByUser(1)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Zero(t, s.polls)
}

func TestNotificationText(t *testing.T) {
	assert.Equal(t, "🔔 Время пришло! 🔄 (повторится через неделю)\n📝 a &lt;b&gt;", mainNotification("a <b>", domain.RepeatWeekly))
	assert.Equal(t, "⏰ Предварительное напоминание (через 15 минут)!\n📝 x", preNotification("x", false))
}
