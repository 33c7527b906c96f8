package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/remindbot/config"
	"github.com/tazhate/remindbot/internal/clients/assistant"
	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/service"
	"github.com/tazhate/remindbot/internal/storage"
	"github.com/tazhate/remindbot/internal/timeparse"
)

const userID int64 = 100

type fakeClassifier struct {
	intent *assistant.Intent
	err    error
	calls  []assistant.Request
	resets []int64
}

func (f *fakeClassifier) Classify(ctx context.Context, req assistant.Request) (*assistant.Intent, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakeClassifier) Reset(userID int64) {
	f.resets = append(f.resets, userID)
}

type testBot struct {
	*Bot
	storage    *storage.Storage
	classifier *fakeClassifier
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	s, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	profiles := service.NewProfileService(s, domain.DefaultUTCOffset)
	_, err = profiles.Ensure(userID, "Аня")
	require.NoError(t, err)

	svc := Services{
		Profiles:  profiles,
		Reminders: service.NewReminderService(s, profiles, timeparse.NewResolver(nil), nil),
		Tasks:     service.NewTaskService(s, profiles, nil),
		Deletion:  service.NewDeletionService(s, profiles, nil, time.Minute),
	}
	cfg := &config.Config{APIUsername: "admin", APIPassword: "secret"}
	classifier := &fakeClassifier{}
	return &testBot{Bot: newBot(cfg, svc, classifier, nil), storage: s, classifier: classifier}
}

func (tb *testBot) addReminder(t *testing.T, text string, at time.Time) {
	t.Helper()
	r := &domain.Reminder{UserID: userID, Text: text, ReminderTime: at, PreReminderTime: at.Add(-domain.PreReminderOffset)}
	require.NoError(t, tb.storage.CreateReminder(r))
}

func TestRespondCreatesReminder(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentReminder, Text: "Купить хлеб", Time: "через 2 часа"}

	reply := tb.respond(ctx, userID, "напомни через 2 часа купить хлеб")
	assert.Contains(t, reply, "✅ Напоминание установлено!")
	assert.Contains(t, reply, "Купить хлеб")

	require.Len(t, tb.classifier.calls, 1)
	req := tb.classifier.calls[0]
	assert.Equal(t, userID, req.UserID)
	assert.Equal(t, "+3", req.Now.Location().String())

	list := tb.respond(ctx, userID, listButton)
	assert.Contains(t, list, "Купить хлеб")
	assert.Len(t, tb.classifier.calls, 1)
}

func TestRespondCreatesTask(t *testing.T) {
	tb := newTestBot(t)
	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentTask, Text: "Сдать отчёт", Time: "через 3 дня"}

	reply := tb.respond(context.Background(), userID, "задача через 3 дня сдать отчёт")
	assert.Contains(t, reply, "✅ Задача установлена!")

	tasks, err := tb.storage.ListTasksByUser(userID, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Сдать отчёт", tasks[0].Text)
}

func TestRespondCreateErrors(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentReminder, Text: "Позвонить маме"}
	assert.Contains(t, tb.respond(ctx, userID, "напомни позвонить маме"), "Когда вам напомнить?")

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentReminder, Text: "Купить хлеб", Time: "когда-нибудь потом"}
	assert.Contains(t, tb.respond(ctx, userID, "напомни когда-нибудь"), "Не удалось определить время")

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentReminder}
	assert.Equal(t, msgEmptyText, tb.respond(ctx, userID, "напомни"))
}

func TestRespondConversation(t *testing.T) {
	tb := newTestBot(t)
	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentConversation, Message: "Привет! <3 & всё"}
	assert.Equal(t, "Привет! &lt;3 &amp; всё", tb.respond(context.Background(), userID, "привет"))

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentConversation}
	assert.Equal(t, msgNotUnderstood, tb.respond(context.Background(), userID, "..."))
}

func TestRespondUpstreamFailure(t *testing.T) {
	tb := newTestBot(t)
	tb.classifier.err = fmt.Errorf("chat: %w", domain.ErrUpstream)
	assert.Equal(t, msgUpstream, tb.respond(context.Background(), userID, "привет"))
}

func TestRespondDeleteFlow(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	base := time.Now().Add(48 * time.Hour)
	tb.addReminder(t, "Позвонить врачу", base)
	tb.addReminder(t, "Записаться к врачу", base.Add(time.Hour))
	tb.addReminder(t, "Купить хлеб", base.Add(2*time.Hour))

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete, Text: "врачу"}
	reply := tb.respond(ctx, userID, "удали напоминание врачу")
	assert.Contains(t, reply, "Найдено 2 совпадений по тексту 'врачу'")
	require.Len(t, tb.classifier.calls, 1)

	reply = tb.respond(ctx, userID, "удали 5")
	assert.Equal(t, "❌ Неверный номер. Укажите число от 1 до 2", reply)
	_, pending := tb.deletion.Pending(userID)
	assert.True(t, pending)

	reply = tb.respond(ctx, userID, "Удали 2")
	assert.Contains(t, reply, "✅ Напоминание удалено!")
	assert.Contains(t, reply, "Записаться к врачу")
	assert.Len(t, tb.classifier.calls, 1, "follow-ups never reach the classifier")

	left, err := tb.storage.ListRemindersByUser(userID)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "Позвонить врачу", left[0].Text)
	assert.Equal(t, "Купить хлеб", left[1].Text)
}

func TestRespondFollowUpAfterCandidateGone(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	base := time.Now().Add(48 * time.Hour)
	tb.addReminder(t, "Позвонить врачу", base)
	tb.addReminder(t, "Записаться к врачу", base.Add(time.Hour))

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete, Text: "врачу"}
	assert.Contains(t, tb.respond(ctx, userID, "удали врачу"), "Найдено 2 совпадений")

	// removed behind the list's back, e.g. by cleanup
	all, err := tb.storage.ListRemindersByUser(userID)
	require.NoError(t, err)
	for _, r := range all {
		require.NoError(t, tb.storage.DeleteReminder(r.ID))
	}

	reply := tb.respond(ctx, userID, "удали 1")
	assert.Contains(t, reply, "Не найдено напоминаний по запросу: 'врачу'")
	_, pending := tb.deletion.Pending(userID)
	assert.False(t, pending)
}

func TestRespondDeleteSingleAndMissing(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	tb.addReminder(t, "Купить хлеб", time.Now().Add(time.Hour))

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete, Text: "молоко"}
	assert.Contains(t, tb.respond(ctx, userID, "удали молоко"), "Не найдено напоминаний по запросу: 'молоко'")

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete, Text: "хлеб"}
	assert.Contains(t, tb.respond(ctx, userID, "удали хлеб"), "✅ Напоминание удалено!")

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete}
	assert.Equal(t, msgDeleteWhat, tb.respond(ctx, userID, "удали"))
}

func TestRespondFollowUpCancelAndUnrelated(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	base := time.Now().Add(24 * time.Hour)
	tb.addReminder(t, "Таблетки утром", base)
	tb.addReminder(t, "Таблетки вечером", base.Add(time.Hour))

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentDelete, Text: "таблетки"}
	tb.respond(ctx, userID, "удали таблетки")

	tb.classifier.intent = &assistant.Intent{Type: assistant.IntentConversation, Message: "Хорошо"}
	assert.Equal(t, "Хорошо", tb.respond(ctx, userID, "как дела?"))
	_, pending := tb.deletion.Pending(userID)
	assert.True(t, pending, "unrelated text keeps the pending choice")

	assert.Equal(t, "❌ Удаление отменено", tb.respond(ctx, userID, "Отмена"))
	_, pending = tb.deletion.Pending(userID)
	assert.False(t, pending)

	left, err := tb.storage.ListRemindersByUser(userID)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestCommands(t *testing.T) {
	tb := newTestBot(t)

	start := tb.command(userID, "Аня", "start", "")
	assert.Contains(t, start, "Привет, Аня!")
	assert.Contains(t, start, "UTC+3")
	assert.Equal(t, []int64{userID}, tb.classifier.resets)

	assert.Contains(t, tb.command(userID, "", "timezone", "+5"), "✅ Часовой пояс: UTC+5")
	assert.Contains(t, tb.command(userID, "", "timezone", ""), "UTC+5")
	assert.Contains(t, tb.command(userID, "", "timezone", "+20"), "❌")
	assert.Equal(t, "+5", tb.profiles.Location(userID).String())

	assert.Contains(t, tb.command(userID, "", "style", "вы деловой"), "«вы», тон: деловой")
	p, err := tb.profiles.Get(userID)
	require.NoError(t, err)
	assert.Equal(t, "вы", p.Addressing)
	assert.Equal(t, "деловой", p.Tone)
	assert.Contains(t, tb.command(userID, "", "style", "он"), "/style ты")

	assert.Contains(t, tb.command(userID, "", "list", ""), "У вас пока нет активных напоминаний")
	assert.Equal(t, helpText, tb.command(userID, "", "help", ""))
	assert.Contains(t, tb.command(userID, "", "weather", ""), "Неизвестная команда")
}

func TestApplyCallback(t *testing.T) {
	tb := newTestBot(t)
	ctx := context.Background()
	at := time.Now().Add(-time.Minute)
	task := &domain.Task{UserID: userID, Text: "Полить цветы", ReminderTime: at, PreReminderTime: at.Add(-domain.PreReminderOffset)}
	require.NoError(t, tb.storage.CreateTask(task))

	text, answer := tb.applyCallback(ctx, userID, callbackData(domain.TaskPostpone, task.ID))
	assert.Contains(t, text, "перенесена")
	assert.Empty(t, answer)

	text, answer = tb.applyCallback(ctx, 999, callbackData(domain.TaskFinish, task.ID))
	assert.Empty(t, text)
	assert.Equal(t, "Задача не найдена", answer)

	text, _ = tb.applyCallback(ctx, userID, callbackData(domain.TaskRemove, task.ID))
	assert.Contains(t, text, "🗑 Задача удалена")

	_, answer = tb.applyCallback(ctx, userID, callbackData(domain.TaskFinish, task.ID))
	assert.Equal(t, "Задача не найдена", answer)

	text, answer = tb.applyCallback(ctx, userID, "page:2")
	assert.Empty(t, text)
	assert.Empty(t, answer)
}

func TestParseCallback(t *testing.T) {
	action, id, ok := parseCallback("finish:12")
	require.True(t, ok)
	assert.Equal(t, domain.TaskFinish, action)
	assert.Equal(t, int64(12), id)

	for _, data := range []string{"finish", "snooze:1", "remove:x", ""} {
		_, _, ok := parseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestAPI(t *testing.T) {
	tb := newTestBot(t)
	tb.addReminder(t, "Купить хлеб", time.Now().Add(3*time.Hour))
	mux := http.NewServeMux()
	tb.SetupAPI(mux)

	do := func(method, target string, auth bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if auth {
			req.SetBasicAuth("admin", "secret")
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/reminders?user_id=100", false).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/api/reminders", true).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodPost, "/api/tasks?user_id=100", true).Code)

	rec := do(http.MethodGet, "/api/reminders?user_id=100", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool            `json:"success"`
		Data    []EntryResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Купить хлеб", resp.Data[0].Text)
	assert.Equal(t, "reminder", resp.Data[0].Kind)
	assert.Equal(t, "через 2 ч.", resp.Data[0].Relative)
	assert.Nil(t, resp.Data[0].RRule)

	rec = do(http.MethodGet, "/api/tasks?user_id=100", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}
