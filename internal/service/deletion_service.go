package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tazhate/remindbot/internal/domain"
	"github.com/tazhate/remindbot/internal/storage"
	"github.com/tazhate/remindbot/internal/timeparse"
)

const (
	DefaultDeleteContextTTL = 10 * time.Minute
	deleteContextSize       = 1024
)

// DeleteContext is a pending choice between several deletion candidates.
type DeleteContext struct {
	Query      string
	ByDate     bool
	Candidates []domain.Entry
}

// DeleteOutcome describes what a deletion request or follow-up did.
type DeleteOutcome struct {
	Deleted   []domain.Entry
	Pending   *DeleteContext
	Cancelled bool
}

// DeletionService finds entries matching a free-form query and deletes them,
// asking the user to choose when more than one matches.
type DeletionService struct {
	storage  *storage.Storage
	profiles *ProfileService
	calendar *CalendarService
	contexts *expirable.LRU[int64, *DeleteContext]
	now      func() time.Time
}

func NewDeletionService(s *storage.Storage, profiles *ProfileService, calendar *CalendarService, ttl time.Duration) *DeletionService {
	if ttl <= 0 {
		ttl = DefaultDeleteContextTTL
	}
	return &DeletionService{
		storage:  s,
		profiles: profiles,
		calendar: calendar,
		contexts: expirable.NewLRU[int64, *DeleteContext](deleteContextSize, nil, ttl),
		now:      time.Now,
	}
}

// Find returns the user's entries of the given kind matching query, and whether
// they were matched by date.
//
// A query naming a date matches every entry on that date in the user's zone.
// Otherwise the whole query is matched as a substring of the entry text, and if
// that finds nothing, every significant word of the query (stemmed) must occur
// in the text.
func (s *DeletionService) Find(userID int64, kind domain.EntityKind, query string) ([]domain.Entry, bool, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	entries, err := s.entries(userID, kind)
	if err != nil {
		return nil, false, err
	}
	loc := s.profiles.Location(userID)

	if day, ok := timeparse.ParseDateQuery(query, s.now().In(loc)); ok {
		var matched []domain.Entry
		for _, e := range entries {
			if timeparse.SameDay(e.At, day) {
				matched = append(matched, e)
			}
		}
		if len(matched) > 0 {
			return matched, true, nil
		}
	}

	var matched []domain.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Text), query) {
			matched = append(matched, e)
		}
	}
	if len(matched) > 0 {
		return matched, false, nil
	}

	stems := keywordStems(query)
	if len(stems) == 0 {
		return nil, false, nil
	}
	for _, e := range entries {
		text := strings.ToLower(e.Text)
		all := true
		for _, st := range stems {
			if !strings.Contains(text, st) {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, e)
		}
	}
	return matched, false, nil
}

func (s *DeletionService) entries(userID int64, kind domain.EntityKind) ([]domain.Entry, error) {
	var entries []domain.Entry
	if kind == domain.KindTask {
		tasks, err := s.storage.ListTasksByUser(userID, false)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		for _, t := range tasks {
			entries = append(entries, t.Entry())
		}
		return entries, nil
	}

	reminders, err := s.storage.ListRemindersByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	for _, r := range reminders {
		entries = append(entries, r.Entry())
	}
	return entries, nil
}

// Request deletes the single match right away, or remembers several matches
// until the user picks one with FollowUp.
func (s *DeletionService) Request(ctx context.Context, userID int64, kind domain.EntityKind, query string) (*DeleteOutcome, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, domain.ErrEmptyText
	}

	candidates, byDate, err := s.Find(userID, kind, query)
	if err != nil {
		return nil, err
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("delete %q: %w", query, domain.ErrNotFound)
	case 1:
		if err := s.delete(ctx, candidates[0]); err != nil {
			return nil, err
		}
		return &DeleteOutcome{Deleted: candidates}, nil
	}

	dc := &DeleteContext{Query: query, ByDate: byDate, Candidates: candidates}
	s.contexts.Add(userID, dc)
	return &DeleteOutcome{Pending: dc}, nil
}

// Pending returns the user's unexpired disambiguation context.
func (s *DeletionService) Pending(userID int64) (*DeleteContext, bool) {
	return s.contexts.Get(userID)
}

// FollowUp interprets a reply to a disambiguation list. handled is false when
// there is no pending context or the text is not a deletion command; the
// context is kept in that case. An out-of-range number also keeps the context
// and returns an *domain.IndexOutOfRangeError.
func (s *DeletionService) FollowUp(ctx context.Context, userID int64, text string) (out *DeleteOutcome, handled bool, err error) {
	dc, ok := s.contexts.Get(userID)
	if !ok {
		return nil, false, nil
	}

	cmd := strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!")
	cmd = strings.ReplaceAll(cmd, "ё", "е")
	switch cmd {
	case "удали все", "удалить все":
		s.contexts.Remove(userID)
		out = &DeleteOutcome{}
		for _, e := range dc.Candidates {
			if err := s.delete(ctx, e); err != nil {
				log.Printf("Error deleting %s %d: %v", e.Kind, e.ID, err)
				continue
			}
			out.Deleted = append(out.Deleted, e)
		}
		return out, true, nil

	case "удали первое", "удалить первое", "первое":
		s.contexts.Remove(userID)
		if err := s.delete(ctx, dc.Candidates[0]); err != nil {
			return nil, true, err
		}
		return &DeleteOutcome{Deleted: dc.Candidates[:1]}, true, nil

	case "отмена", "отменить":
		s.contexts.Remove(userID)
		return &DeleteOutcome{Cancelled: true}, true, nil
	}

	n, ok := parseIndexCommand(cmd)
	if !ok {
		return nil, false, nil
	}
	if n < 1 || n > len(dc.Candidates) {
		return nil, true, &domain.IndexOutOfRangeError{Index: n, Max: len(dc.Candidates)}
	}
	s.contexts.Remove(userID)
	e := dc.Candidates[n-1]
	if err := s.delete(ctx, e); err != nil {
		return nil, true, err
	}
	return &DeleteOutcome{Deleted: []domain.Entry{e}}, true, nil
}

// parseIndexCommand parses "удали 3" and "удалить 3".
func parseIndexCommand(cmd string) (int, bool) {
	for _, verb := range []string{"удали ", "удалить "} {
		if rest, ok := strings.CutPrefix(cmd, verb); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			return n, err == nil
		}
	}
	return 0, false
}

func (s *DeletionService) delete(ctx context.Context, e domain.Entry) error {
	var err error
	if e.Kind == domain.KindTask {
		err = s.storage.DeleteTask(e.ID)
	} else {
		err = s.storage.DeleteReminder(e.ID)
	}
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", e.Kind, e.ID, err)
	}
	if err := s.calendar.Remove(ctx, e); err != nil {
		log.Printf("Error removing %s %d from calendar: %v", e.Kind, e.ID, err)
	}
	return nil
}

var queryStopWords = map[string]bool{
	"удали": true, "удалить": true, "убери": true, "убрать": true, "отмени": true, "отменить": true,
	"сотри": true, "все": true, "всё": true, "мои": true, "мое": true, "моё": true, "мой": true,
	"напоминание": true, "напоминания": true, "напоминаний": true, "напоминалку": true,
	"задачу": true, "задачи": true, "задача": true, "задач": true,
	"про": true, "о": true, "об": true, "обо": true, "на": true, "по": true, "с": true, "в": true,
	"что": true, "который": true, "которое": true, "которые": true, "пожалуйста": true,
}

// keywordStems strips command and filler words from query and cuts common
// Russian inflection endings off the rest: "про врача" gives ["врач"].
func keywordStems(query string) []string {
	var stems []string
	for _, w := range strings.FieldsFunc(query, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if queryStopWords[w] {
			continue
		}
		stems = append(stems, stem(w))
	}
	return stems
}

const inflectionLetters = "аяоеёуюыиьйм"

func stem(w string) string {
	r := []rune(w)
	for cut := 0; cut < 2 && len(r) > 4 && strings.ContainsRune(inflectionLetters, r[len(r)-1]); cut++ {
		r = r[:len(r)-1]
	}
	return string(r)
}

// FormatDeleted confirms one or more deletions.
func FormatDeleted(out *DeleteOutcome, query string, loc *time.Location) string {
	if len(out.Deleted) == 1 {
		e := out.Deleted[0]
		title := "✅ Напоминание удалено!"
		if e.Kind == domain.KindTask {
			title = "✅ Задача удалена!"
		}
		return fmt.Sprintf("%s\n📝 Текст: %s%s\n   🕐 %s", title, escapeHTML(e.Text), repeatSuffix(e.RepeatType), FormatDate(e.At, loc))
	}
	return fmt.Sprintf("✅ Удалено %d по запросу '%s'", len(out.Deleted), escapeHTML(query))
}

func repeatSuffix(k domain.RepeatKind) string {
	switch k {
	case domain.RepeatDaily:
		return " (повторяющееся каждый день)"
	case domain.RepeatWeekly:
		return " (повторяющееся каждую неделю)"
	}
	return ""
}

// FormatCandidates renders the numbered disambiguation list.
func FormatCandidates(dc *DeleteContext, loc *time.Location) string {
	how := "по тексту"
	if dc.ByDate {
		how = "по дате"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Найдено %d совпадений %s '%s':\n\n", len(dc.Candidates), how, escapeHTML(dc.Query))
	for i, e := range dc.Candidates {
		mark := ""
		if e.RepeatType.IsRecurring() {
			mark = " 🔄"
		}
		fmt.Fprintf(&sb, "%d. <b>%s</b>%s\n   🕐 %s\n", i+1, escapeHTML(e.Text), mark, FormatDate(e.At, loc))
	}
	sb.WriteString("\n💡 Что хотите сделать? Напишите:\n" +
		"• 'Удали все' - чтобы удалить все найденные\n" +
		"• 'Удали первое' - чтобы удалить первое в списке\n" +
		"• 'Удали 3' - чтобы удалить пункт под номером 3\n" +
		"• 'Отмена' - чтобы отменить удаление")
	return sb.String()
}

// NotFound is the reply when nothing matches a deletion query.
func NotFound(query string) string {
	return "Не найдено напоминаний по запросу: '" + escapeHTML(query) + "'\n\n" +
		"💡 Попробуйте:\n" +
		"• Использовать другие ключевые слова\n" +
		"• Посмотреть все напоминания: нажмите '📋 Мои напоминания'\n" +
		"• Указать более точное описание"
}
