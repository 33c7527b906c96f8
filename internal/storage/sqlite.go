package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/remindbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection: sqlite has a single writer and :memory: is per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			addressing TEXT NOT NULL DEFAULT 'ты',
			tone TEXT NOT NULL DEFAULT 'дружелюбный',
			utc_offset INTEGER NOT NULL DEFAULT 3,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			reminder_time DATETIME NOT NULL,
			pre_reminder_time DATETIME NOT NULL,
			is_pre_reminder_sent INTEGER NOT NULL DEFAULT 0,
			is_main_reminder_sent INTEGER NOT NULL DEFAULT 0,
			repeat_type TEXT NOT NULL DEFAULT '',
			repeat_time DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user_id ON reminders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_reminder_time ON reminders(reminder_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_pre_reminder_time ON reminders(pre_reminder_time)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			reminder_time DATETIME NOT NULL,
			pre_reminder_time DATETIME NOT NULL,
			is_pre_reminder_sent INTEGER NOT NULL DEFAULT 0,
			is_main_reminder_sent INTEGER NOT NULL DEFAULT 0,
			repeat_type TEXT NOT NULL DEFAULT '',
			repeat_time DATETIME,
			is_completed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_reminder_time ON tasks(reminder_time)`,
		// Snooze support
		`ALTER TABLE tasks ADD COLUMN is_transfered INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE tasks ADD COLUMN transfer_time DATETIME`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// Times are stored in UTC so that text comparison in SQL matches time order.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type scanner interface {
	Scan(dest ...any) error
}

// === Profiles ===

func (s *Storage) CreateProfile(p *domain.UserProfile) error {
	_, err := s.db.Exec(
		`INSERT INTO user_profiles (user_id, name, addressing, tone, utc_offset) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Addressing, p.Tone, p.UTCOffset,
	)
	if err != nil {
		return err
	}
	p.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetProfile(userID int64) (*domain.UserProfile, error) {
	p := &domain.UserProfile{}
	err := s.db.QueryRow(
		`SELECT user_id, name, addressing, tone, utc_offset, created_at FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.Name, &p.Addressing, &p.Tone, &p.UTCOffset, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Storage) UpdateProfileOffset(userID int64, offset int) error {
	_, err := s.db.Exec(`UPDATE user_profiles SET utc_offset = ? WHERE user_id = ?`, offset, userID)
	return err
}

func (s *Storage) UpdateProfileStyle(userID int64, addressing, tone string) error {
	_, err := s.db.Exec(`UPDATE user_profiles SET addressing = ?, tone = ? WHERE user_id = ?`, addressing, tone, userID)
	return err
}

// === Reminders ===

const reminderColumns = `id, user_id, text, reminder_time, pre_reminder_time, is_pre_reminder_sent, is_main_reminder_sent, repeat_type, repeat_time, created_at`

func scanReminder(row scanner) (*domain.Reminder, error) {
	r := &domain.Reminder{}
	err := row.Scan(&r.ID, &r.UserID, &r.Text, &r.ReminderTime, &r.PreReminderTime,
		&r.IsPreReminderSent, &r.IsMainReminderSent, &r.RepeatType, &r.RepeatTime, &r.CreatedAt)
	return r, err
}

func (s *Storage) queryReminders(query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *Storage) CreateReminder(r *domain.Reminder) error {
	res, err := s.db.Exec(
		`INSERT INTO reminders (user_id, text, reminder_time, pre_reminder_time, repeat_type, repeat_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Text, utc(r.ReminderTime), utc(r.PreReminderTime), r.RepeatType, utcPtr(r.RepeatTime),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	r.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetReminder(id int64) (*domain.Reminder, error) {
	r, err := scanReminder(s.db.QueryRow(`SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *Storage) ListRemindersByUser(userID int64) ([]*domain.Reminder, error) {
	return s.queryReminders(
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY reminder_time ASC`,
		userID,
	)
}

// ListPreDueReminders returns reminders whose pre-notification is due and not
// yet sent.
func (s *Storage) ListPreDueReminders(now time.Time) ([]*domain.Reminder, error) {
	now = utc(now)
	return s.queryReminders(
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE is_pre_reminder_sent = 0
		   AND (pre_reminder_time <= ?
		        OR (repeat_type != '' AND repeat_time IS NOT NULL AND repeat_time >= ? AND repeat_time <= ?))
		 ORDER BY reminder_time ASC`,
		now, now.Add(-domain.PreReminderOffset), now,
	)
}

// ListMainDueReminders returns reminders whose main notification is due and not
// yet sent.
func (s *Storage) ListMainDueReminders(now time.Time) ([]*domain.Reminder, error) {
	now = utc(now)
	return s.queryReminders(
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE is_main_reminder_sent = 0
		   AND (reminder_time <= ?
		        OR (repeat_type != '' AND repeat_time IS NOT NULL AND repeat_time <= ?))
		 ORDER BY reminder_time ASC`,
		now, now,
	)
}

func (s *Storage) MarkReminderPreSent(id int64) error {
	_, err := s.db.Exec(`UPDATE reminders SET is_pre_reminder_sent = 1 WHERE id = ?`, id)
	return err
}

func (s *Storage) MarkReminderMainSent(id int64) error {
	_, err := s.db.Exec(`UPDATE reminders SET is_main_reminder_sent = 1 WHERE id = ?`, id)
	return err
}

// RescheduleReminder moves a recurring reminder to its next occurrence and
// re-arms both notifications.
func (s *Storage) RescheduleReminder(id int64, reminderTime, preReminderTime time.Time, repeatTime *time.Time) error {
	_, err := s.db.Exec(
		`UPDATE reminders
		 SET reminder_time = ?, pre_reminder_time = ?, repeat_time = ?,
		     is_pre_reminder_sent = 0, is_main_reminder_sent = 0
		 WHERE id = ?`,
		utc(reminderTime), utc(preReminderTime), utcPtr(repeatTime), id,
	)
	return err
}

func (s *Storage) DeleteReminder(id int64) error {
	res, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpiredReminders removes one-shot reminders whose time has passed.
// Recurring reminders are rescheduled instead and never expire.
func (s *Storage) DeleteExpiredReminders(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM reminders WHERE reminder_time <= ? AND repeat_type = ''`, utc(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// === Tasks ===

const taskColumns = `id, user_id, text, reminder_time, pre_reminder_time, is_pre_reminder_sent, is_main_reminder_sent, repeat_type, repeat_time, is_completed, is_transfered, transfer_time, created_at`

func scanTask(row scanner) (*domain.Task, error) {
	t := &domain.Task{}
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &t.ReminderTime, &t.PreReminderTime,
		&t.IsPreReminderSent, &t.IsMainReminderSent, &t.RepeatType, &t.RepeatTime,
		&t.IsCompleted, &t.IsTransfered, &t.TransferTime, &t.CreatedAt)
	return t, err
}

func (s *Storage) queryTasks(query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Storage) CreateTask(t *domain.Task) error {
	res, err := s.db.Exec(
		`INSERT INTO tasks (user_id, text, reminder_time, pre_reminder_time, repeat_type, repeat_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Text, utc(t.ReminderTime), utc(t.PreReminderTime), t.RepeatType, utcPtr(t.RepeatTime),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	t.ID = id
	t.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetTask(id int64) (*domain.Task, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Storage) ListTasksByUser(userID int64, includeCompleted bool) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	if !includeCompleted {
		query += ` AND is_completed = 0`
	}
	query += ` ORDER BY reminder_time ASC`
	return s.queryTasks(query, userID)
}

func (s *Storage) ListPreDueTasks(now time.Time) ([]*domain.Task, error) {
	return s.queryTasks(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE is_completed = 0 AND is_pre_reminder_sent = 0 AND pre_reminder_time <= ?
		 ORDER BY reminder_time ASC`,
		utc(now),
	)
}

// ListMainDueTasks returns open tasks that are due for the first time or whose
// snooze has elapsed.
func (s *Storage) ListMainDueTasks(now time.Time) ([]*domain.Task, error) {
	now = utc(now)
	return s.queryTasks(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE is_completed = 0
		   AND ((is_main_reminder_sent = 0 AND reminder_time <= ?)
		        OR (is_transfered = 1 AND transfer_time <= ?))
		 ORDER BY reminder_time ASC`,
		now, now,
	)
}

func (s *Storage) MarkTaskPreSent(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET is_pre_reminder_sent = 1 WHERE id = ?`, id)
	return err
}

// MarkTaskMainSent records a delivered main notification. A delivered snooze is
// consumed so that it fires once.
func (s *Storage) MarkTaskMainSent(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET is_main_reminder_sent = 1, is_transfered = 0 WHERE id = ?`, id)
	return err
}

func (s *Storage) CompleteTask(id int64) error {
	_, err := s.db.Exec(`UPDATE tasks SET is_completed = 1, is_transfered = 0 WHERE id = ?`, id)
	return err
}

func (s *Storage) TransferTask(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET is_transfered = 1, transfer_time = ? WHERE id = ?`, utc(at), id)
	return err
}

// RescheduleTask moves a recurring task to its next occurrence.
func (s *Storage) RescheduleTask(id int64, reminderTime, preReminderTime time.Time, repeatTime *time.Time) error {
	_, err := s.db.Exec(
		`UPDATE tasks
		 SET reminder_time = ?, pre_reminder_time = ?, repeat_time = ?,
		     is_pre_reminder_sent = 0, is_main_reminder_sent = 0, is_transfered = 0, transfer_time = NULL
		 WHERE id = ?`,
		utc(reminderTime), utc(preReminderTime), utcPtr(repeatTime), id,
	)
	return err
}

func (s *Storage) DeleteTask(id int64) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteCompletedTasks() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE is_completed = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
