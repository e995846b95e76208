package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"reports/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Desktop settings persisted between sessions
// ─────────────────────────────────────────────────────────────

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastReport   = "last_report"

	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
)

// SettingsService reads and writes the app_settings key/value table.
type SettingsService struct {
	db *storage.DB
}

func NewSettingsService(db *storage.DB) *SettingsService {
	return &SettingsService{db: db}
}

// LoadWindowSize returns the saved window dimensions, or defaults when
// nothing usable is stored.
func (s *SettingsService) LoadWindowSize() WindowSize {
	w := s.intSetting(settingWindowWidth, defaultWindowWidth)
	h := s.intSetting(settingWindowHeight, defaultWindowHeight)
	if w < 800 {
		w = defaultWindowWidth
	}
	if h < 600 {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *SettingsService) SaveWindowSize(width, height int) error {
	if err := s.set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.set(settingWindowHeight, strconv.Itoa(height))
}

// LastReport is the path opened or published most recently, or "".
func (s *SettingsService) LastReport() string {
	v, _ := s.get(settingLastReport)
	return v
}

func (s *SettingsService) SetLastReport(path string) error {
	return s.set(settingLastReport, path)
}

func (s *SettingsService) intSetting(key string, fallback int) int {
	v, err := s.get(key)
	if err != nil || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s *SettingsService) get(key string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("settings: no db")
	}
	var v string
	err := s.db.Conn().QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *SettingsService) set(key, value string) error {
	if s.db == nil {
		return fmt.Errorf("settings: no db")
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
