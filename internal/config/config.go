package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	DataDir        string // persistent state (browser profile, capture db, log)
	ProfileDir     string // Chromium user data dir, keeps the login session
	DBPath         string
	LogPath        string
	OutputDir      string // JSON/CSV output under the working dir
	ExcelPath      string // note URL template workbook
	HomeURL        string
	NavTimeout     time.Duration
	SettleDelay    time.Duration // wait after navigation before scraping the page
	OpenDelay      time.Duration // gap between opening note tabs
	LoginTimeout   time.Duration
	LoginPoll      time.Duration
	FlushInterval  time.Duration // timer-triggered aggregate flush
	TotalsInterval time.Duration // re-check target comment counts
	EventBuffer    int
}

func Default() Config {
	dataDir := filepath.Join(userConfigDir(), "xhswatch")
	return Config{
		DataDir:        dataDir,
		ProfileDir:     filepath.Join(dataDir, "profile"),
		DBPath:         filepath.Join(dataDir, "capture.db"),
		LogPath:        filepath.Join(dataDir, "debug.log"),
		OutputDir:      "DataFile",
		ExcelPath:      "note_urls.xlsx",
		HomeURL:        "https://www.xiaohongshu.com/",
		NavTimeout:     60 * time.Second,
		SettleDelay:    3 * time.Second,
		OpenDelay:      2 * time.Second,
		LoginTimeout:   5 * time.Minute,
		LoginPoll:      2 * time.Second,
		FlushInterval:  5 * time.Second,
		TotalsInterval: 20 * time.Second,
		EventBuffer:    128,
	}
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
