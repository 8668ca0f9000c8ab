// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultFeedURL = "https://www.contractsfinder.service.gov.uk/Published/Notices/Rss"

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	OpenAIAPIKey     string
	FeedURL          string
	DatabasePath     string
	CacheDir         string
	LogLevel         string
	FetchInterval    time.Duration
	AllowedUsers     []int64
}

// Load reads configuration from environment variables. Missing
// required credentials fail process start.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	feedURL := os.Getenv("FEED_URL")
	if feedURL == "" {
		feedURL = defaultFeedURL
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/tender.db"
	}

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./data/cache"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	interval := 10 * time.Minute
	if raw := os.Getenv("FETCH_INTERVAL_MINUTES"); raw != "" {
		mins, err := strconv.Atoi(raw)
		if err != nil || mins < 1 {
			return nil, fmt.Errorf("invalid FETCH_INTERVAL_MINUTES %q", raw)
		}
		interval = time.Duration(mins) * time.Minute
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken: token,
		OpenAIAPIKey:     apiKey,
		FeedURL:          feedURL,
		DatabasePath:     dbPath,
		CacheDir:         cacheDir,
		LogLevel:         logLevel,
		FetchInterval:    interval,
		AllowedUsers:     allowedUsers,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
