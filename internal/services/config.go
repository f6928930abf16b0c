package services

import "time"

// ChatConfig holds the tunables of the chat core.
type ChatConfig struct {
	MessageMaxLength int
	PaginationLimit  int
	PaginationMax    int

	PollTimeout       time.Duration
	PollCheckInterval time.Duration
	// PollMinRequery is the least time between two queries of one poll when
	// woken early by the watermark.
	PollMinRequery time.Duration
	// PollBatchLimit caps rows per poll answer; 0 is uncapped.
	PollBatchLimit int
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MessageMaxLength:  5000,
		PaginationLimit:   50,
		PaginationMax:     100,
		PollTimeout:       25 * time.Second,
		PollCheckInterval: 500 * time.Millisecond,
		PollMinRequery:    50 * time.Millisecond,
		PollBatchLimit:    0,
	}
}

// withDefaults fills zero or negative values from DefaultChatConfig.
func (c ChatConfig) withDefaults() ChatConfig {
	d := DefaultChatConfig()
	if c.MessageMaxLength <= 0 {
		c.MessageMaxLength = d.MessageMaxLength
	}
	if c.PaginationMax <= 0 {
		c.PaginationMax = d.PaginationMax
	}
	if c.PaginationLimit <= 0 {
		c.PaginationLimit = d.PaginationLimit
	}
	if c.PaginationLimit > c.PaginationMax {
		c.PaginationLimit = c.PaginationMax
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.PollCheckInterval <= 0 {
		c.PollCheckInterval = d.PollCheckInterval
	}
	if c.PollMinRequery < 0 {
		c.PollMinRequery = 0
	}
	if c.PollBatchLimit < 0 {
		c.PollBatchLimit = 0
	}
	return c
}

// clampLimit maps a requested page size into [1, PaginationMax]; 0 selects
// PaginationLimit.
func (c ChatConfig) clampLimit(limit int) int {
	if limit <= 0 {
		return c.PaginationLimit
	}
	if limit > c.PaginationMax {
		return c.PaginationMax
	}
	return limit
}
