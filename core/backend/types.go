// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp accepts the backend's datetimes, which usually carry no zone
// offset. Those are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.Time = time.Time{}

		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			ts.Time = parsed

			return nil
		}
	}

	return fmt.Errorf("unrecognised timestamp %q", raw)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// Token is the answer to a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type User struct {
	ID       int       `json:"id"`
	Created  Timestamp `json:"created"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ItemConfig describes one stimulus of a reaction test.
type ItemConfig struct {
	ID            int       `json:"id"`
	Created       Timestamp `json:"created"`
	TriangleSize  int       `json:"triangle_size"`
	TriangleColor string    `json:"triangle_color"`
	CircleSize    int       `json:"circle_size"`
	CircleColor   string    `json:"circle_color"`
	TimeVisibleMS int       `json:"time_visible_ms"`
	Orientation   string    `json:"orientation"`
}

// TestConfig is a named sequence of item configs.
type TestConfig struct {
	ID          int          `json:"id"`
	Created     Timestamp    `json:"created"`
	UserID      *int         `json:"user_id"`
	Name        string       `json:"name"`
	ItemConfigs []ItemConfig `json:"item_configs"`
}

type ItemConfigResult struct {
	ID             int       `json:"id"`
	Created        Timestamp `json:"created"`
	UserID         *int      `json:"user_id"`
	ItemConfigID   int       `json:"item_config_id"`
	Correct        bool      `json:"correct"`
	ReactionTimeMS int       `json:"reaction_time_ms"`
	Response       string    `json:"response"`
}

// NewItemConfigResult is the answer to a single item. The backend fills in the user.
type NewItemConfigResult struct {
	ItemConfigID   int    `json:"item_config_id"`
	Correct        bool   `json:"correct"`
	ReactionTimeMS int    `json:"reaction_time_ms"`
	Response       string `json:"response"`
}

type TestConfigResult struct {
	ID                int                `json:"id"`
	Created           Timestamp          `json:"created"`
	UserID            *int               `json:"user_id"`
	TestConfigID      int                `json:"test_config_id"`
	Time              Timestamp          `json:"time"`
	CorrectAnswers    int                `json:"correct_answers"`
	WrongAnswers      int                `json:"wrong_answers"`
	ItemConfigResults []ItemConfigResult `json:"item_config_results"`
}

// NewTestConfigResult links previously stored item results to a finished test run.
type NewTestConfigResult struct {
	TestConfigID        int       `json:"test_config_id"`
	Time                Timestamp `json:"time"`
	CorrectAnswers      int       `json:"correct_answers"`
	WrongAnswers        int       `json:"wrong_answers"`
	ItemConfigResultIDs []int     `json:"item_config_result_ids"`
}
