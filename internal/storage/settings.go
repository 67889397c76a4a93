package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/musiclite/musiclite/pkg/types"
)

const (
	settingRepeatMode  = "repeat_mode"
	settingShuffleMode = "shuffle_mode"
)

// GetPlayerSettings returns the persisted repeat/shuffle state. Missing keys
// fall back to defaults, so a fresh database yields off/false.
func (d *Database) GetPlayerSettings(ctx context.Context) (types.PlayerSettings, error) {
	start := time.Now()
	defer func() { d.debugLog("GetPlayerSettings", nil, time.Since(start)) }()

	settings := types.PlayerSettings{RepeatMode: types.RepeatOff}

	if err := d.checkClosed(); err != nil {
		return settings, err
	}

	var repeat string
	err := d.db.QueryRowContext(ctx,
		"SELECT value FROM player_settings WHERE key = ?", settingRepeatMode,
	).Scan(&repeat)
	if err != nil && err != sql.ErrNoRows {
		d.debugLog("GetPlayerSettings", err, time.Since(start))
		return settings, fmt.Errorf("get repeat mode: %w", err)
	}
	switch types.RepeatMode(repeat) {
	case types.RepeatAll, types.RepeatOne:
		settings.RepeatMode = types.RepeatMode(repeat)
	}

	var shuffle string
	err = d.db.QueryRowContext(ctx,
		"SELECT value FROM player_settings WHERE key = ?", settingShuffleMode,
	).Scan(&shuffle)
	if err != nil && err != sql.ErrNoRows {
		d.debugLog("GetPlayerSettings", err, time.Since(start))
		return settings, fmt.Errorf("get shuffle mode: %w", err)
	}
	settings.ShuffleMode, _ = strconv.ParseBool(shuffle)

	return settings, nil
}

func (d *Database) SavePlayerSettings(ctx context.Context, settings types.PlayerSettings) error {
	start := time.Now()
	defer func() { d.debugLog("SavePlayerSettings", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	pairs := map[string]string{
		settingRepeatMode:  string(settings.RepeatMode),
		settingShuffleMode: strconv.FormatBool(settings.ShuffleMode),
	}

	for key, value := range pairs {
		_, err := d.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO player_settings (key, value) VALUES (?, ?)",
			key, value,
		)
		if err != nil {
			d.debugLog("SavePlayerSettings", err, time.Since(start))
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	return nil
}
