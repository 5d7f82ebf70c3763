package transform

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects how pending raw items are handled.
type Mode string

const (
	ModeBootstrap Mode = "bootstrap"
	ModeNormal    Mode = "normal"

	// ModeSettingKey is the pipeline_settings key holding the persisted mode.
	ModeSettingKey = "run_mode"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeBootstrap:
		return ModeBootstrap, nil
	case ModeNormal:
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want bootstrap or normal)", raw)
	}
}

// SettingsStore persists small pipeline settings.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// LoadMode returns the persisted mode. Without one, firstRun picks bootstrap.
func LoadMode(ctx context.Context, store SettingsStore, firstRun bool) (Mode, error) {
	value, ok, err := store.GetSetting(ctx, ModeSettingKey)
	if err != nil {
		return "", fmt.Errorf("load run mode: %w", err)
	}
	if ok {
		return ParseMode(value)
	}
	if firstRun {
		return ModeBootstrap, nil
	}
	return ModeNormal, nil
}

func SaveMode(ctx context.Context, store SettingsStore, mode Mode) error {
	if err := store.PutSetting(ctx, ModeSettingKey, string(mode)); err != nil {
		return fmt.Errorf("save run mode: %w", err)
	}
	return nil
}
