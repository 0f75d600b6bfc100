package store

import (
	"context"

	"github.com/pkg/errors"
)

// SystemSettingSchemaVersion is the key holding the applied schema version.
const SystemSettingSchemaVersion = "schema_version"

type SystemSetting struct {
	Name        string
	Value       string
	Description string
}

type FindSystemSetting struct {
	Name string
}

// GetSystemSetting returns the named setting, or nil when unset.
func (s *Store) GetSystemSetting(ctx context.Context, name string) (*SystemSetting, error) {
	list, err := s.driver.ListSystemSettings(ctx, &FindSystemSetting{Name: name})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list system setting %s", name)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error) {
	return s.driver.UpsertSystemSetting(ctx, upsert)
}

// GetSchemaVersion returns the schema version recorded in the database.
func (s *Store) GetSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetSystemSetting(ctx, SystemSettingSchemaVersion)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return setting.Value, nil
}
