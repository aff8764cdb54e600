package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rentable/internal/model"
)

// SettingRepo is the admin key/value table.
type SettingRepo struct{ q DBTX }

// Get returns a single setting.
func (r *SettingRepo) Get(ctx context.Context, key string) (model.AdminSetting, error) {
	var s model.AdminSetting
	var v sql.NullString
	err := r.q.QueryRowContext(ctx,
		"SELECT `key`, value, updated_at FROM admin_settings WHERE `key`=? LIMIT 1", key).Scan(&s.Key, &v, &s.UpdatedAt)
	s.Value = nullStr(v)
	return s, notFound(err)
}

// Set upserts a setting.
func (r *SettingRepo) Set(ctx context.Context, key string, value *string) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO admin_settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value=VALUES(value)",
		key, value)
	return err
}

// List returns every setting ordered by key.
func (r *SettingRepo) List(ctx context.Context) ([]model.AdminSetting, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT `key`, value, updated_at FROM admin_settings ORDER BY `key`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AdminSetting{}
	for rows.Next() {
		var s model.AdminSetting
		var v sql.NullString
		if err := rows.Scan(&s.Key, &v, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Value = nullStr(v)
		out = append(out, s)
	}
	return out, rows.Err()
}
