package restaurant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, rest *Restaurant, menu []MenuItem, rules []string) error {
	if rest.ID == "" {
		rest.ID = newID()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	rest.CreatedAt = now

	hours := make(map[string]string, len(rest.Hours))
	for _, h := range rest.Hours {
		hours[h.Day] = h.Hours
	}
	hoursJSON, err := json.Marshal(hours)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO restaurants (id, name, address, phone, hours_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		rest.ID,
		rest.Name,
		rest.Address,
		rest.Phone,
		string(hoursJSON),
		now,
	); err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}

	for i := range menu {
		item := &menu[i]
		if item.ID == "" {
			item.ID = newID()
		}
		allergens, _ := json.Marshal(nonNil(item.Allergens))
		tags, _ := json.Marshal(nonNil(item.Tags))
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, restaurant_id, name, description, price, allergens_json, tags_json, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			item.ID,
			rest.ID,
			item.Name,
			item.Description,
			item.Price,
			string(allergens),
			string(tags),
			now.Add(time.Duration(i)*time.Microsecond),
		); err != nil {
			return fmt.Errorf("insert menu item %q: %w", item.Name, err)
		}
	}

	if rules != nil {
		if _, err := publishPolicy(ctx, tx, rest.ID, rules); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repo) List(ctx context.Context) ([]Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, phone, hours_json, created_at
		FROM restaurants
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rest)
	}
	return out, rows.Err()
}

func (r *repo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants WHERE id = $1`, id).Scan(&n)
	return n > 0, err
}

func (r *repo) LoadContext(ctx context.Context, id string) (*Context, error) {
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, `
		SELECT id, name, address, phone, hours_json, created_at
		FROM restaurants
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	menu, err := r.menu(ctx, id)
	if err != nil {
		return nil, err
	}

	policy, err := r.activePolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Context{Restaurant: *rest, Menu: menu, Policy: policy}, nil
}

func (r *repo) PublishPolicy(ctx context.Context, restaurantID string, rules []string) (*PolicyVersion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants WHERE id = $1`, restaurantID).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	pv, err := publishPolicy(ctx, tx, restaurantID, rules)
	if err != nil {
		return nil, err
	}
	return pv, tx.Commit()
}

// publishPolicy adds version max+1 as the only active version.
func publishPolicy(ctx context.Context, tx *sql.Tx, restaurantID string, rules []string) (*PolicyVersion, error) {
	var current int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM policy_versions WHERE restaurant_id = $1
	`, restaurantID).Scan(&current); err != nil {
		return nil, fmt.Errorf("read policy version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE policy_versions SET is_active = $1 WHERE restaurant_id = $2
	`, false, restaurantID); err != nil {
		return nil, fmt.Errorf("deactivate policies: %w", err)
	}

	pv := &PolicyVersion{
		ID:        newID(),
		Version:   current + 1,
		Rules:     nonNil(rules),
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	rulesJSON, err := json.Marshal(pv.Rules)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO policy_versions (id, restaurant_id, version, policy_json, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		pv.ID,
		restaurantID,
		pv.Version,
		string(rulesJSON),
		true,
		pv.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert policy version: %w", err)
	}
	return pv, nil
}

func (r *repo) menu(ctx context.Context, restaurantID string) ([]MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, allergens_json, tags_json
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY created_at ASC, id ASC
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		var allergens, tags string
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &allergens, &tags); err != nil {
			return nil, err
		}
		m.Allergens = decodeList(allergens)
		m.Tags = decodeList(tags)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repo) activePolicy(ctx context.Context, restaurantID string) (*PolicyVersion, error) {
	var pv PolicyVersion
	var rules string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, version, policy_json, created_at
		FROM policy_versions
		WHERE restaurant_id = $1 AND is_active = $2
		ORDER BY version DESC
		LIMIT 1
	`, restaurantID, true).Scan(&pv.ID, &pv.Version, &rules, &pv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pv.Active = true
	pv.Rules = decodeList(rules)
	return &pv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (*Restaurant, error) {
	var rest Restaurant
	var hours string
	if err := row.Scan(&rest.ID, &rest.Name, &rest.Address, &rest.Phone, &hours, &rest.CreatedAt); err != nil {
		return nil, err
	}
	rest.Hours = decodeHours(hours)
	return &rest, nil
}

var weekdays = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// decodeHours orders days Monday→Sunday, unknown keys after them alphabetically.
func decodeHours(raw string) []DayHours {
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}

	out := make([]DayHours, 0, len(m))
	for day, hours := range m {
		out = append(out, DayHours{Day: day, Hours: hours})
	}
	sort.Slice(out, func(i, j int) bool {
		wi, iok := weekdays[strings.ToLower(out[i].Day)]
		wj, jok := weekdays[strings.ToLower(out[j].Day)]
		switch {
		case iok && jok:
			return wi < wj
		case iok != jok:
			return iok
		default:
			return out[i].Day < out[j].Day
		}
	})
	return out
}

func decodeList(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
