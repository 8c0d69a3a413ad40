package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/livechat-service/internal/domain"
)

const departmentColumns = `id, name, enabled, description, email, show_on_registration, show_on_offline_form,
        request_tag_before_closing_chat, chat_closing_tags, offline_message_channel_name,
        fallback_forward_department, type, business_hour_id, parent_id, ancestors, num_agents, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type departmentRepository struct {
	db DBTX
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(db DBTX) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	query := "SELECT " + departmentColumns + " FROM livechat_departments WHERE id=$1"
	dept, err := scanDepartment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return dept, nil
}

func (r *departmentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Department, error) {
	query := "SELECT " + departmentColumns + " FROM livechat_departments WHERE id=$1 FOR UPDATE"
	dept, err := scanDepartment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return dept, nil
}

func (r *departmentRepository) GetByIDOrName(ctx context.Context, idOrName string) (*domain.Department, error) {
	query := "SELECT " + departmentColumns + ` FROM livechat_departments
        WHERE id=$1 OR name=$1 ORDER BY (id=$1) DESC LIMIT 1`
	dept, err := scanDepartment(r.db.QueryRow(ctx, query, idOrName))
	if err != nil {
		return nil, notFound(err)
	}
	return dept, nil
}

func (r *departmentRepository) Find(ctx context.Context, filter DepartmentFilter) ([]domain.Department, error) {
	query, args := buildDepartmentQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find departments: %w", err)
	}
	defer rows.Close()

	result := []domain.Department{}
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *dept)
	}
	return result, rows.Err()
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO livechat_departments (id, name, enabled, description, email, show_on_registration,
            show_on_offline_form, request_tag_before_closing_chat, chat_closing_tags,
            offline_message_channel_name, fallback_forward_department, type, business_hour_id,
            parent_id, ancestors, num_agents)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		dept.ID,
		dept.Name,
		dept.Enabled,
		dept.Description,
		dept.Email,
		dept.ShowOnRegistration,
		dept.ShowOnOfflineForm,
		dept.RequestTagBeforeClosingChat,
		dept.ChatClosingTags,
		dept.OfflineMessageChannelName,
		dept.FallbackForwardDepartment,
		dept.Type,
		dept.BusinessHourID,
		dept.ParentID,
		dept.Ancestors,
		dept.NumAgents,
	).Scan(&dept.UpdatedAt)
	if err != nil {
		return duplicate(fmt.Errorf("insert department: %w", err))
	}
	return nil
}

func (r *departmentRepository) Update(ctx context.Context, id string, data domain.DepartmentData) error {
	const query = `
        UPDATE livechat_departments SET name=$1, enabled=$2, description=$3, email=$4,
            show_on_registration=$5, show_on_offline_form=$6, request_tag_before_closing_chat=$7,
            chat_closing_tags=$8, offline_message_channel_name=$9, fallback_forward_department=$10,
            type=$11, business_hour_id=$12, parent_id=$13, ancestors=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := r.db.Exec(ctx, query,
		data.Name,
		data.Enabled,
		data.Description,
		data.Email,
		data.ShowOnRegistration,
		data.ShowOnOfflineForm,
		data.RequestTagBeforeClosingChat,
		data.ChatClosingTags,
		data.OfflineMessageChannelName,
		data.FallbackForwardDepartment,
		data.Type,
		data.BusinessHourID,
		data.ParentID,
		data.Ancestors,
		id,
	)
	if err != nil {
		return duplicate(fmt.Errorf("update department: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) Patch(ctx context.Context, id string, patch domain.DepartmentPatch) error {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Enabled != nil {
		add("enabled", *patch.Enabled)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.BusinessHourID != nil {
		add("business_hour_id", *patch.BusinessHourID)
	}
	if patch.ParentID != nil {
		add("parent_id", *patch.ParentID)
	}
	if patch.Ancestors != nil {
		add("ancestors", patch.Ancestors)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE livechat_departments SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return duplicate(fmt.Errorf("patch department: %w", err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) IncNumAgents(ctx context.Context, id string, delta int) error {
	const query = `UPDATE livechat_departments SET num_agents = num_agents + $1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("increment num_agents: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) SetNumAgents(ctx context.Context, id string, numAgents int) error {
	const query = `UPDATE livechat_departments SET num_agents=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, numAgents, id)
	if err != nil {
		return fmt.Errorf("set num_agents: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM livechat_departments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDepartment(row rowScanner) (*domain.Department, error) {
	var dept domain.Department
	if err := row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Enabled,
		&dept.Description,
		&dept.Email,
		&dept.ShowOnRegistration,
		&dept.ShowOnOfflineForm,
		&dept.RequestTagBeforeClosingChat,
		&dept.ChatClosingTags,
		&dept.OfflineMessageChannelName,
		&dept.FallbackForwardDepartment,
		&dept.Type,
		&dept.BusinessHourID,
		&dept.ParentID,
		&dept.Ancestors,
		&dept.NumAgents,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
