package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echoscribe/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database wraps a single shared pgx pool. One instance is constructed at
// process start and injected into every component; no global state.
type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}

	db.Pool, err = pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	return nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

type User struct {
	ID                    uuid.UUID
	Name                  string
	Email                 string
	PasswordHash          string
	AvatarURL             util.Optional[string]
	CurrentOrganisationID util.Optional[uuid.UUID]
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Organisation struct {
	ID                   uuid.UUID
	Name                 string
	StripeCustomerID     string
	StripeSubscriptionID string
	StripeProductPriceID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type OrganisationMember struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	UserID         uuid.UUID
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrganisationInvite struct {
	ID             uuid.UUID
	Token          string
	OrganisationID uuid.UUID
	Email          string
	Role           string
	ExpiresAt      time.Time
	UsedAt         util.Optional[time.Time]
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RecordingStatus string

const (
	RecordingStatusUploaded     RecordingStatus = "uploaded"
	RecordingStatusTranscribing RecordingStatus = "transcribing"
	RecordingStatusTranscribed  RecordingStatus = "transcribed"
	RecordingStatusFailed       RecordingStatus = "failed"
)

// Recording is an uploaded audio session. TranscriptPath, when set, names
// the exact storage key of the latest rendered transcript and takes
// precedence over any listing-based resolution.
type Recording struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Title           string
	AudioPath       string
	MimeType        string
	SizeBytes       int64
	DurationSeconds util.Optional[int64]
	TranscriptPath  util.Optional[string]
	Status          RecordingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TranscriptionJobStatus string

const (
	TranscriptionJobStatusPending   TranscriptionJobStatus = "pending"
	TranscriptionJobStatusRunning   TranscriptionJobStatus = "running"
	TranscriptionJobStatusCompleted TranscriptionJobStatus = "completed"
	TranscriptionJobStatusFailed    TranscriptionJobStatus = "failed"
)

type TranscriptionJob struct {
	ID            uuid.UUID
	RecordingID   uuid.UUID
	ProviderJobID string
	Status        TranscriptionJobStatus
	FailureReason util.Optional[string]
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrOrganisationNotFound     = errors.New("organisation not found")
	ErrMembershipNotFound       = errors.New("organisation membership not found")
	ErrInviteNotFound           = errors.New("organisation invite not found")
	ErrRecordingNotFound        = errors.New("recording not found")
	ErrTranscriptionJobNotFound = errors.New("transcription job not found")
)

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	AvatarURL    util.Optional[string]
}

func (db *Database) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	user := User{
		ID:                    uuid.New(),
		Name:                  params.Name,
		Email:                 params.Email,
		PasswordHash:          params.PasswordHash,
		AvatarURL:             params.AvatarURL,
		CurrentOrganisationID: util.None[uuid.UUID](),
		CreatedAt:             time.Now().UTC(),
		UpdatedAt:             time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_user (id, name, email, password_hash, avatar_url, current_organisation_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.AvatarURL, user.CurrentOrganisationID, user.CreatedAt, user.UpdatedAt); err != nil {
		return user, fmt.Errorf("database: failed to insert user (email=%s): %w", user.Email, err)
	}
	return user, nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return db.GetUser(ctx, GetUserParams{ID: util.Some(id)})
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return db.GetUser(ctx, GetUserParams{Email: util.Some(email)})
}

type GetUserParams struct {
	ID    util.Optional[uuid.UUID]
	Email util.Optional[string]
}

func (db *Database) GetUser(ctx context.Context, params GetUserParams) (User, error) {
	var user User

	var query strings.Builder
	query.WriteString(`SELECT id, name, email, password_hash, avatar_url, current_organisation_id, created_at, updated_at FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.Email.IsSet {
		query.WriteString(fmt.Sprintf(" AND email = $%d", argNum))
		args = append(args, params.Email.Val)
		argNum++
	}

	err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.AvatarURL, &user.CurrentOrganisationID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("database: failed to scan user: %w", err)
	}
	return user, nil
}

type UpdateUserParams struct {
	Name                  util.Optional[string]
	PasswordHash          util.Optional[string]
	AvatarURL             util.Optional[string]
	CurrentOrganisationID util.Optional[uuid.UUID]
}

func (db *Database) UpdateUserByID(ctx context.Context, id uuid.UUID, params UpdateUserParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_user SET `)
	var args []any
	argNum := 1

	if params.Name.IsSet {
		query.WriteString(fmt.Sprintf("name = $%d, ", argNum))
		args = append(args, params.Name.Val)
		argNum++
	}
	if params.PasswordHash.IsSet {
		query.WriteString(fmt.Sprintf("password_hash = $%d, ", argNum))
		args = append(args, params.PasswordHash.Val)
		argNum++
	}
	if params.AvatarURL.IsSet {
		query.WriteString(fmt.Sprintf("avatar_url = $%d, ", argNum))
		args = append(args, params.AvatarURL.Val)
		argNum++
	}
	if params.CurrentOrganisationID.IsSet {
		query.WriteString(fmt.Sprintf("current_organisation_id = $%d, ", argNum))
		args = append(args, params.CurrentOrganisationID.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	if _, err := db.Pool.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("database: failed to update user (id=%s): %w", id, err)
	}
	return nil
}

// ClearUserCurrentOrganisation unsets the user's current organisation. A
// separate method because UpdateUserByID only writes fields that are set.
func (db *Database) ClearUserCurrentOrganisation(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE tbl_user SET current_organisation_id = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id); err != nil {
		return fmt.Errorf("database: failed to clear current organisation (user_id=%s): %w", id, err)
	}
	return nil
}

type CreateOrganisationParams struct {
	Name                 string
	StripeCustomerID     string
	StripeSubscriptionID string
	StripeProductPriceID string
}

func (db *Database) CreateOrganisation(ctx context.Context, params CreateOrganisationParams) (Organisation, error) {
	org := Organisation{
		ID:                   uuid.New(),
		Name:                 params.Name,
		StripeCustomerID:     params.StripeCustomerID,
		StripeSubscriptionID: params.StripeSubscriptionID,
		StripeProductPriceID: params.StripeProductPriceID,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_organisation (id, name, stripe_customer_id, stripe_subscription_id, stripe_product_price_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		org.ID, org.Name, org.StripeCustomerID, org.StripeSubscriptionID, org.StripeProductPriceID, org.CreatedAt, org.UpdatedAt); err != nil {
		return org, fmt.Errorf("database: failed to insert organisation (name=%s): %w", org.Name, err)
	}
	return org, nil
}

func (db *Database) GetOrganisationByID(ctx context.Context, id uuid.UUID) (Organisation, error) {
	return db.GetOrganisation(ctx, GetOrganisationParams{ID: util.Some(id)})
}

func (db *Database) GetOrganisationByStripeCustomerID(ctx context.Context, customerID string) (Organisation, error) {
	return db.GetOrganisation(ctx, GetOrganisationParams{StripeCustomerID: util.Some(customerID)})
}

func (db *Database) GetOrganisationByStripeSubscriptionID(ctx context.Context, subscriptionID string) (Organisation, error) {
	return db.GetOrganisation(ctx, GetOrganisationParams{StripeSubscriptionID: util.Some(subscriptionID)})
}

type GetOrganisationParams struct {
	ID                   util.Optional[uuid.UUID]
	StripeCustomerID     util.Optional[string]
	StripeSubscriptionID util.Optional[string]
}

func (db *Database) GetOrganisation(ctx context.Context, params GetOrganisationParams) (Organisation, error) {
	var org Organisation

	var query strings.Builder
	query.WriteString(`SELECT id, name, stripe_customer_id, stripe_subscription_id, stripe_product_price_id, created_at, updated_at FROM tbl_organisation WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.StripeCustomerID.IsSet {
		query.WriteString(fmt.Sprintf(" AND stripe_customer_id = $%d", argNum))
		args = append(args, params.StripeCustomerID.Val)
		argNum++
	}
	if params.StripeSubscriptionID.IsSet {
		query.WriteString(fmt.Sprintf(" AND stripe_subscription_id = $%d", argNum))
		args = append(args, params.StripeSubscriptionID.Val)
		argNum++
	}

	err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(
		&org.ID, &org.Name, &org.StripeCustomerID, &org.StripeSubscriptionID, &org.StripeProductPriceID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return org, ErrOrganisationNotFound
		}
		return org, fmt.Errorf("database: failed to scan organisation: %w", err)
	}
	return org, nil
}

type UpdateOrganisationParams struct {
	Name                 util.Optional[string]
	StripeCustomerID     util.Optional[string]
	StripeSubscriptionID util.Optional[string]
	StripeProductPriceID util.Optional[string]
}

func (db *Database) UpdateOrganisationByID(ctx context.Context, id uuid.UUID, params UpdateOrganisationParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_organisation SET `)
	var args []any
	argNum := 1

	if params.Name.IsSet {
		query.WriteString(fmt.Sprintf("name = $%d, ", argNum))
		args = append(args, params.Name.Val)
		argNum++
	}
	if params.StripeCustomerID.IsSet {
		query.WriteString(fmt.Sprintf("stripe_customer_id = $%d, ", argNum))
		args = append(args, params.StripeCustomerID.Val)
		argNum++
	}
	if params.StripeSubscriptionID.IsSet {
		query.WriteString(fmt.Sprintf("stripe_subscription_id = $%d, ", argNum))
		args = append(args, params.StripeSubscriptionID.Val)
		argNum++
	}
	if params.StripeProductPriceID.IsSet {
		query.WriteString(fmt.Sprintf("stripe_product_price_id = $%d, ", argNum))
		args = append(args, params.StripeProductPriceID.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	if _, err := db.Pool.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("database: failed to update organisation (id=%s): %w", id, err)
	}
	return nil
}

type CreateOrganisationMemberParams struct {
	OrganisationID uuid.UUID
	UserID         uuid.UUID
	Role           string
}

func (db *Database) CreateOrganisationMember(ctx context.Context, params CreateOrganisationMemberParams) (OrganisationMember, error) {
	member := OrganisationMember{
		ID:             uuid.New(),
		OrganisationID: params.OrganisationID,
		UserID:         params.UserID,
		Role:           params.Role,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_organisation_member (id, organisation_id, user_id, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		member.ID, member.OrganisationID, member.UserID, member.Role, member.CreatedAt, member.UpdatedAt); err != nil {
		return member, fmt.Errorf("database: failed to insert organisation member (organisation_id=%s, user_id=%s): %w", member.OrganisationID, member.UserID, err)
	}
	return member, nil
}

func (db *Database) DeleteOrganisationMember(ctx context.Context, organisationID, userID uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM tbl_organisation_member WHERE organisation_id = $1 AND user_id = $2`, organisationID, userID); err != nil {
		return fmt.Errorf("database: failed to delete organisation member (organisation_id=%s, user_id=%s): %w", organisationID, userID, err)
	}
	return nil
}

// UserMembership is the joined result of a user's current organisation and
// their own membership row within it, resolved in one round trip.
type UserMembership struct {
	OrganisationID   uuid.UUID
	OrganisationName string
	PlanPriceID      string
	Role             string
}

// GetUserMembership resolves the user's current organisation together with
// the membership row granting their role, as a single query. A user whose
// current_organisation_id is NULL produces ErrMembershipNotFound.
func (db *Database) GetUserMembership(ctx context.Context, userID uuid.UUID) (UserMembership, error) {
	var m UserMembership

	err := db.Pool.QueryRow(ctx, `
		SELECT o.id, o.name, o.stripe_product_price_id, mem.role
		FROM tbl_user u
		JOIN tbl_organisation o ON o.id = u.current_organisation_id
		JOIN tbl_organisation_member mem ON mem.organisation_id = o.id AND mem.user_id = u.id
		WHERE u.id = $1`, userID).Scan(&m.OrganisationID, &m.OrganisationName, &m.PlanPriceID, &m.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return m, ErrMembershipNotFound
		}
		return m, fmt.Errorf("database: failed to scan user membership (user_id=%s): %w", userID, err)
	}
	return m, nil
}

// MemberProfile is a membership row joined with the member's profile.
type MemberProfile struct {
	UserID    uuid.UUID
	Name      string
	Email     string
	AvatarURL util.Optional[string]
	Role      string
	JoinedAt  time.Time
}

// ListOrganisationMemberProfiles returns every member of an organisation
// with profile data in a single joined query. Ordered by join time then
// user id, so the result is deterministic for a fixed snapshot.
func (db *Database) ListOrganisationMemberProfiles(ctx context.Context, organisationID uuid.UUID) ([]MemberProfile, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT mem.user_id, u.name, u.email, u.avatar_url, mem.role, mem.created_at
		FROM tbl_organisation_member mem
		JOIN tbl_user u ON u.id = mem.user_id
		WHERE mem.organisation_id = $1
		ORDER BY mem.created_at, mem.user_id`, organisationID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list organisation members (organisation_id=%s): %w", organisationID, err)
	}
	defer rows.Close()

	var members []MemberProfile
	for rows.Next() {
		var member MemberProfile
		if err := rows.Scan(&member.UserID, &member.Name, &member.Email, &member.AvatarURL, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan organisation member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate organisation members: %w", err)
	}

	return members, nil
}

type CreateOrganisationInviteParams struct {
	Token          string
	OrganisationID uuid.UUID
	Email          string
	Role           string
	ExpiresAt      time.Time
}

func (db *Database) CreateOrganisationInvite(ctx context.Context, params CreateOrganisationInviteParams) (OrganisationInvite, error) {
	invite := OrganisationInvite{
		ID:             uuid.New(),
		Token:          params.Token,
		OrganisationID: params.OrganisationID,
		Email:          params.Email,
		Role:           params.Role,
		ExpiresAt:      params.ExpiresAt,
		UsedAt:         util.None[time.Time](),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_organisation_invite (id, token, organisation_id, email, role, expires_at, used_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		invite.ID, invite.Token, invite.OrganisationID, invite.Email, invite.Role, invite.ExpiresAt, invite.UsedAt, invite.CreatedAt, invite.UpdatedAt); err != nil {
		return invite, fmt.Errorf("database: failed to insert organisation invite (email=%s): %w", invite.Email, err)
	}
	return invite, nil
}

func (db *Database) GetOrganisationInviteByToken(ctx context.Context, token string) (OrganisationInvite, error) {
	var invite OrganisationInvite

	err := db.Pool.QueryRow(ctx, `SELECT id, token, organisation_id, email, role, expires_at, used_at, created_at, updated_at FROM tbl_organisation_invite WHERE token = $1`, token).Scan(
		&invite.ID, &invite.Token, &invite.OrganisationID, &invite.Email, &invite.Role, &invite.ExpiresAt, &invite.UsedAt, &invite.CreatedAt, &invite.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invite, ErrInviteNotFound
		}
		return invite, fmt.Errorf("database: failed to scan organisation invite: %w", err)
	}
	return invite, nil
}

type UpdateOrganisationInviteParams struct {
	UsedAt util.Optional[time.Time]
}

func (db *Database) UpdateOrganisationInviteByID(ctx context.Context, id uuid.UUID, params UpdateOrganisationInviteParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_organisation_invite SET `)
	var args []any
	argNum := 1

	if params.UsedAt.IsSet {
		query.WriteString(fmt.Sprintf("used_at = $%d, ", argNum))
		args = append(args, params.UsedAt.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	if _, err := db.Pool.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("database: failed to update organisation invite (id=%s): %w", id, err)
	}
	return nil
}

// DeleteExpiredOrganisationInvites removes unused invites whose expiry has
// passed and returns how many were deleted.
func (db *Database) DeleteExpiredOrganisationInvites(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_organisation_invite WHERE used_at IS NULL AND expires_at < $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("database: failed to delete expired organisation invites: %w", err)
	}
	return tag.RowsAffected(), nil
}

type CreateRecordingParams struct {
	OwnerID   uuid.UUID
	Title     string
	AudioPath string
	MimeType  string
	SizeBytes int64
}

func (db *Database) CreateRecording(ctx context.Context, params CreateRecordingParams) (Recording, error) {
	recording := Recording{
		ID:             uuid.New(),
		OwnerID:        params.OwnerID,
		Title:          params.Title,
		AudioPath:      params.AudioPath,
		MimeType:       params.MimeType,
		SizeBytes:      params.SizeBytes,
		TranscriptPath: util.None[string](),
		Status:         RecordingStatusUploaded,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_recording (id, owner_id, title, audio_path, mime_type, size_bytes, duration_seconds, transcript_path, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		recording.ID, recording.OwnerID, recording.Title, recording.AudioPath, recording.MimeType, recording.SizeBytes, recording.DurationSeconds, recording.TranscriptPath, recording.Status, recording.CreatedAt, recording.UpdatedAt); err != nil {
		return recording, fmt.Errorf("database: failed to insert recording (owner_id=%s): %w", recording.OwnerID, err)
	}
	return recording, nil
}

type GetRecordingParams struct {
	ID      util.Optional[uuid.UUID]
	OwnerID util.Optional[uuid.UUID]
}

// GetRecording looks up a recording. Callers resolving on behalf of a user
// always scope by OwnerID, so one tenant cannot read another's rows.
func (db *Database) GetRecording(ctx context.Context, params GetRecordingParams) (Recording, error) {
	var recording Recording

	var query strings.Builder
	query.WriteString(`SELECT id, owner_id, title, audio_path, mime_type, size_bytes, duration_seconds, transcript_path, status, created_at, updated_at FROM tbl_recording WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.OwnerID.IsSet {
		query.WriteString(fmt.Sprintf(" AND owner_id = $%d", argNum))
		args = append(args, params.OwnerID.Val)
		argNum++
	}

	err := db.Pool.QueryRow(ctx, query.String(), args...).Scan(
		&recording.ID, &recording.OwnerID, &recording.Title, &recording.AudioPath, &recording.MimeType, &recording.SizeBytes, &recording.DurationSeconds, &recording.TranscriptPath, &recording.Status, &recording.CreatedAt, &recording.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recording, ErrRecordingNotFound
		}
		return recording, fmt.Errorf("database: failed to scan recording: %w", err)
	}
	return recording, nil
}

type ListRecordingsParams struct {
	OwnerID uuid.UUID
	Limit   int
	Offset  int
}

func (db *Database) ListRecordings(ctx context.Context, params ListRecordingsParams) ([]Recording, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, owner_id, title, audio_path, mime_type, size_bytes, duration_seconds, transcript_path, status, created_at, updated_at FROM tbl_recording WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		params.OwnerID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list recordings (owner_id=%s): %w", params.OwnerID, err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		var recording Recording
		if err := rows.Scan(&recording.ID, &recording.OwnerID, &recording.Title, &recording.AudioPath, &recording.MimeType, &recording.SizeBytes, &recording.DurationSeconds, &recording.TranscriptPath, &recording.Status, &recording.CreatedAt, &recording.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan recording: %w", err)
		}
		recordings = append(recordings, recording)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate recordings: %w", err)
	}

	return recordings, nil
}

type UpdateRecordingParams struct {
	Title           util.Optional[string]
	DurationSeconds util.Optional[int64]
	TranscriptPath  util.Optional[string]
	Status          util.Optional[RecordingStatus]
}

func (db *Database) UpdateRecordingByID(ctx context.Context, id uuid.UUID, params UpdateRecordingParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_recording SET `)
	var args []any
	argNum := 1

	if params.Title.IsSet {
		query.WriteString(fmt.Sprintf("title = $%d, ", argNum))
		args = append(args, params.Title.Val)
		argNum++
	}
	if params.DurationSeconds.IsSet {
		query.WriteString(fmt.Sprintf("duration_seconds = $%d, ", argNum))
		args = append(args, params.DurationSeconds.Val)
		argNum++
	}
	if params.TranscriptPath.IsSet {
		query.WriteString(fmt.Sprintf("transcript_path = $%d, ", argNum))
		args = append(args, params.TranscriptPath.Val)
		argNum++
	}
	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf("status = $%d, ", argNum))
		args = append(args, string(params.Status.Val))
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	if _, err := db.Pool.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("database: failed to update recording (id=%s): %w", id, err)
	}
	return nil
}

type CreateTranscriptionJobParams struct {
	RecordingID   uuid.UUID
	ProviderJobID string
}

func (db *Database) CreateTranscriptionJob(ctx context.Context, params CreateTranscriptionJobParams) (TranscriptionJob, error) {
	job := TranscriptionJob{
		ID:            uuid.New(),
		RecordingID:   params.RecordingID,
		ProviderJobID: params.ProviderJobID,
		Status:        TranscriptionJobStatusPending,
		FailureReason: util.None[string](),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_transcription_job (id, recording_id, provider_job_id, status, failure_reason, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.RecordingID, job.ProviderJobID, job.Status, job.FailureReason, job.CreatedAt, job.UpdatedAt); err != nil {
		return job, fmt.Errorf("database: failed to insert transcription job (recording_id=%s): %w", job.RecordingID, err)
	}
	return job, nil
}

// ListOpenTranscriptionJobs returns jobs that still need polling, oldest
// first so a stuck provider cannot starve later submissions.
func (db *Database) ListOpenTranscriptionJobs(ctx context.Context, limit int) ([]TranscriptionJob, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, recording_id, provider_job_id, status, failure_reason, created_at, updated_at FROM tbl_transcription_job WHERE status IN ($1, $2) ORDER BY created_at LIMIT $3`,
		TranscriptionJobStatusPending, TranscriptionJobStatusRunning, limit)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list open transcription jobs: %w", err)
	}
	defer rows.Close()

	var jobs []TranscriptionJob
	for rows.Next() {
		var job TranscriptionJob
		if err := rows.Scan(&job.ID, &job.RecordingID, &job.ProviderJobID, &job.Status, &job.FailureReason, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan transcription job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate transcription jobs: %w", err)
	}

	return jobs, nil
}

func (db *Database) GetTranscriptionJobByID(ctx context.Context, id uuid.UUID) (TranscriptionJob, error) {
	var job TranscriptionJob

	err := db.Pool.QueryRow(ctx, `SELECT id, recording_id, provider_job_id, status, failure_reason, created_at, updated_at FROM tbl_transcription_job WHERE id = $1`, id).Scan(
		&job.ID, &job.RecordingID, &job.ProviderJobID, &job.Status, &job.FailureReason, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job, ErrTranscriptionJobNotFound
		}
		return job, fmt.Errorf("database: failed to scan transcription job: %w", err)
	}
	return job, nil
}

type UpdateTranscriptionJobParams struct {
	ProviderJobID util.Optional[string]
	Status        util.Optional[TranscriptionJobStatus]
	FailureReason util.Optional[string]
}

func (db *Database) UpdateTranscriptionJobByID(ctx context.Context, id uuid.UUID, params UpdateTranscriptionJobParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_transcription_job SET `)
	var args []any
	argNum := 1

	if params.ProviderJobID.IsSet {
		query.WriteString(fmt.Sprintf("provider_job_id = $%d, ", argNum))
		args = append(args, params.ProviderJobID.Val)
		argNum++
	}
	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf("status = $%d, ", argNum))
		args = append(args, string(params.Status.Val))
		argNum++
	}
	if params.FailureReason.IsSet {
		query.WriteString(fmt.Sprintf("failure_reason = $%d, ", argNum))
		args = append(args, params.FailureReason.Val)
		argNum++
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	if _, err := db.Pool.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("database: failed to update transcription job (id=%s): %w", id, err)
	}
	return nil
}
