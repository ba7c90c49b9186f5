// Package compliance keeps an append-only audit trail of chatbot exchanges.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the outcome of an audited exchange.
type AuditEventType string

const (
	// EventAnswered is logged when the chatbot answered from order data.
	EventAnswered AuditEventType = "chatbot.answered"
	// EventNotFound is logged when the referenced order could not be found.
	EventNotFound AuditEventType = "chatbot.not_found"
	// EventUnrecognized is logged when no intent matched the message.
	EventUnrecognized AuditEventType = "chatbot.unrecognized"
	// EventFailed is logged when answering failed on a store error.
	EventFailed AuditEventType = "chatbot.failed"
)

// ErrTenantRequired is returned when an event or filter has no tenant.
var ErrTenantRequired = errors.New("compliance: tenant id required")

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	TenantID    string          `json:"tenant_id"`
	AgencyID    string          `json:"agency_id,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	Intent      string          `json:"intent,omitempty"`
	UserMessage string          `json:"user_message,omitempty"`
	Response    string          `json:"response,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Exchange is one answered chatbot message as seen by the HTTP layer.
// Unrecognized and NotFound carry the outcome; Intent and ResultType are
// stored verbatim and never interpreted here.
type Exchange struct {
	TenantID     string
	AgencyID     string
	Subject      string
	Role         string
	Intent       string
	ResultType   string
	UserMessage  string
	Response     string
	OrderNumber  string
	Unrecognized bool
	NotFound     bool
	Err          error
}

// ExchangeDetails is the JSON stored in the details column.
type ExchangeDetails struct {
	Role        string `json:"role,omitempty"`
	ResultType  string `json:"result_type,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AuditService handles audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service. A nil db yields a nil service,
// whose methods do nothing.
func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		return nil
	}
	return &AuditService{db: db}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.TenantID == "" {
		return ErrTenantRequired
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chatbot_audit_events (
			id, event_type, tenant_id, agency_id, subject, intent,
			user_message, response, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.TenantID,
		nullString(event.AgencyID),
		nullString(event.Subject),
		nullString(event.Intent),
		nullString(event.UserMessage),
		nullString(event.Response),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogExchange records a chatbot exchange, deriving the event type from its
// outcome.
func (s *AuditService) LogExchange(ctx context.Context, ex Exchange) error {
	if s == nil {
		return nil
	}
	details := ExchangeDetails{
		Role:        ex.Role,
		ResultType:  ex.ResultType,
		OrderNumber: ex.OrderNumber,
	}
	if ex.Err != nil {
		details.Error = ex.Err.Error()
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: marshal exchange details: %w", err)
	}

	return s.LogEvent(ctx, AuditEvent{
		EventType:   ClassifyExchange(ex),
		TenantID:    ex.TenantID,
		AgencyID:    ex.AgencyID,
		Subject:     ex.Subject,
		Intent:      ex.Intent,
		UserMessage: ex.UserMessage,
		Response:    ex.Response,
		Details:     detailsJSON,
	})
}

// ClassifyExchange maps an exchange to its audit event type.
func ClassifyExchange(ex Exchange) AuditEventType {
	switch {
	case ex.Err != nil:
		return EventFailed
	case ex.Unrecognized:
		return EventUnrecognized
	case ex.NotFound:
		return EventNotFound
	default:
		return EventAnswered
	}
}

// ParseEventType validates an event type given by a caller.
func ParseEventType(raw string) (AuditEventType, error) {
	switch t := AuditEventType(raw); t {
	case EventAnswered, EventNotFound, EventUnrecognized, EventFailed:
		return t, nil
	default:
		return "", fmt.Errorf("compliance: unknown event type %q", raw)
	}
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return []AuditEvent{}, nil
	}
	if filter.TenantID == "" {
		return nil, ErrTenantRequired
	}

	query := `
		SELECT id, event_type, tenant_id, agency_id, subject, intent,
			   user_message, response, details, created_at
		FROM chatbot_audit_events
		WHERE tenant_id = $1
	`
	args := []interface{}{filter.TenantID}
	argIdx := 2

	if filter.Subject != "" {
		query += fmt.Sprintf(" AND subject = $%d", argIdx)
		args = append(args, filter.Subject)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var e AuditEvent
		var agencyID, subject, intent, userMsg, response sql.NullString
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &e.TenantID, &agencyID, &subject, &intent,
			&userMsg, &response, &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.AgencyID = agencyID.String
		e.Subject = subject.String
		e.Intent = intent.String
		e.UserMessage = userMsg.String
		e.Response = response.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	TenantID  string
	Subject   string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
