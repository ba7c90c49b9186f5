package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_LogEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	tests := []struct {
		name  string
		event AuditEvent
	}{
		{
			name: "answered",
			event: AuditEvent{
				EventType:   EventAnswered,
				TenantID:    uuid.New().String(),
				Subject:     "customer-1",
				Intent:      "order_status",
				UserMessage: "Où en est ma commande #123 ?",
				Response:    "📦 Commande #123",
			},
		},
		{
			name: "not found with details",
			event: AuditEvent{
				EventType: EventNotFound,
				TenantID:  uuid.New().String(),
				Details:   json.RawMessage(`{"order_number": "999"}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectExec("INSERT INTO chatbot_audit_events").
				WillReturnResult(sqlmock.NewResult(1, 1))

			assert.NoError(t, service.LogEvent(context.Background(), tt.event))
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogEventRequiresTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewAuditService(db).LogEvent(context.Background(), AuditEvent{EventType: EventAnswered})
	assert.ErrorIs(t, err, ErrTenantRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogExchange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO chatbot_audit_events").
		WithArgs(
			sqlmock.AnyArg(),
			EventNotFound,
			"tenant-1",
			"agency-1",
			"user-1",
			"order_status",
			"statut 999",
			"introuvable",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewAuditService(db).LogExchange(context.Background(), Exchange{
		TenantID:    "tenant-1",
		AgencyID:    "agency-1",
		Subject:     "user-1",
		Role:        "staff",
		Intent:      "order_status",
		ResultType:  "error",
		UserMessage: "statut 999",
		Response:    "introuvable",
		OrderNumber: "999",
		NotFound:    true,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_LogEventDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO chatbot_audit_events").WillReturnError(errors.New("db down"))

	err = NewAuditService(db).LogEvent(context.Background(), AuditEvent{EventType: EventFailed, TenantID: "t"})
	assert.Error(t, err)
}

func TestClassifyExchange(t *testing.T) {
	tests := []struct {
		name string
		ex   Exchange
		want AuditEventType
	}{
		{"answered", Exchange{Intent: "history", ResultType: "history"}, EventAnswered},
		{"greeting", Exchange{Intent: "greeting", ResultType: "info"}, EventAnswered},
		{"labels alone do not classify", Exchange{Intent: "unknown", ResultType: "error"}, EventAnswered},
		{"not found", Exchange{Intent: "order_status", ResultType: "error", NotFound: true}, EventNotFound},
		{"unrecognized", Exchange{Intent: "unknown", ResultType: "error", Unrecognized: true, NotFound: true}, EventUnrecognized},
		{"failed", Exchange{Intent: "history", Err: errors.New("boom"), NotFound: true}, EventFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyExchange(tt.ex))
		})
	}
}

func TestAuditService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewAuditService(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "tenant_id", "agency_id", "subject", "intent",
		"user_message", "response", "details", "created_at",
	}).AddRow(
		uuid.New().String(), string(EventAnswered), "tenant-1", nil, "user-1", "history",
		"historique", "📋 Vos 1 dernière(s) commande(s) :", []byte(`{}`), now,
	)

	mock.ExpectQuery("SELECT (.+) FROM chatbot_audit_events").
		WithArgs("tenant-1", "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	events, err := service.QueryEvents(context.Background(), AuditFilter{
		TenantID:  "tenant-1",
		Subject:   "user-1",
		StartTime: now.Add(-24 * time.Hour),
		EndTime:   now,
		Limit:     100,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAnswered, events[0].EventType)
	assert.Empty(t, events[0].AgencyID)
	assert.Equal(t, "history", events[0].Intent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_NilIsNoop(t *testing.T) {
	var service *AuditService
	assert.Nil(t, NewAuditService(nil))
	assert.NoError(t, service.LogExchange(context.Background(), Exchange{TenantID: "t"}))

	events, err := service.QueryEvents(context.Background(), AuditFilter{TenantID: "t"})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEventType(t *testing.T) {
	for _, raw := range []string{"chatbot.answered", "chatbot.not_found", "chatbot.unrecognized", "chatbot.failed"} {
		got, err := ParseEventType(raw)
		require.NoError(t, err)
		assert.Equal(t, AuditEventType(raw), got)
	}
	_, err := ParseEventType("chatbot.deleted")
	assert.Error(t, err)
}
