package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/orderdesk/internal/chatbot"
	"github.com/wolfman30/orderdesk/internal/compliance"
	"github.com/wolfman30/orderdesk/internal/tenancy"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

const (
	maxMessageBodyBytes    = 16 << 10
	defaultTranscriptLimit = 50
	maxTranscriptLimit     = 200
)

type messageAnswerer interface {
	Handle(ctx context.Context, message string, rc chatbot.ResolutionContext) (*chatbot.Result, error)
}

type transcriptRecorder interface {
	Append(ctx context.Context, tenantID, subject string, msgs ...chatbot.TranscriptMessage) error
	List(ctx context.Context, tenantID, subject string, limit int64) ([]chatbot.TranscriptMessage, error)
}

type exchangeAuditor interface {
	LogExchange(ctx context.Context, ex compliance.Exchange) error
	QueryEvents(ctx context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error)
}

// ChatbotHandlerConfig wires the chatbot HTTP handler. Transcripts and Audit
// are optional.
type ChatbotHandlerConfig struct {
	Engine      messageAnswerer
	Transcripts transcriptRecorder
	Audit       exchangeAuditor
	Logger      *logging.Logger
}

// ChatbotHandler exposes the order chatbot over HTTP.
type ChatbotHandler struct {
	engine      messageAnswerer
	transcripts transcriptRecorder
	audit       exchangeAuditor
	logger      *logging.Logger
}

// NewChatbotHandler creates a chatbot handler.
func NewChatbotHandler(cfg ChatbotHandlerConfig) *ChatbotHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &ChatbotHandler{
		engine:      cfg.Engine,
		transcripts: cfg.Transcripts,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
	}
}

// MessageRequest is the body of POST /chatbot/message.
type MessageRequest struct {
	Message       string `json:"message"`
	CustomerID    string `json:"customerId,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	OrderNumber   string `json:"orderNumber,omitempty"`
}

// PostMessage answers one chatbot message.
// POST /chatbot/message
func (h *ChatbotHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenancy.ScopeFromContext(r.Context())
	if !ok {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req MessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID != "" {
		if _, err := uuid.Parse(customerID); err != nil {
			jsonError(w, "customerId must be a UUID", http.StatusBadRequest)
			return
		}
	}

	rc := chatbot.ResolutionContext{
		TenantID:      scope.TenantID,
		AgencyID:      scope.AgencyID,
		Role:          scope.Role,
		CustomerID:    customerID,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
	}
	subject := firstNonEmpty(scope.Subject, customerID, rc.CustomerPhone)

	start := time.Now()
	result, err := h.engine.Handle(r.Context(), req.Message, rc)
	if err != nil {
		if errors.Is(err, chatbot.ErrEmptyMessage) {
			jsonError(w, "message is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("chatbot message failed",
			"tenant_id", scope.TenantID,
			"agency_id", scope.AgencyID,
			"error", err,
		)
		h.recordAudit(r.Context(), scope, subject, req.Message, nil, err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.recordTranscript(r.Context(), scope.TenantID, subject, req.Message, result)
	h.recordAudit(r.Context(), scope, subject, req.Message, result, nil)
	h.logger.Info("chatbot message answered",
		"tenant_id", scope.TenantID,
		"agency_id", scope.AgencyID,
		"intent", result.Intent,
		"result_type", result.IntentType,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeData(w, http.StatusOK, result)
}

// GetTranscript returns the caller's recent exchanges. Staff and admins may
// read another subject's transcript with ?subject=.
// GET /chatbot/transcript?limit=50
func (h *ChatbotHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenancy.ScopeFromContext(r.Context())
	if !ok {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	subject := scope.Subject
	if requested := strings.TrimSpace(r.URL.Query().Get("subject")); requested != "" {
		if scope.Role != tenancy.RoleAdmin && scope.Role != tenancy.RoleStaff && requested != scope.Subject {
			jsonError(w, "forbidden", http.StatusForbidden)
			return
		}
		subject = requested
	}
	if subject == "" {
		jsonError(w, "subject is required", http.StatusBadRequest)
		return
	}

	limit, err := parseTranscriptLimit(r.URL.Query().Get("limit"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.transcripts == nil {
		writeData(w, http.StatusOK, map[string]any{"messages": []chatbot.TranscriptMessage{}})
		return
	}
	msgs, err := h.transcripts.List(r.Context(), scope.TenantID, subject, limit)
	if err != nil {
		h.logger.Error("failed to list chatbot transcript", "tenant_id", scope.TenantID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"messages": msgs})
}

// GetAudit lists the tenant's audited exchanges, newest first. Staff and
// admins only.
// GET /chatbot/audit?subject=&event_type=&since=&until=&limit=50&offset=0
func (h *ChatbotHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	scope, ok := tenancy.ScopeFromContext(r.Context())
	if !ok {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if scope.Role != tenancy.RoleAdmin && scope.Role != tenancy.RoleStaff {
		jsonError(w, "forbidden", http.StatusForbidden)
		return
	}

	filter, err := parseAuditFilter(scope.TenantID, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.audit == nil {
		writeData(w, http.StatusOK, map[string]any{"events": []compliance.AuditEvent{}})
		return
	}
	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query chatbot audit events", "tenant_id", scope.TenantID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"events": events})
}

func (h *ChatbotHandler) recordTranscript(ctx context.Context, tenantID, subject, message string, result *chatbot.Result) {
	if h.transcripts == nil || subject == "" {
		return
	}
	now := time.Now().UTC()
	err := h.transcripts.Append(ctx, tenantID, subject,
		chatbot.TranscriptMessage{Role: chatbot.RoleUser, Text: message, Timestamp: now},
		chatbot.TranscriptMessage{Role: chatbot.RoleAssistant, Text: result.ResponseText, IntentType: result.IntentType, Timestamp: now},
	)
	if err != nil {
		h.logger.Warn("failed to append chatbot transcript", "tenant_id", tenantID, "error", err)
	}
}

func (h *ChatbotHandler) recordAudit(ctx context.Context, scope tenancy.Scope, subject, message string, result *chatbot.Result, failure error) {
	if h.audit == nil {
		return
	}
	ex := compliance.Exchange{
		TenantID:    scope.TenantID,
		AgencyID:    scope.AgencyID,
		Subject:     subject,
		Role:        scope.Role,
		UserMessage: message,
		Err:         failure,
	}
	if result != nil {
		ex.Intent = string(result.Intent)
		ex.ResultType = string(result.IntentType)
		ex.Response = result.ResponseText
		ex.OrderNumber = orderNumberOf(result)
		ex.Unrecognized = result.Intent == chatbot.IntentUnknown
		ex.NotFound = result.IntentType == chatbot.TypeError
	} else {
		ex.Intent = string(chatbot.Classify(message).Kind)
	}
	if err := h.audit.LogExchange(ctx, ex); err != nil {
		h.logger.Warn("failed to audit chatbot exchange", "tenant_id", scope.TenantID, "error", err)
	}
}

func orderNumberOf(result *chatbot.Result) string {
	switch p := result.Payload.(type) {
	case chatbot.OrderDetails:
		return p.Order.OrderNumber
	case chatbot.ErrorPayload:
		return p.OrderNumber
	default:
		return ""
	}
}

func parseAuditFilter(tenantID string, r *http.Request) (compliance.AuditFilter, error) {
	q := r.URL.Query()
	filter := compliance.AuditFilter{
		TenantID: tenantID,
		Subject:  strings.TrimSpace(q.Get("subject")),
	}

	if raw := strings.TrimSpace(q.Get("event_type")); raw != "" {
		eventType, err := compliance.ParseEventType(raw)
		if err != nil {
			return filter, errors.New("event_type is not a known event type")
		}
		filter.EventType = eventType
	}
	var err error
	if filter.StartTime, err = parseTimeParam(q.Get("since"), "since"); err != nil {
		return filter, err
	}
	if filter.EndTime, err = parseTimeParam(q.Get("until"), "until"); err != nil {
		return filter, err
	}

	limit, err := parseTranscriptLimit(q.Get("limit"))
	if err != nil {
		return filter, err
	}
	filter.Limit = int(limit)

	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	return filter, nil
}

func parseTimeParam(raw, name string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an RFC3339 timestamp")
	}
	return ts, nil
}

func parseTranscriptLimit(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTranscriptLimit, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxTranscriptLimit {
		limit = maxTranscriptLimit
	}
	return limit, nil
}
