package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type stubDeadLetters struct {
	rows      []models.OutboxDLQ
	lastLimit int
}

func (s *stubDeadLetters) List(_ context.Context, limit int) ([]models.OutboxDLQ, error) {
	s.lastLimit = limit
	return s.rows, nil
}

func (s *stubDeadLetters) FindByEventID(_ context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	for i := range s.rows {
		if s.rows[i].EventID == eventID {
			return &s.rows[i], nil
		}
	}
	return nil, nil
}

func TestListDeadLetters(t *testing.T) {
	msg := "smtp: connection refused"
	repo := &stubDeadLetters{rows: []models.OutboxDLQ{{
		EventID:      uuid.New(),
		EventType:    enums.EventOrderCreated,
		ErrorReason:  enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage: &msg,
		AttemptCount: 10,
		Payload:      json.RawMessage(`{"order_id":"x"}`),
		FailedAt:     time.Now().UTC(),
	}}}

	rec := httptest.NewRecorder()
	ListDeadLetters(repo, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if repo.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", repo.lastLimit)
	}
	var body struct {
		Data []deadLetterDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Error != msg || body.Data[0].Attempts != 10 {
		t.Fatalf("unexpected body %+v", body.Data)
	}
}

func TestGetDeadLetterMissing(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "eventId", uuid.NewString())
	rec := httptest.NewRecorder()
	GetDeadLetter(&stubDeadLetters{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeadLettersUnwired(t *testing.T) {
	rec := httptest.NewRecorder()
	ListDeadLetters(nil, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
