package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type deadLetterReader interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type deadLetterDTO struct {
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   uuid.UUID                  `json:"aggregate_id"`
	Payload       json.RawMessage            `json:"payload"`
	Reason        enums.OutboxDLQErrorReason `json:"reason"`
	Error         string                     `json:"error,omitempty"`
	Attempts      int                        `json:"attempts"`
	FailedAt      time.Time                  `json:"failed_at"`
}

func toDeadLetterDTO(row models.OutboxDLQ) deadLetterDTO {
	dto := deadLetterDTO{
		EventID:       row.EventID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		Reason:        row.ErrorReason,
		Attempts:      row.AttemptCount,
		FailedAt:      row.FailedAt,
	}
	if row.ErrorMessage != nil {
		dto.Error = *row.ErrorMessage
	}
	return dto
}

// ListDeadLetters returns the newest outbox events the publisher gave up on.
func ListDeadLetters(repo deadLetterReader, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "dead letters", repo != nil, func(r *http.Request) (int, any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return 0, nil, err
		}
		rows, err := repo.List(r.Context(), limit)
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list dead letters")
		}
		out := make([]deadLetterDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, toDeadLetterDTO(row))
		}
		return http.StatusOK, out, nil
	})
}

func GetDeadLetter(repo deadLetterReader, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, "dead letters", repo != nil, func(r *http.Request) (int, any, error) {
		eventID, err := validators.ParseURLUUID(r, "eventId")
		if err != nil {
			return 0, nil, err
		}
		row, err := repo.FindByEventID(r.Context(), eventID)
		switch {
		case err != nil:
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dead letter")
		case row == nil:
			return 0, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
		}
		return http.StatusOK, toDeadLetterDTO(*row), nil
	})
}
