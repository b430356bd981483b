package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"shopflow/internal/model"
)

func TestOutboxRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOutboxRepository(db)

	msg := &model.OutboxMessage{
		MessageKey: "b2f7c6d8",
		Queue:      model.QueuePayment,
		Payload:    `{"productId":2,"qty":3}`,
		Status:     model.OutboxStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "outbox_messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), nil, msg)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestOutboxRepository_GetPendingMessages(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOutboxRepository(db)

	rows := sqlmock.NewRows([]string{"id", "message_key", "queue", "payload", "status", "retry_count"}).
		AddRow(1, "key-1", model.QueuePayment, `{"qty":1}`, model.OutboxStatusPending, 0).
		AddRow(2, "key-2", model.QueuePayment, `{"qty":2}`, model.OutboxStatusPending, 1)

	mock.ExpectQuery(`SELECT \* FROM "outbox_messages" WHERE status = \$1 AND queue = \$2 ORDER BY id ASC LIMIT \$3`).
		WithArgs(model.OutboxStatusPending, model.QueuePayment, 10).
		WillReturnRows(rows)

	messages, err := repo.GetPendingMessages(context.Background(), model.QueuePayment, 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != 1 || messages[1].ID != 2 {
		t.Errorf("Expected oldest-first ordering, got %+v", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "outbox_messages" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MarkSent(context.Background(), 1); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "outbox_messages" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MarkFailed(context.Background(), 1); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
