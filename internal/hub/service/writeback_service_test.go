package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sandrello1971/intelligencehub/internal/hub/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnnotator records appended notes and close calls.
type fakeAnnotator struct {
	notes     []string
	closed    []int64
	appendErr error
	closeErr  error
}

func (f *fakeAnnotator) AppendActivityNote(ctx context.Context, externalID int64, text string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.notes = append(f.notes, text)
	return nil
}

func (f *fakeAnnotator) CloseActivity(ctx context.Context, externalID int64) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, externalID)
	return nil
}

func TestIntakeBlockFormat(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	block := IntakeBlock("TCK-SOF-5155-00", at)

	assert.True(t, strings.HasPrefix(block, "--- CUSTOMER CARE INTELLIGENCE ---"))
	assert.Contains(t, block, "✅ Attività presa in carico automaticamente")
	assert.Contains(t, block, "🎫 Ticket: TCK-SOF-5155-00")
	assert.Contains(t, block, "📅 Data: 14/03/2025 09:30")
	assert.Contains(t, block, "🔗 Sistema: Intelligence Workflow")
	assert.True(t, strings.HasSuffix(block, "-----------------------------------"))
}

func TestTaskTransitionLineFormat(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	line := TaskTransitionLine("verifica dati cliente", entity.TaskStatusTodo, entity.TaskStatusInProgress, "TCK-SOF-5155-00", at)

	assert.Contains(t, line, "[14/03/2025 09:30]")
	assert.Contains(t, line, "Task: verifica dati cliente")
	assert.Contains(t, line, "📋 todo → 🔄 in-progress")
	assert.Contains(t, line, "🎫 Ticket: TCK-SOF-5155-00")
}

func TestCompletionBlockFormat(t *testing.T) {
	at := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	block := CompletionBlock("TCK-SOF-5155-00", at)

	assert.Contains(t, block, "🏁 Ticket completato: TCK-SOF-5155-00")
	assert.Contains(t, block, "✅ Tutte le attività sono state completate")
	assert.Contains(t, block, "📅 Data: 14/03/2025 18:00")
}

func TestWritebackEvents(t *testing.T) {
	fake := &fakeAnnotator{}
	svc := NewWritebackService(fake, nil)

	activity := &entity.Activity{ID: "act-1", ExternalID: 725155}
	ticket := &entity.Ticket{ID: "tck-1", TicketCode: "TCK-SOF-5155-00"}
	task := &entity.Task{ID: "tsk-1", Title: "verifica dati cliente"}

	svc.OnTicketCreated(context.Background(), activity, ticket)
	svc.OnTaskStatusChange(context.Background(), activity, ticket, task, entity.TaskStatusTodo, entity.TaskStatusCompleted)
	svc.OnTicketClose(context.Background(), activity, ticket)
	svc.OnActivityComplete(context.Background(), activity, ticket)

	require.Len(t, fake.notes, 3)
	assert.Contains(t, fake.notes[0], "presa in carico")
	assert.Contains(t, fake.notes[1], "verifica dati cliente")
	assert.Contains(t, fake.notes[2], "Ticket completato")
	assert.Equal(t, []int64{725155}, fake.closed)
}

func TestWritebackFailuresNeverPropagate(t *testing.T) {
	fake := &fakeAnnotator{
		appendErr: errors.New("crm unavailable"),
		closeErr:  errors.New("crm unavailable"),
	}
	svc := NewWritebackService(fake, nil)

	activity := &entity.Activity{ID: "act-1", ExternalID: 725155}
	ticket := &entity.Ticket{ID: "tck-1", TicketCode: "TCK-SOF-5155-00"}

	// none of these may panic or surface the error
	svc.OnTicketCreated(context.Background(), activity, ticket)
	svc.OnTicketClose(context.Background(), activity, ticket)
	svc.OnActivityComplete(context.Background(), activity, ticket)
}

func TestWritebackWithoutAnnotatorIsNoop(t *testing.T) {
	svc := NewWritebackService(nil, nil)
	activity := &entity.Activity{ID: "act-1", ExternalID: 725155}
	ticket := &entity.Ticket{ID: "tck-1", TicketCode: "TCK-SOF-5155-00"}

	svc.OnTicketCreated(context.Background(), activity, ticket)
	svc.OnActivityComplete(context.Background(), activity, ticket)
}
