package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/salonbook/salonbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type sliceReader struct {
	msgs   []kafka.Message
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

type memoryInbox struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memoryInbox) Record(_ context.Context, meta kafkax.EventMeta) (bool, error) {
	if m.seen[meta.EventID] {
		return false, nil
	}
	m.seen[meta.EventID] = true
	return true, nil
}

func (m *memoryInbox) Forget(_ context.Context, eventID string) error {
	delete(m.seen, eventID)
	m.forgotten = append(m.forgotten, eventID)
	return nil
}

func message(id string) kafka.Message {
	meta := kafkax.EventMeta{EventID: id, EventType: "booking.appointment.created.v1"}
	return kafka.Message{Topic: meta.EventType, Headers: meta.Headers()}
}

func TestRunSkipsDuplicates(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{message("a"), message("a"), message("b")}}
	box := &memoryInbox{seen: map[string]bool{}}
	var handled []string

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, box, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, kafkax.ExtractEventMeta(msg).EventID)
		return nil
	})
	c.Run(context.Background())

	if len(handled) != 2 || handled[0] != "a" || handled[1] != "b" {
		t.Fatalf("unexpected handled events: %v", handled)
	}
	if !reader.closed {
		t.Fatal("reader was not closed")
	}
}

func TestRunReleasesFailedEvents(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{message("a"), message("a")}}
	box := &memoryInbox{seen: map[string]bool{}}
	calls := 0

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, box, func(context.Context, kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("smtp down")
		}
		return nil
	})
	c.Run(context.Background())

	if calls != 2 {
		t.Fatalf("expected redelivery to be handled again, got %d calls", calls)
	}
	if len(box.forgotten) != 1 || box.forgotten[0] != "a" {
		t.Fatalf("unexpected forgotten events: %v", box.forgotten)
	}
}
