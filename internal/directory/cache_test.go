package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/beacon-station/internal/store"
)

// fakeReader serves fixed raw JSON per path and counts calls.
type fakeReader struct {
	nodes map[string]string
	err   error
	calls map[string]int
}

func newFakeReader(nodes map[string]string) *fakeReader {
	return &fakeReader{nodes: nodes, calls: make(map[string]int)}
}

func (r *fakeReader) get(path string) (store.Value, error) {
	r.calls[path]++
	if r.err != nil {
		return store.Value{}, r.err
	}
	raw, ok := r.nodes[path]
	if !ok {
		return store.Value{}, fmt.Errorf("%w: %s", store.ErrNotFound, path)
	}
	return store.NewValue([]byte(raw)), nil
}

func (r *fakeReader) GetString(_ context.Context, path string) (store.Value, error) {
	return r.get(path)
}

func (r *fakeReader) GetJSON(_ context.Context, path string) (store.Value, error) {
	return r.get(path)
}

const (
	roomPath = "stations/station-a1b2/room"
	tagsPath = "rooms/room42/tags"
)

func TestEnsureRoomID_ResolvesOnce(t *testing.T) {
	r := newFakeReader(map[string]string{roomPath: `"room42"`})
	c := New("station-a1b2", r)
	ctx := context.Background()

	for range 3 {
		if err := c.EnsureRoomID(ctx); err != nil {
			t.Fatalf("EnsureRoomID() error = %v", err)
		}
	}
	if c.RoomID() != "room42" {
		t.Errorf("RoomID() = %q, want room42", c.RoomID())
	}
	if r.calls[roomPath] != 1 {
		t.Errorf("store read %d times, want 1", r.calls[roomPath])
	}
}

func TestEnsureRoomID_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		nodes   map[string]string
		readErr error
		wantErr error
	}{
		{name: "missing", nodes: map[string]string{}, wantErr: store.ErrNotFound},
		{name: "number", nodes: map[string]string{roomPath: `42`}, wantErr: ErrUnexpectedType},
		{name: "object", nodes: map[string]string{roomPath: `{"id":"room42"}`}, wantErr: ErrUnexpectedType},
		{name: "empty string", nodes: map[string]string{roomPath: `""`}, wantErr: store.ErrNotFound},
		{name: "transport error", readErr: store.ErrRequestFailed, wantErr: store.ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeReader(tt.nodes)
			r.err = tt.readErr
			c := New("station-a1b2", r)

			err := c.EnsureRoomID(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("EnsureRoomID() error = %v, want %v", err, tt.wantErr)
			}
			if c.RoomID() != "" {
				t.Errorf("RoomID() = %q, want empty", c.RoomID())
			}

			// Retried on the next call.
			_ = c.EnsureRoomID(context.Background())
			if r.calls[roomPath] != 2 {
				t.Errorf("store read %d times, want 2", r.calls[roomPath])
			}
		})
	}
}

func TestEnsureTagDirectory_NotBeforeRoom(t *testing.T) {
	r := newFakeReader(map[string]string{})
	c := New("station-a1b2", r)

	if err := c.EnsureTagDirectory(context.Background()); err != nil {
		t.Fatalf("EnsureTagDirectory() error = %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("store was read before the room id resolved: %v", r.calls)
	}
}

func TestEnsureTagDirectory_Inverts(t *testing.T) {
	r := newFakeReader(map[string]string{
		roomPath: `"room42"`,
		tagsPath: `{
			"tag-1": {"macAddress": "de:ad:be:ef:00:01"},
			"tag-2": {"macAddress": "AA:BB:CC:DD:EE:FF", "label": "forklift"}
		}`,
	})
	c := New("station-a1b2", r)
	ctx := context.Background()

	if err := c.EnsureRoomID(ctx); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := c.EnsureTagDirectory(ctx); err != nil {
			t.Fatalf("EnsureTagDirectory() error = %v", err)
		}
	}

	if r.calls[tagsPath] != 1 {
		t.Errorf("directory read %d times, want 1", r.calls[tagsPath])
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	tests := []struct {
		addr   string
		want   string
		wantOK bool
	}{
		{addr: "DE:AD:BE:EF:00:01", want: "tag-1", wantOK: true},
		{addr: "de:ad:be:ef:00:01", want: "tag-1", wantOK: true},
		{addr: "aa-bb-cc-dd-ee-ff", want: "tag-2", wantOK: true},
		{addr: "11:22:33:44:55:66"},
		{addr: "not-an-address"},
	}
	for _, tt := range tests {
		got, ok := c.Lookup(tt.addr)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.addr, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEnsureTagDirectory_SkipsMalformed(t *testing.T) {
	r := newFakeReader(map[string]string{
		roomPath: `"room42"`,
		tagsPath: `{
			"good": {"macAddress": "de:ad:be:ef:00:01"},
			"no-mac": {"label": "x"},
			"numeric-mac": {"macAddress": 12},
			"bad-mac": {"macAddress": "zz"},
			"scalar": "de:ad:be:ef:00:02",
			"null": {"macAddress": "de:ad:be:ef:00:03"},
			"": {"macAddress": "de:ad:be:ef:00:04"}
		}`,
	})
	c := New("station-a1b2", r)
	ctx := context.Background()

	_ = c.EnsureRoomID(ctx)
	if err := c.EnsureTagDirectory(ctx); err != nil {
		t.Fatalf("EnsureTagDirectory() error = %v", err)
	}

	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3 (good, null and empty id)", c.Size())
	}
	if got, ok := c.Lookup("DE:AD:BE:EF:00:01"); !ok || got != "good" {
		t.Errorf("Lookup(good) = (%q, %v)", got, ok)
	}
	if _, ok := c.Lookup("DE:AD:BE:EF:00:03"); ok {
		t.Error(`Lookup() matched the "null" tag id`)
	}
	if got, ok := c.Lookup("DE:AD:BE:EF:00:04"); ok {
		t.Errorf("Lookup() matched the empty tag id: %q", got)
	}
}

func TestEnsureTagDirectory_DuplicateAddressKeepsFirstID(t *testing.T) {
	r := newFakeReader(map[string]string{
		roomPath: `"room42"`,
		tagsPath: `{
			"tag-b": {"macAddress": "DE:AD:BE:EF:00:01"},
			"tag-a": {"macAddress": "de:ad:be:ef:00:01"}
		}`,
	})
	c := New("station-a1b2", r)
	ctx := context.Background()

	_ = c.EnsureRoomID(ctx)
	if err := c.EnsureTagDirectory(ctx); err != nil {
		t.Fatalf("EnsureTagDirectory() error = %v", err)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	if got, _ := c.Lookup("DE:AD:BE:EF:00:01"); got != "tag-a" {
		t.Errorf("Lookup() = %q, want tag-a", got)
	}
}

func TestEnsureTagDirectory_WrongTypeStaysEmpty(t *testing.T) {
	r := newFakeReader(map[string]string{
		roomPath: `"room42"`,
		tagsPath: `["de:ad:be:ef:00:01"]`,
	})
	c := New("station-a1b2", r)
	ctx := context.Background()

	_ = c.EnsureRoomID(ctx)
	if err := c.EnsureTagDirectory(ctx); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("EnsureTagDirectory() error = %v, want ErrUnexpectedType", err)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}

	_ = c.EnsureTagDirectory(ctx)
	if r.calls[tagsPath] != 2 {
		t.Errorf("directory read %d times, want 2 (retried while empty)", r.calls[tagsPath])
	}
}
