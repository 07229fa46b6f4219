package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"arenta/marketplace/internal/model"
	"arenta/marketplace/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	msgs   []model.Message
	err    error // returned instead of persisting when set
}

func (s *fakeStore) SendMessage(chatID, senderID uint, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	s.nextID++
	msg := model.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(s.nextID) * time.Second),
	}
	msg.ID = s.nextID
	s.msgs = append(s.msgs, msg)
	return &msg, nil
}

type fakePresence struct {
	mu      sync.Mutex
	added   int
	removed int
}

func (p *fakePresence) AddUserToChat(ctx context.Context, chatID, userID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added++
	return nil
}

func (p *fakePresence) RemoveUserFromChat(ctx context.Context, chatID, userID uint) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed++
	return 0, nil
}

func (p *fakePresence) GetChatUsers(ctx context.Context, chatID uint) ([]uint, error) {
	return nil, nil
}

func runSession(s *Session) chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func sender(id uint, name string) model.UserProfile {
	return model.UserProfile{ID: id, Username: name, Avatar: "a.png", Provider: "local"}
}

func TestSessionPersistsAndBroadcastsWithEcho(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}

	peer := newFakeTransport()
	reg.Register(7, NewConn(2, peer))

	transport := newFakeTransport()
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	transport.in <- []byte(`{"content":"hi"}`)

	require.Eventually(t, func() bool {
		return len(peer.sentMessages()) == 1 && len(transport.sentMessages()) == 1
	}, time.Second, 5*time.Millisecond, "both the peer and the sender's own connection get the broadcast")

	out, ok := transport.sentMessages()[0].(OutMessage)
	require.True(t, ok)
	assert.Equal(t, uint(1), out.ID)
	assert.Equal(t, uint(7), out.ChatID)
	assert.Equal(t, "hi", out.Content)
	assert.Equal(t, sender(1, "alice"), out.Sender)
	assert.Equal(t, "2024-01-01 12:00:01", out.Timestamp)

	close(transport.in)
	waitDone(t, done)
}

func TestSessionUnregistersOnDisconnect(t *testing.T) {
	reg := NewRegistry()
	presence := &fakePresence{}

	transport := newFakeTransport()
	session := NewSession(reg, &fakeStore{}, presence, 7, sender(1, "alice"), transport)
	done := runSession(session)

	require.Eventually(t, func() bool { return reg.Count(7) == 1 }, time.Second, 5*time.Millisecond)

	close(transport.in)
	waitDone(t, done)

	assert.Equal(t, 0, reg.Count(7))
	transport.mu.Lock()
	assert.True(t, transport.closed)
	transport.mu.Unlock()
	assert.Equal(t, 1, presence.added)
	assert.Equal(t, 1, presence.removed)
}

func TestSessionRejectsMalformedPayloadPerMessage(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}

	transport := newFakeTransport()
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	transport.in <- []byte(`not json`)
	transport.in <- []byte(`{"content":""}`)
	transport.in <- []byte(`{"content":"still here"}`)

	require.Eventually(t, func() bool {
		return len(transport.sentMessages()) == 3
	}, time.Second, 5*time.Millisecond)

	sent := transport.sentMessages()
	_, isErr := sent[0].(errorFrame)
	assert.True(t, isErr, "malformed frame gets an error reply")
	_, isErr = sent[1].(errorFrame)
	assert.True(t, isErr, "empty content gets an error reply")
	out, isOut := sent[2].(OutMessage)
	require.True(t, isOut, "the session survives bad frames")
	assert.Equal(t, "still here", out.Content)

	store.mu.Lock()
	assert.Len(t, store.msgs, 1, "only the valid frame was persisted")
	store.mu.Unlock()

	close(transport.in)
	waitDone(t, done)
}

func TestSessionTerminatesWhenChatIsGone(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{err: apperr.NotFound("chat 7")}

	transport := newFakeTransport()
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	transport.in <- []byte(`{"content":"hi"}`)

	waitDone(t, done)
	assert.Equal(t, 0, reg.Count(7), "the session unregistered itself")
	assert.Empty(t, transport.sentMessages(), "nothing was broadcast")
}

func TestSessionContinuesOnValidationError(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{err: apperr.Validation("user 1 is not a participant of chat 7")}

	transport := newFakeTransport()
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	transport.in <- []byte(`{"content":"hi"}`)

	require.Eventually(t, func() bool {
		return len(transport.sentMessages()) == 1
	}, time.Second, 5*time.Millisecond)

	_, isErr := transport.sentMessages()[0].(errorFrame)
	assert.True(t, isErr)
	assert.Equal(t, 1, reg.Count(7), "the session stays registered")

	close(transport.in)
	waitDone(t, done)
}

// overlapTransport reports two writers inside WriteJSON at the same time
// instead of serializing them itself, the way a real websocket connection
// would panic.
type overlapTransport struct {
	in       chan []byte
	active   atomic.Int64
	overlaps atomic.Int64
}

func (t *overlapTransport) ReadMessage() (int, []byte, error) {
	data, ok := <-t.in
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return 1, data, nil
}

func (t *overlapTransport) WriteJSON(v any) error {
	if t.active.Inc() > 1 {
		t.overlaps.Inc()
	}
	time.Sleep(50 * time.Microsecond)
	t.active.Dec()
	return nil
}

func (t *overlapTransport) Close() error { return nil }

// One session keeps producing error frames while other goroutines fan out
// into the same chat. Both paths write to the same connection, so they must
// never run concurrently.
func TestErrorFramesDoNotInterleaveWithBroadcasts(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{err: apperr.Validation("user 1 is not a participant of chat 7")}

	transport := &overlapTransport{in: make(chan []byte, 256)}
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					reg.Broadcast(7, "fan-out")
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		transport.in <- []byte(`{"content":""}`)
	}
	close(transport.in)
	waitDone(t, done)

	close(stop)
	wg.Wait()

	assert.Zero(t, transport.overlaps.Load(),
		"every write to one connection must hold its write lock")
}

func TestSessionPerSenderOrdering(t *testing.T) {
	reg := NewRegistry()
	store := &fakeStore{}

	transport := newFakeTransport()
	session := NewSession(reg, store, nil, 7, sender(1, "alice"), transport)
	done := runSession(session)

	transport.in <- []byte(`{"content":"one"}`)
	transport.in <- []byte(`{"content":"two"}`)
	transport.in <- []byte(`{"content":"three"}`)

	require.Eventually(t, func() bool {
		return len(transport.sentMessages()) == 3
	}, time.Second, 5*time.Millisecond)

	var contents []string
	var ids []uint
	for _, v := range transport.sentMessages() {
		out := v.(OutMessage)
		contents = append(contents, out.Content)
		ids = append(ids, out.ID)
	}
	assert.Equal(t, []string{"one", "two", "three"}, contents)
	assert.Equal(t, []uint{1, 2, 3}, ids, "ids follow commit order")

	close(transport.in)
	waitDone(t, done)
}
