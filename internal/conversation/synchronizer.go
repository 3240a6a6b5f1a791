package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/academyportal/internal/logger"
	"github.com/academyportal/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval — период опроса открытой переписки.
const DefaultPollInterval = 5 * time.Second

// markReadParallel — сколько отметок "прочитано" идут одновременно.
const markReadParallel = 4

type State int

const (
	StateIdle State = iota
	StateLoading
	StateSynced
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ThreadMessage — сообщение относительно текущего пользователя.
type ThreadMessage struct {
	model.Message
	Mine bool `json:"mine"`
}

// Thread — последняя успешно загруженная переписка с собеседником.
type Thread struct {
	PartnerID int64
	Messages  []ThreadMessage
	FetchedAt time.Time
}

// Unread — сколько входящих в переписке ещё не прочитано.
func (t Thread) Unread() int {
	n := 0
	for _, m := range t.Messages {
		if !m.Mine && !m.Read {
			n++
		}
	}
	return n
}

// Synchronizer держит открытой одну переписку: загружает её сразу после Select,
// затем каждые interval и по Refresh. Входящие непрочитанные отмечаются прочитанными.
//
// Каждый цикл опроса помечен поколением; результат, пришедший после смены собеседника,
// отбрасывается без отметок и без уведомления view.
type Synchronizer struct {
	store    MessageStore
	viewerID int64
	interval time.Duration
	view     ThreadView

	mu        sync.Mutex
	state     State
	gen       uint64
	partnerID int64
	thread    Thread
	loaded    bool
	seenRead  map[int64]struct{}
	cancel    context.CancelFunc
	refresh   chan struct{}

	// notifyMu упорядочивает вызовы view между поколениями.
	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

func NewSynchronizer(store MessageStore, viewerID int64, interval time.Duration, view ThreadView) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if view == nil {
		view = noopView{}
	}
	return &Synchronizer{store: store, viewerID: viewerID, interval: interval, view: view}
}

// Select открывает переписку с partnerID. Предыдущий цикл опроса останавливается.
// Повторный Select того же собеседника только запрашивает обновление.
func (s *Synchronizer) Select(partnerID int64) error {
	if partnerID <= 0 {
		return ErrNoPartner
	}
	if partnerID == s.viewerID {
		return ErrSelfConversation
	}
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.partnerID == partnerID && s.cancel != nil {
		s.mu.Unlock()
		s.Refresh()
		return nil
	}
	s.stopLocked()
	s.gen++
	gen := s.gen
	s.partnerID = partnerID
	s.thread = Thread{PartnerID: partnerID}
	s.loaded = false
	s.seenRead = make(map[int64]struct{})
	s.state = StateLoading
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	refresh := make(chan struct{}, 1)
	s.refresh = refresh
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, gen, partnerID, refresh)
	return nil
}

// Deselect закрывает текущую переписку и останавливает опрос (состояние Idle).
func (s *Synchronizer) Deselect() {
	s.mu.Lock()
	if s.state != StateClosed {
		s.stopLocked()
		s.gen++
		s.partnerID = 0
		s.thread = Thread{}
		s.loaded = false
		s.state = StateIdle
	}
	s.mu.Unlock()
}

// Refresh просит немедленно перезагрузить текущую переписку. Не блокирует.
func (s *Synchronizer) Refresh() {
	s.mu.Lock()
	ch := s.refresh
	s.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Close останавливает опрос и ждёт завершения горутины. Дальнейшие Select вернут ErrClosed.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.gen++
	s.state = StateClosed
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PartnerID — выбранный собеседник, 0 если переписка не открыта.
func (s *Synchronizer) PartnerID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return 0
	}
	return s.partnerID
}

// Thread возвращает копию последней загруженной переписки; false, если загрузок ещё не было.
func (s *Synchronizer) Thread() (Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Thread{PartnerID: s.partnerID}, false
	}
	return s.thread.clone(), true
}

func (s *Synchronizer) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.refresh = nil
}

func (s *Synchronizer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Synchronizer) run(ctx context.Context, gen uint64, partnerID int64, refresh <-chan struct{}) {
	defer s.wg.Done()
	s.fetch(ctx, gen, partnerID)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-refresh:
		}
		s.fetch(ctx, gen, partnerID)
	}
}

func (s *Synchronizer) fetch(ctx context.Context, gen uint64, partnerID int64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	if !s.loaded {
		s.state = StateLoading
	}
	s.mu.Unlock()

	msgs, err := s.store.ListThread(ctx, s.viewerID, partnerID)
	if ctx.Err() != nil || !s.current(gen) {
		return
	}
	if err != nil {
		logger.Warnf("conversation: load thread partner=%d: %v", partnerID, err)
		s.notify(gen, func(v ThreadView) { v.ThreadFailed(partnerID, err) })
		return
	}

	marked := s.markRead(ctx, partnerID, msgs)
	if ctx.Err() != nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	th := Thread{PartnerID: partnerID, Messages: make([]ThreadMessage, 0, len(msgs)), FetchedAt: time.Now()}
	for _, m := range msgs {
		if _, ok := marked[m.ID]; ok {
			m.Read = true
		}
		if m.Read {
			s.seenRead[m.ID] = struct{}{}
		} else if _, ok := s.seenRead[m.ID]; ok {
			m.Read = true
		}
		th.Messages = append(th.Messages, ThreadMessage{Message: m, Mine: m.SenderID == s.viewerID})
	}
	s.thread = th
	s.loaded = true
	s.state = StateSynced
	out := th.clone()
	s.mu.Unlock()
	s.view.ThreadUpdated(out)
}

// markRead отмечает входящие непрочитанные. Ошибка по одному сообщению не мешает остальным;
// неотмеченные останутся непрочитанными и будут отмечены на следующем цикле.
func (s *Synchronizer) markRead(ctx context.Context, partnerID int64, msgs []model.Message) map[int64]struct{} {
	var ids []int64
	for _, m := range msgs {
		if m.ReceiverID == s.viewerID && !m.Read {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var (
		mu     sync.Mutex
		marked = make(map[int64]struct{}, len(ids))
		g      errgroup.Group
	)
	g.SetLimit(markReadParallel)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := s.store.MarkRead(ctx, id); err != nil {
				logger.Warnf("conversation: mark read message=%d partner=%d: %v", id, partnerID, err)
				return nil
			}
			mu.Lock()
			marked[id] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return marked
}

func (s *Synchronizer) notify(gen uint64, fn func(ThreadView)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if !s.current(gen) {
		return
	}
	fn(s.view)
}

func (t Thread) clone() Thread {
	out := t
	out.Messages = append([]ThreadMessage(nil), t.Messages...)
	return out
}
