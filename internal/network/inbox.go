package network

import "sync"

// EventKind тип события входящей очереди
type EventKind uint8

const (
	// EventConnect первый кадр соединения (запрос одобрения, для сервера это Login)
	EventConnect EventKind = iota
	// EventData очередной кадр
	EventData
	// EventDisconnect соединение закрыто
	EventDisconnect
)

// String возвращает имя события
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventData:
		return "data"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event событие транспорта для игрового цикла
type Event struct {
	Kind    EventKind
	Channel Channel
	Payload []byte
	Err     error // причина отключения
}

// Inbox буферизованная очередь событий от горутин транспорта к одному
// потребителю (игровому циклу)
type Inbox struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewInbox создаёт очередь на size событий
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 4096
	}
	return &Inbox{
		events: make(chan Event, size),
		done:   make(chan struct{}),
	}
}

// Push кладёт событие, ожидая места. Возвращает false, если очередь закрыта.
func (in *Inbox) Push(ev Event) bool {
	select {
	case <-in.done:
		return false
	default:
	}
	select {
	case in.events <- ev:
		return true
	case <-in.done:
		return false
	}
}

// Poll забирает событие без ожидания
func (in *Inbox) Poll() (Event, bool) {
	select {
	case ev := <-in.events:
		return ev, true
	default:
		return Event{}, false
	}
}

// C канал событий для ожидания в select
func (in *Inbox) C() <-chan Event {
	return in.events
}

// Len количество ожидающих событий
func (in *Inbox) Len() int {
	return len(in.events)
}

// Close останавливает приём; ожидающие Push завершаются
func (in *Inbox) Close() {
	in.closeOnce.Do(func() { close(in.done) })
}
