package server

import (
	"sort"

	"github.com/annel0/bricklayer/internal/network"
	"github.com/annel0/bricklayer/internal/world"
	"golang.org/x/time/rate"
)

// Session одобренное подключение: канал, игрок и карта, на которой он находится
type Session struct {
	Channel network.Channel
	Player  *world.Player
	Map     *world.Map

	blockLimiter *rate.Limiter
	chatLimiter  *rate.Limiter
}

// ConnID идентификатор соединения
func (s *Session) ConnID() string {
	return s.Channel.ID()
}

// Registry владеет сессиями и картами сервера. Не потокобезопасен,
// используется только из игрового цикла.
type Registry struct {
	maxPlayers int
	sessions   map[string]*Session
	maps       map[string]*world.Map
	mapOrder   []string
}

// NewRegistry создаёт пустой реестр
func NewRegistry(maxPlayers int) *Registry {
	return &Registry{
		maxPlayers: maxPlayers,
		sessions:   make(map[string]*Session),
		maps:       make(map[string]*world.Map),
	}
}

// AddMap регистрирует карту; первая добавленная карта становится картой входа
func (r *Registry) AddMap(m *world.Map) {
	if _, ok := r.maps[m.Name]; !ok {
		r.mapOrder = append(r.mapOrder, m.Name)
	}
	r.maps[m.Name] = m
}

// Map возвращает карту по имени
func (r *Registry) Map(name string) (*world.Map, bool) {
	m, ok := r.maps[name]
	return m, ok
}

// DefaultMap карта, на которую попадают новые игроки
func (r *Registry) DefaultMap() *world.Map {
	if len(r.mapOrder) == 0 {
		return nil
	}
	return r.maps[r.mapOrder[0]]
}

// Maps возвращает карты в порядке регистрации
func (r *Registry) Maps() []*world.Map {
	out := make([]*world.Map, 0, len(r.mapOrder))
	for _, name := range r.mapOrder {
		out = append(out, r.maps[name])
	}
	return out
}

// Session возвращает сессию соединения
func (r *Registry) Session(connID string) (*Session, bool) {
	s, ok := r.sessions[connID]
	return s, ok
}

// Add регистрирует сессию
func (r *Registry) Add(s *Session) {
	r.sessions[s.ConnID()] = s
}

// Remove удаляет сессию и возвращает её
func (r *Registry) Remove(connID string) (*Session, bool) {
	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	return s, ok
}

// Count количество одобренных сессий
func (r *Registry) Count() int {
	return len(r.sessions)
}

// Sessions возвращает все сессии, отсортированные по карте и порядку входа
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Map.Name != out[j].Map.Name {
			return out[i].Map.Name < out[j].Map.Name
		}
		return out[i].Player.Index < out[j].Player.Index
	})
	return out
}

// InMap возвращает сессии карты в порядке входа игроков
func (r *Registry) InMap(m *world.Map) []*Session {
	var out []*Session
	for _, s := range r.sessions {
		if s.Map == m {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player.Index < out[j].Player.Index })
	return out
}

// AllocateID выдаёт наименьший свободный на карте ID ниже maxPlayers.
// Если все заняты, возвращает 0 и ok=false: вызывающий логирует и
// переиспользует слот 0, соединение не отклоняется.
func (r *Registry) AllocateID(m *world.Map) (id uint8, ok bool) {
	used := make(map[uint8]bool, m.PlayerCount())
	for _, p := range m.Players() {
		used[p.ID] = true
	}
	for i := 0; i < r.maxPlayers && i <= 255; i++ {
		if !used[uint8(i)] {
			return uint8(i), true
		}
	}
	return 0, false
}
