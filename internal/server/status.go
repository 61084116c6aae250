package server

import "time"

// PlayerStatus публичные сведения об игроке
type PlayerStatus struct {
	ID       uint8   `json:"id"`
	Username string  `json:"username"`
	Mode     string  `json:"mode"`
	Smiley   uint8   `json:"smiley"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Idle     float64 `json:"idle_seconds"`
}

// MapStatus сведения о карте
type MapStatus struct {
	Name    string         `json:"name"`
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Players []PlayerStatus `json:"players"`
}

// Status снимок состояния сервера для API; обновляется каждый тик
type Status struct {
	MOTD       string      `json:"motd"`
	Online     int         `json:"online"`
	MaxPlayers int         `json:"max_players"`
	Maps       []MapStatus `json:"maps"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Status возвращает последний снимок; безопасен для вызова из любых горутин
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Server) refreshStatus() {
	st := Status{
		MOTD:       s.opts.MOTD,
		Online:     s.registry.Count(),
		MaxPlayers: s.opts.MaxPlayers,
		UpdatedAt:  time.Now().UTC(),
	}
	for _, m := range s.registry.Maps() {
		ms := MapStatus{Name: m.Name, Width: m.Grid.Width(), Height: m.Grid.Height(), Players: []PlayerStatus{}}
		for _, p := range m.Players() {
			pos := p.Position()
			ms.Players = append(ms.Players, PlayerStatus{
				ID:       p.ID,
				Username: p.Username,
				Mode:     p.Mode().String(),
				Smiley:   uint8(p.Smiley),
				X:        pos.X,
				Y:        pos.Y,
				Idle:     p.Body.IdleTime,
			})
		}
		st.Maps = append(st.Maps, ms)
	}

	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}
