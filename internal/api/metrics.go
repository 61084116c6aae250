package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics сведения о процессе сервера для /health
type ProcessMetrics struct {
	StartTime time.Time
}

// NewProcessMetrics запоминает время старта
func NewProcessMetrics() *ProcessMetrics {
	return &ProcessMetrics{StartTime: time.Now()}
}

// Uptime возвращает время работы в виде "1д 2ч 3м 4с"
func (pm *ProcessMetrics) Uptime() string {
	return formatUptime(time.Since(pm.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// MemoryMB занятая куча в мегабайтах
func (pm *ProcessMetrics) MemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}

// CPUPercent загрузка CPU процессом; при ошибке берётся системная
func (pm *ProcessMetrics) CPUPercent() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if p, err := proc.CPUPercent(); err == nil {
			return p, nil
		}
	}
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("api: cpu usage unavailable")
	}
	return percents[0], nil
}

// Health снимок для ответа /health
type Health struct {
	Status     string  `json:"status"`
	Uptime     string  `json:"uptime"`
	MemoryMB   float64 `json:"memory_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	ServerTime int64   `json:"server_time"`
}

// Snapshot собирает Health; ошибка CPU не делает сервер нездоровым
func (pm *ProcessMetrics) Snapshot() Health {
	cpuPercent, _ := pm.CPUPercent()
	return Health{
		Status:     "ok",
		Uptime:     pm.Uptime(),
		MemoryMB:   pm.MemoryMB(),
		CPUPercent: cpuPercent,
		Goroutines: runtime.NumGoroutine(),
		ServerTime: time.Now().Unix(),
	}
}
