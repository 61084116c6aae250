package block

// SmileyID идентификатор скина (смайлика) игрока
type SmileyID uint8

// SmileyCount количество смайликов в каталоге; 0 — смайлик по умолчанию
const SmileyCount = 12

const DefaultSmiley SmileyID = 0

// IsValidSmiley проверяет, что смайлик есть в каталоге
func IsValidSmiley(id SmileyID) bool {
	return int(id) < SmileyCount
}

// CycleSmiley возвращает следующий (step=1) или предыдущий (step=-1) смайлик по кругу
func CycleSmiley(id SmileyID, step int) SmileyID {
	next := (int(id) + step) % SmileyCount
	if next < 0 {
		next += SmileyCount
	}
	return SmileyID(next)
}
