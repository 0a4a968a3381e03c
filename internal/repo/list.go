package repo

import "fmt"

// Параметры пагинации по умолчанию.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListParams — пагинация и сортировка для списочных запросов.
type ListParams struct {
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string // "asc" или "desc"
}

// normalize приводит параметры к допустимым значениям.
// Колонка сортировки берётся только из allowed (защита от SQL-инъекции),
// иначе используется defaultOrder.
func (p ListParams) normalize(allowed []string, defaultOrder string) ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	p.Limit = min(p.Limit, MaxLimit)
	if p.Offset < 0 {
		p.Offset = 0
	}

	valid := false
	for _, col := range allowed {
		if p.OrderBy == col {
			valid = true
			break
		}
	}
	if !valid {
		p.OrderBy = defaultOrder
	}

	if p.OrderDir != "asc" {
		p.OrderDir = "desc"
	}
	return p
}

// orderClause формирует ORDER BY для нормализованных параметров.
func (p ListParams) orderClause() string {
	return fmt.Sprintf("ORDER BY %s %s, id %s", p.OrderBy, p.OrderDir, p.OrderDir)
}
