package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/Leadflow/internal/repo"
)

// parseListParams читает limit, offset, order_by, order_dir.
// Некорректные значения заменяются значениями по умолчанию в repo.
func parseListParams(r *http.Request) repo.ListParams {
	q := r.URL.Query()
	return repo.ListParams{
		Limit:    parseInt(q.Get("limit"), repo.DefaultLimit),
		Offset:   parseInt(q.Get("offset"), 0),
		OrderBy:  q.Get("order_by"),
		OrderDir: q.Get("order_dir"),
	}
}

// parseInt парсит строку в int с дефолтным значением.
func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
