// Package cli реализует инструмент командной строки Leadflow.
//
// CLI работает через HTTP API и не импортирует внутренние пакеты системы.
//
//	client := cli.NewClient("http://localhost:8080")
//	leads, err := client.ListLeads(cli.ListOpts{Limit: 20})
//
// Вывод: таблицы (text/tabwriter) по умолчанию или JSON с флагом --json.
// Данные выводятся в stdout, сообщения — в stderr:
//
//	leadflow lead list --json | jq .
//
// Группы команд:
//   - lead: list, create, show, status, events
//   - rule: list, create, enable, disable
//   - followup: list
//   - lock: list
//
// Каждая группа создаётся фабричной функцией (NewLeadCmd и т.д.),
// принимающей clientFn и outputFn: Client и Output создаются лениво,
// после парсинга PersistentFlags.
package cli
