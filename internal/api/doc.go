// Package api — HTTP API Leadflow.
//
// Лиды и правила follow-up создаются и меняются через API, отправленные
// follow-up и execution locks доступны только на чтение. Смена статуса
// лида всегда пишет событие в lead_events и сдвигает updated_at, с этого
// момента лид снова может считаться застрявшим.
//
// Ответы: {"data": ...} для объектов, {"data": [...], "total": N} для
// списков, {"error": {"code", "message"}} для ошибок. Каждый ответ несёт
// X-Request-ID, он же попадает в логи запроса.
package api
