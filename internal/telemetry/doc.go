// Package telemetry — логирование, метрики и служебный HTTP сервер
// сервисов Leadflow.
//
// Логи пишутся через log/slog. Формат (json или text) и уровень задаются
// LOG_FORMAT и LOG_LEVEL, каждый логгер несёт поле service. Метрики
// регистрируются в глобальном реестре Prometheus через promauto и отдаются
// на /metrics вместе с /healthz (NewOpsMux).
package telemetry
