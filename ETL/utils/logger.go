package utils

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOptions определяет параметры логгера ETL
type LogOptions struct {
	Mode    string // "development" или "production"
	Verbose bool
	File    string // дополнительный файл лога, пустая строка - только stderr
}

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	sugar     *zap.SugaredLogger
	isVerbose bool
}

// NewETLLogger создает новый экземпляр логгера для ETL
func NewETLLogger(opts LogOptions) (*ETLLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	if opts.File != "" {
		// Как и раньше, пишем в файл с датой в имени
		fileName := strings.ReplaceAll(opts.File, "{date}", time.Now().Format("2006-01-02"))
		cfg.OutputPaths = append(cfg.OutputPaths, fileName)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, fileName)
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер: %w", err)
	}

	return &ETLLogger{
		sugar:     zapLogger.Sugar(),
		isVerbose: opts.Verbose,
	}, nil
}

// NewNopLogger возвращает логгер, который ничего не пишет (для тестов)
func NewNopLogger() *ETLLogger {
	return &ETLLogger{sugar: zap.NewNop().Sugar()}
}

// With возвращает логгер с дополнительными полями
func (l *ETLLogger) With(keysAndValues ...interface{}) *ETLLogger {
	return &ETLLogger{
		sugar:     l.sugar.With(keysAndValues...),
		isVerbose: l.isVerbose,
	}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.sugar.Debugf(format, v...)
}

// Sync сбрасывает буферы логгера
func (l *ETLLogger) Sync() {
	_ = l.sugar.Sync()
}

// LogETLStart логирует начало ETL-процесса
func (l *ETLLogger) LogETLStart(jobName string) {
	l.Info("Начало выполнения ETL-процесса %s", jobName)
}

// LogETLComplete логирует завершение ETL-процесса
func (l *ETLLogger) LogETLComplete(startTime time.Time, productsChanged, customersChanged, factsLoaded, snapshotsWritten int) {
	l.Info("ETL-процесс завершён. Длительность: %v", time.Since(startTime))
	l.Info("Обработано: %d изменений товаров, %d изменений клиентов, %d фактов продаж, %d снимков остатков",
		productsChanged, customersChanged, factsLoaded, snapshotsWritten)
}

// LogStepStart логирует начало шага
func (l *ETLLogger) LogStepStart(step string) {
	l.Info("Начало шага %s", step)
}

// LogStepComplete логирует завершение шага
func (l *ETLLogger) LogStepComplete(step string, rows int, duration time.Duration) {
	l.Info("Шаг %s завершён. Записей: %d. Длительность: %v", step, rows, duration)
}
